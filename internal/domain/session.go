package domain

import "time"

// Location is a latitude/longitude pair. The zero value means the
// location is unknown.
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Known reports whether the location carries real coordinates.
func (l Location) Known() bool {
	return l.Lat != 0 || l.Lon != 0
}

// ConversationState is the unit threaded through the agent loop. It is
// created per request or resumed from a persisted thread.
type ConversationState struct {
	ThreadID       string    `json:"threadId,omitempty"`
	History        []Message `json:"history"`
	PatientContext string    `json:"patientContext,omitempty"`
	MedicalRecord  string    `json:"medicalRecord,omitempty"`
	Iterations     int       `json:"iterations"`
	UserID         int64     `json:"userId,omitempty"`
	UserLocation   Location  `json:"userLocation"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Clone returns a copy whose history can be appended to without
// affecting the receiver.
func (s ConversationState) Clone() ConversationState {
	out := s
	out.History = append([]Message(nil), s.History...)
	return out
}

// LastAssistant returns the most recent assistant message, if any.
func (s ConversationState) LastAssistant() (Message, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].IsAssistant() {
			return s.History[i], true
		}
	}
	return Message{}, false
}

// Last returns the final history entry, if any.
func (s ConversationState) Last() (Message, bool) {
	if len(s.History) == 0 {
		return Message{}, false
	}
	return s.History[len(s.History)-1], true
}
