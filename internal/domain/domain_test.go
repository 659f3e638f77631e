package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Message tests ---

func TestMessageConstructors(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		role Role
	}{
		{name: "system", msg: System("tool output"), role: RoleSystem},
		{name: "user", msg: User("hi"), role: RoleUser},
		{name: "assistant", msg: Assistant("hello"), role: RoleAssistant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.role, tt.msg.Role)
			assert.False(t, tt.msg.Timestamp.IsZero())
			assert.Equal(t, tt.role == RoleSystem, tt.msg.IsSystem())
			assert.Equal(t, tt.role == RoleUser, tt.msg.IsUser())
			assert.Equal(t, tt.role == RoleAssistant, tt.msg.IsAssistant())
		})
	}
}

func TestRoleConstants(t *testing.T) {
	assert.Equal(t, Role("system"), RoleSystem)
	assert.Equal(t, Role("user"), RoleUser)
	assert.Equal(t, Role("assistant"), RoleAssistant)
}

// --- Location tests ---

func TestLocationKnown(t *testing.T) {
	assert.False(t, Location{}.Known())
	assert.True(t, Location{Lat: 33.89, Lon: 35.50}.Known())
	assert.True(t, Location{Lat: 0, Lon: 35.50}.Known())
}

// --- ConversationState tests ---

func TestConversationStateClone(t *testing.T) {
	s := ConversationState{History: []Message{User("a")}, UserID: 7}
	c := s.Clone()
	c.History = append(c.History, Assistant("b"))
	c.History[0] = User("changed")

	require.Len(t, s.History, 1)
	assert.Equal(t, "a", s.History[0].Text)
	assert.Equal(t, int64(7), c.UserID)
}

func TestConversationStateLastAssistant(t *testing.T) {
	s := ConversationState{}
	_, ok := s.LastAssistant()
	assert.False(t, ok)

	s.History = []Message{User("q"), Assistant("first"), System("Tool Result (X): y"), Assistant("second"), User("again")}
	m, ok := s.LastAssistant()
	require.True(t, ok)
	assert.Equal(t, "second", m.Text)

	last, ok := s.Last()
	require.True(t, ok)
	assert.Equal(t, "again", last.Text)
}

func TestConversationStateJSON(t *testing.T) {
	s := ConversationState{
		ThreadID:     "t-1",
		History:      []Message{User("hello")},
		Iterations:   2,
		UserLocation: Location{Lat: 1.5, Lon: 2.5},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"threadId":"t-1"`)
	assert.NotContains(t, string(data), "patientContext")

	var decoded ConversationState
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, s.UserLocation, decoded.UserLocation)
	require.Len(t, decoded.History, 1)
	assert.Equal(t, RoleUser, decoded.History[0].Role)
}
