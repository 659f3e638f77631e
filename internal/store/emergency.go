package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EmergencyContact is someone to notify during an emergency.
type EmergencyContact struct {
	ID           int64  `json:"id"`
	PatientID    int64  `json:"patientId"`
	Name         string `json:"name"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone"`
	Priority     int    `json:"priority"`
}

// EmergencyEvent is an audit entry for an emergency escalation.
type EmergencyEvent struct {
	ID        string    `json:"id"`
	PatientID int64     `json:"patientId"`
	Kind      string    `json:"kind"`
	Severity  string    `json:"severity"`
	Details   string    `json:"details,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddEmergencyContact stores a contact and returns its id.
func (r *Records) AddEmergencyContact(ctx context.Context, c EmergencyContact) (int64, error) {
	if err := r.EnsurePatient(ctx, c.PatientID); err != nil {
		return 0, err
	}
	if c.Priority <= 0 {
		c.Priority = 1
	}
	res, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO emergency_contacts (patient_id, name, relationship, phone, priority)
		 VALUES (?, ?, ?, ?, ?)`,
		c.PatientID, c.Name, c.Relationship, c.Phone, c.Priority)
	if err != nil {
		return 0, fmt.Errorf("saving emergency contact: %w", err)
	}
	return res.LastInsertId()
}

// EmergencyContacts lists contacts in notification order.
func (r *Records) EmergencyContacts(ctx context.Context, patientID int64) ([]EmergencyContact, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT id, patient_id, name, relationship, phone, priority
		 FROM emergency_contacts WHERE patient_id = ?
		 ORDER BY priority, id`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("loading emergency contacts: %w", err)
	}
	defer rows.Close()

	var out []EmergencyContact
	for rows.Next() {
		var c EmergencyContact
		if err := rows.Scan(&c.ID, &c.PatientID, &c.Name, &c.Relationship, &c.Phone, &c.Priority); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LogEmergency records an emergency event and returns it with its new id.
func (r *Records) LogEmergency(ctx context.Context, e EmergencyEvent) (EmergencyEvent, error) {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC().Truncate(time.Second)
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO emergency_events (id, patient_id, kind, severity, details, location, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.PatientID, e.Kind, e.Severity, e.Details, e.Location, e.CreatedAt.Format(time.DateTime))
	if err != nil {
		return EmergencyEvent{}, fmt.Errorf("logging emergency: %w", err)
	}
	return e, nil
}

// EmergencyEvents returns a patient's most recent emergency events.
func (r *Records) EmergencyEvents(ctx context.Context, patientID int64, limit int) ([]EmergencyEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT id, patient_id, kind, severity, details, location, created_at
		 FROM emergency_events WHERE patient_id = ?
		 ORDER BY created_at DESC LIMIT ?`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("loading emergency events: %w", err)
	}
	defer rows.Close()

	var out []EmergencyEvent
	for rows.Next() {
		var e EmergencyEvent
		var created string
		if err := rows.Scan(&e.ID, &e.PatientID, &e.Kind, &e.Severity, &e.Details, &e.Location, &created); err != nil {
			return nil, err
		}
		e.CreatedAt = parseTime(created)
		out = append(out, e)
	}
	return out, rows.Err()
}
