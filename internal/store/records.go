package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Patient is the owner of every health record.
type Patient struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
	City  string `json:"city,omitempty"`
}

// Condition is a diagnosed condition.
type Condition struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Medication is a prescribed medication.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage,omitempty"`
	Frequency string `json:"frequency,omitempty"`
	Active    bool   `json:"active"`
}

// Allergy is a recorded allergy.
type Allergy struct {
	Substance string `json:"substance"`
	Reaction  string `json:"reaction,omitempty"`
	Severity  string `json:"severity,omitempty"`
}

// Profile is a patient's structured clinical summary.
type Profile struct {
	Patient     Patient      `json:"patient"`
	Conditions  []Condition  `json:"conditions"`
	Medications []Medication `json:"medications"`
	Allergies   []Allergy    `json:"allergies"`
}

// MedicalRecord is a free-text clinical document (lab report, visit note).
type MedicalRecord struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patientId"`
	Kind       string    `json:"kind"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Physician is an entry in the patient's personal address book.
type Physician struct {
	ID        int64  `json:"id"`
	PatientID int64  `json:"patientId"`
	Name      string `json:"name"`
	Specialty string `json:"specialty,omitempty"`
	Clinic    string `json:"clinic,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Records is the health record repository.
type Records struct {
	db *DB
}

// NewRecords creates a repository on db.
func NewRecords(db *DB) *Records {
	return &Records{db: db}
}

func now() string {
	return time.Now().UTC().Format(time.DateTime)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.DateTime, s)
	return t
}

// EnsurePatient creates a placeholder patient row for id if none exists.
func (r *Records) EnsurePatient(ctx context.Context, id int64) error {
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO patients (id, name) VALUES (?, ?) ON CONFLICT(id) DO NOTHING`,
		id, fmt.Sprintf("Patient %d", id))
	if err != nil {
		return fmt.Errorf("ensuring patient %d: %w", id, err)
	}
	return nil
}

// UpsertPatient inserts or updates a patient.
func (r *Records) UpsertPatient(ctx context.Context, p Patient) error {
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO patients (id, name, phone, city) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, phone = excluded.phone, city = excluded.city`,
		p.ID, p.Name, p.Phone, p.City)
	if err != nil {
		return fmt.Errorf("saving patient %d: %w", p.ID, err)
	}
	return nil
}

// Patient returns a patient by id.
func (r *Records) Patient(ctx context.Context, id int64) (Patient, error) {
	var p Patient
	err := r.db.sql.QueryRowContext(ctx,
		`SELECT id, name, phone, city FROM patients WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Phone, &p.City)
	if errors.Is(err, sql.ErrNoRows) {
		return Patient{}, ErrNotFound
	}
	if err != nil {
		return Patient{}, fmt.Errorf("loading patient %d: %w", id, err)
	}
	return p, nil
}

// AddCondition records a condition for a patient.
func (r *Records) AddCondition(ctx context.Context, patientID int64, c Condition) error {
	if err := r.EnsurePatient(ctx, patientID); err != nil {
		return err
	}
	if c.Status == "" {
		c.Status = "active"
	}
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO conditions (patient_id, name, status) VALUES (?, ?, ?)`,
		patientID, c.Name, c.Status)
	return err
}

// AddMedication records a medication for a patient.
func (r *Records) AddMedication(ctx context.Context, patientID int64, m Medication) error {
	if err := r.EnsurePatient(ctx, patientID); err != nil {
		return err
	}
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO medications (patient_id, name, dosage, frequency, active) VALUES (?, ?, ?, ?, ?)`,
		patientID, m.Name, m.Dosage, m.Frequency, m.Active)
	return err
}

// AddAllergy records an allergy for a patient.
func (r *Records) AddAllergy(ctx context.Context, patientID int64, a Allergy) error {
	if err := r.EnsurePatient(ctx, patientID); err != nil {
		return err
	}
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO allergies (patient_id, substance, reaction, severity) VALUES (?, ?, ?, ?)`,
		patientID, a.Substance, a.Reaction, a.Severity)
	return err
}

// Profile loads the patient's active conditions, active medications and
// allergies. A missing patient yields ErrNotFound.
func (r *Records) Profile(ctx context.Context, patientID int64) (Profile, error) {
	p, err := r.Patient(ctx, patientID)
	if err != nil {
		return Profile{}, err
	}
	prof := Profile{Patient: p}

	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT name, status FROM conditions WHERE patient_id = ? AND status != 'resolved' ORDER BY id`, patientID)
	if err != nil {
		return Profile{}, fmt.Errorf("loading conditions: %w", err)
	}
	for rows.Next() {
		var c Condition
		if err := rows.Scan(&c.Name, &c.Status); err != nil {
			rows.Close()
			return Profile{}, err
		}
		prof.Conditions = append(prof.Conditions, c)
	}
	rows.Close()

	rows, err = r.db.sql.QueryContext(ctx,
		`SELECT name, dosage, frequency, active FROM medications WHERE patient_id = ? AND active = 1 ORDER BY id`, patientID)
	if err != nil {
		return Profile{}, fmt.Errorf("loading medications: %w", err)
	}
	for rows.Next() {
		var m Medication
		if err := rows.Scan(&m.Name, &m.Dosage, &m.Frequency, &m.Active); err != nil {
			rows.Close()
			return Profile{}, err
		}
		prof.Medications = append(prof.Medications, m)
	}
	rows.Close()

	rows, err = r.db.sql.QueryContext(ctx,
		`SELECT substance, reaction, severity FROM allergies WHERE patient_id = ? ORDER BY id`, patientID)
	if err != nil {
		return Profile{}, fmt.Errorf("loading allergies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a Allergy
		if err := rows.Scan(&a.Substance, &a.Reaction, &a.Severity); err != nil {
			return Profile{}, err
		}
		prof.Allergies = append(prof.Allergies, a)
	}
	return prof, rows.Err()
}

// Summary renders the profile as the sections the model reads.
func (p Profile) Summary() string {
	var b strings.Builder

	b.WriteString("Active Conditions:\n")
	if len(p.Conditions) == 0 {
		b.WriteString("- None recorded\n")
	}
	for _, c := range p.Conditions {
		fmt.Fprintf(&b, "- %s (%s)\n", c.Name, c.Status)
	}

	b.WriteString("\nCurrent Medications:\n")
	if len(p.Medications) == 0 {
		b.WriteString("- None recorded\n")
	}
	for _, m := range p.Medications {
		line := m.Name
		if m.Dosage != "" {
			line += " " + m.Dosage
		}
		if m.Frequency != "" {
			line += ", " + m.Frequency
		}
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\nAllergies:\n")
	if len(p.Allergies) == 0 {
		b.WriteString("- No known allergies\n")
	}
	for _, a := range p.Allergies {
		line := a.Substance
		if a.Reaction != "" {
			line += " (" + a.Reaction + ")"
		}
		if a.Severity != "" {
			line += " [" + a.Severity + "]"
		}
		fmt.Fprintf(&b, "- %s\n", line)
	}
	return b.String()
}

// AddRecord stores a medical record and returns its id.
func (r *Records) AddRecord(ctx context.Context, rec MedicalRecord) (int64, error) {
	if err := r.EnsurePatient(ctx, rec.PatientID); err != nil {
		return 0, err
	}
	if rec.Kind == "" {
		rec.Kind = "note"
	}
	recorded := now()
	if !rec.RecordedAt.IsZero() {
		recorded = rec.RecordedAt.UTC().Format(time.DateTime)
	}
	res, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO medical_records (patient_id, kind, title, content, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		rec.PatientID, rec.Kind, rec.Title, rec.Content, recorded)
	if err != nil {
		return 0, fmt.Errorf("saving medical record: %w", err)
	}
	return res.LastInsertId()
}

// SearchRecords finds a patient's records matching any term of query,
// best match first. An empty query returns the most recent records.
func (r *Records) SearchRecords(ctx context.Context, patientID int64, query string, limit int) ([]MedicalRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	match := ftsQuery(query)
	if match == "" {
		return r.RecentRecords(ctx, patientID, limit)
	}

	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT mr.id, mr.patient_id, mr.kind, mr.title, mr.content, mr.recorded_at
		 FROM medical_records_fts
		 JOIN medical_records mr ON mr.id = medical_records_fts.rowid
		 WHERE medical_records_fts MATCH ?
		   AND mr.patient_id = ?
		 ORDER BY rank
		 LIMIT ?`,
		match, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("searching records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

// RecentRecords returns a patient's newest records.
func (r *Records) RecentRecords(ctx context.Context, patientID int64, limit int) ([]MedicalRecord, error) {
	if limit <= 0 {
		limit = 5
	}
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT id, patient_id, kind, title, content, recorded_at
		 FROM medical_records WHERE patient_id = ?
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows *sql.Rows) ([]MedicalRecord, error) {
	var out []MedicalRecord
	for rows.Next() {
		var rec MedicalRecord
		var recorded string
		if err := rows.Scan(&rec.ID, &rec.PatientID, &rec.Kind, &rec.Title, &rec.Content, &recorded); err != nil {
			return nil, err
		}
		rec.RecordedAt = parseTime(recorded)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ftsQuery turns free text into an FTS5 OR-query of quoted terms, so
// punctuation in user input can never be a syntax error.
func ftsQuery(q string) string {
	terms := strings.FieldsFunc(q, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, t := range terms {
		terms[i] = `"` + t + `"`
	}
	return strings.Join(terms, " OR ")
}

// SavePhysician adds a physician to the patient's contacts. created is false
// when a physician with the same name (case-insensitive) already exists.
func (r *Records) SavePhysician(ctx context.Context, p Physician) (created bool, err error) {
	if err := r.EnsurePatient(ctx, p.PatientID); err != nil {
		return false, err
	}
	res, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO physicians (patient_id, name, specialty, clinic, phone, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT DO NOTHING`,
		p.PatientID, p.Name, p.Specialty, p.Clinic, p.Phone, now())
	if err != nil {
		return false, fmt.Errorf("saving physician: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// SearchPhysicians matches query against name, specialty and clinic,
// case-insensitively.
func (r *Records) SearchPhysicians(ctx context.Context, patientID int64, query string) ([]Physician, error) {
	like := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT id, patient_id, name, specialty, clinic, phone FROM physicians
		 WHERE patient_id = ?
		   AND (lower(name) LIKE ? OR lower(specialty) LIKE ? OR lower(clinic) LIKE ?)
		 ORDER BY name`,
		patientID, like, like, like)
	if err != nil {
		return nil, fmt.Errorf("searching physicians: %w", err)
	}
	defer rows.Close()

	var out []Physician
	for rows.Next() {
		var p Physician
		if err := rows.Scan(&p.ID, &p.PatientID, &p.Name, &p.Specialty, &p.Clinic, &p.Phone); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// PatientContext builds the per-turn patient context and medical record
// snapshot shown to the model.
func (r *Records) PatientContext(ctx context.Context, userID int64, loc domain.Location) (string, string, error) {
	var pc strings.Builder
	fmt.Fprintf(&pc, "User ID: %d\n", userID)

	prof, err := r.Profile(ctx, userID)
	switch {
	case errors.Is(err, ErrNotFound):
		if loc.Known() {
			fmt.Fprintf(&pc, "Current location: %.5f, %.5f\n", loc.Lat, loc.Lon)
		}
		return pc.String(), "No medical record on file.", nil
	case err != nil:
		return "", "", err
	}

	fmt.Fprintf(&pc, "Name: %s\n", prof.Patient.Name)
	if prof.Patient.City != "" {
		fmt.Fprintf(&pc, "City: %s\n", prof.Patient.City)
	}
	if loc.Known() {
		fmt.Fprintf(&pc, "Current location: %.5f, %.5f\n", loc.Lat, loc.Lon)
	}

	var mr strings.Builder
	mr.WriteString(prof.Summary())

	recent, err := r.RecentRecords(ctx, userID, 3)
	if err != nil {
		return "", "", err
	}
	if len(recent) > 0 {
		mr.WriteString("\nRecent Records:\n")
		for _, rec := range recent {
			fmt.Fprintf(&mr, "- [%s] %s: %s\n", rec.RecordedAt.Format(time.DateOnly), rec.Title, truncate(rec.Content, 200))
		}
	}
	return pc.String(), mr.String(), nil
}

// truncate keeps at most n runes of s.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
