package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DailySummary is one day's rollup of a patient's vitals.
type DailySummary struct {
	PatientID int64   `json:"patientId"`
	Day       string  `json:"day"`
	Summary   string  `json:"summary"`
	AvgHR     float64 `json:"avgHr,omitempty"`
	AvgSpO2   float64 `json:"avgSpo2,omitempty"`
	Steps     int     `json:"steps,omitempty"`
}

// Goal is a patient health goal.
type Goal struct {
	ID          int64     `json:"id"`
	PatientID   int64     `json:"patientId"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Priority    string    `json:"priority"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"createdAt"`
}

// VitalReading is one sample from a wearable or manual entry. Zero means
// the measurement was not taken.
type VitalReading struct {
	ID         int64     `json:"id"`
	PatientID  int64     `json:"patientId"`
	HeartRate  int       `json:"heartRate,omitempty"`
	SpO2       int       `json:"spo2,omitempty"`
	Systolic   int       `json:"systolic,omitempty"`
	Diastolic  int       `json:"diastolic,omitempty"`
	Stress     int       `json:"stress,omitempty"`
	Steps      int       `json:"steps,omitempty"`
	Source     string    `json:"source"`
	RecordedAt time.Time `json:"recordedAt"`
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: v != 0}
}

// SaveSummary inserts or replaces the summary for (patient, day).
func (r *Records) SaveSummary(ctx context.Context, s DailySummary) error {
	if err := r.EnsurePatient(ctx, s.PatientID); err != nil {
		return err
	}
	if s.Day == "" {
		s.Day = time.Now().UTC().Format(time.DateOnly)
	}
	_, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO daily_summaries (patient_id, day, summary, avg_hr, avg_spo2, steps)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(patient_id, day) DO UPDATE SET
		   summary = excluded.summary,
		   avg_hr = excluded.avg_hr,
		   avg_spo2 = excluded.avg_spo2,
		   steps = excluded.steps`,
		s.PatientID, s.Day, s.Summary, nullFloat(s.AvgHR), nullFloat(s.AvgSpO2), nullInt(s.Steps))
	if err != nil {
		return fmt.Errorf("saving daily summary: %w", err)
	}
	return nil
}

// Summaries returns the summaries of the last days days, newest first.
func (r *Records) Summaries(ctx context.Context, patientID int64, days int) ([]DailySummary, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -(days - 1)).Format(time.DateOnly)
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT patient_id, day, summary, avg_hr, avg_spo2, steps
		 FROM daily_summaries WHERE patient_id = ? AND day >= ?
		 ORDER BY day DESC`,
		patientID, since)
	if err != nil {
		return nil, fmt.Errorf("loading summaries: %w", err)
	}
	defer rows.Close()

	var out []DailySummary
	for rows.Next() {
		var s DailySummary
		var hr, spo2 sql.NullFloat64
		var steps sql.NullInt64
		if err := rows.Scan(&s.PatientID, &s.Day, &s.Summary, &hr, &spo2, &steps); err != nil {
			return nil, err
		}
		s.AvgHR, s.AvgSpO2, s.Steps = hr.Float64, spo2.Float64, int(steps.Int64)
		out = append(out, s)
	}
	return out, rows.Err()
}

// AddGoal stores an active goal and returns its id.
func (r *Records) AddGoal(ctx context.Context, g Goal) (int64, error) {
	if err := r.EnsurePatient(ctx, g.PatientID); err != nil {
		return 0, err
	}
	if g.Category == "" {
		g.Category = "general"
	}
	if g.Priority == "" {
		g.Priority = "medium"
	}
	res, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO health_goals (patient_id, description, category, priority, status, created_at)
		 VALUES (?, ?, ?, ?, 'active', ?)`,
		g.PatientID, g.Description, g.Category, g.Priority, now())
	if err != nil {
		return 0, fmt.Errorf("saving goal: %w", err)
	}
	return res.LastInsertId()
}

// ActiveGoals lists a patient's active goals, high priority first.
func (r *Records) ActiveGoals(ctx context.Context, patientID int64) ([]Goal, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT id, patient_id, description, category, priority, status, created_at
		 FROM health_goals WHERE patient_id = ? AND status = 'active'
		 ORDER BY CASE priority WHEN 'high' THEN 0 WHEN 'medium' THEN 1 ELSE 2 END, id`,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("loading goals: %w", err)
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		var g Goal
		var created string
		if err := rows.Scan(&g.ID, &g.PatientID, &g.Description, &g.Category, &g.Priority, &g.Status, &created); err != nil {
			return nil, err
		}
		g.CreatedAt = parseTime(created)
		out = append(out, g)
	}
	return out, rows.Err()
}

// AddVital stores a vital reading and returns its id.
func (r *Records) AddVital(ctx context.Context, v VitalReading) (int64, error) {
	if err := r.EnsurePatient(ctx, v.PatientID); err != nil {
		return 0, err
	}
	if v.Source == "" {
		v.Source = "watch"
	}
	recorded := now()
	if !v.RecordedAt.IsZero() {
		recorded = v.RecordedAt.UTC().Format(time.DateTime)
	}
	res, err := r.db.sql.ExecContext(ctx,
		`INSERT INTO vital_readings
		   (patient_id, heart_rate, spo2, systolic, diastolic, stress, steps, source, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.PatientID, nullInt(v.HeartRate), nullInt(v.SpO2), nullInt(v.Systolic),
		nullInt(v.Diastolic), nullInt(v.Stress), nullInt(v.Steps), v.Source, recorded)
	if err != nil {
		return 0, fmt.Errorf("saving vital reading: %w", err)
	}
	return res.LastInsertId()
}

// VitalsSince returns readings recorded at or after since, newest first.
func (r *Records) VitalsSince(ctx context.Context, patientID int64, since time.Time) ([]VitalReading, error) {
	rows, err := r.db.sql.QueryContext(ctx,
		`SELECT id, patient_id, heart_rate, spo2, systolic, diastolic, stress, steps, source, recorded_at
		 FROM vital_readings WHERE patient_id = ? AND recorded_at >= ?
		 ORDER BY recorded_at DESC, id DESC`,
		patientID, since.UTC().Format(time.DateTime))
	if err != nil {
		return nil, fmt.Errorf("loading vitals: %w", err)
	}
	defer rows.Close()

	var out []VitalReading
	for rows.Next() {
		var v VitalReading
		var hr, spo2, sys, dia, stress, steps sql.NullInt64
		var recorded string
		if err := rows.Scan(&v.ID, &v.PatientID, &hr, &spo2, &sys, &dia, &stress, &steps, &v.Source, &recorded); err != nil {
			return nil, err
		}
		v.HeartRate, v.SpO2 = int(hr.Int64), int(spo2.Int64)
		v.Systolic, v.Diastolic = int(sys.Int64), int(dia.Int64)
		v.Stress, v.Steps = int(stress.Int64), int(steps.Int64)
		v.RecordedAt = parseTime(recorded)
		out = append(out, v)
	}
	return out, rows.Err()
}
