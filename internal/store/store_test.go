package store

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/agent"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/domain"
	"github.com/Hafez-Al-Khatib/AEGIS-New/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ agent.StateStore = (*CheckpointStore)(nil)
var _ agent.ContextProvider = (*Records)(nil)

func testDB(t *testing.T) *DB {
	t.Helper()
	log := logging.New(nil, "silent")
	db, err := Open(":memory:", log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func testRecords(t *testing.T) *Records {
	t.Helper()
	return NewRecords(testDB(t))
}

// --- DB/Migration tests ---

func TestOpen_InMemory(t *testing.T) {
	db := testDB(t)
	assert.NotNil(t, db)
	assert.NotNil(t, db.SQL())
}

func TestOpen_NilLogger(t *testing.T) {
	db, err := Open(":memory:", nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestMigrations_Applied(t *testing.T) {
	db := testDB(t)

	var count int
	err := db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)

	v, err := db.Version()
	require.NoError(t, err)
	assert.Equal(t, migrations[len(migrations)-1].Version, v)
}

func TestMigrations_Idempotent(t *testing.T) {
	db := testDB(t)

	// Running migrate again should be a no-op
	err := db.migrate(context.Background())
	require.NoError(t, err)

	var count int
	err = db.sql.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), count)
}

func TestStats(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r := NewRecords(db)

	s, err := db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{}, s)

	require.NoError(t, r.UpsertPatient(ctx, Patient{ID: 3, Name: "Karim"}))
	_, err = r.LogEmergency(ctx, EmergencyEvent{PatientID: 3, Kind: "call", Details: "test"})
	require.NoError(t, err)

	s, err = db.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Patients)
	assert.Equal(t, 1, s.EmergencyEvents)
	assert.Equal(t, 0, s.Conversations)
}

func TestSchema_TablesExist(t *testing.T) {
	db := testDB(t)

	tables := []string{
		"patients", "conditions", "medications", "allergies",
		"medical_records", "medical_records_fts",
		"physicians", "daily_summaries", "health_goals", "vital_readings",
		"emergency_contacts", "emergency_events", "conversations",
	}
	for _, table := range tables {
		var name string
		err := db.sql.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestOpen_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "aegis.db")
	ctx := context.Background()

	db, err := Open(path, nil)
	require.NoError(t, err)
	require.NoError(t, NewRecords(db).UpsertPatient(ctx, Patient{ID: 7, Name: "Rania"}))
	require.NoError(t, db.Close())

	db, err = Open(path, nil)
	require.NoError(t, err)
	defer db.Close()

	p, err := NewRecords(db).Patient(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "Rania", p.Name)
}

// --- Patient / profile tests ---

func TestPatient_NotFound(t *testing.T) {
	r := testRecords(t)
	_, err := r.Patient(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = r.Profile(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpsertPatient_Updates(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	require.NoError(t, r.UpsertPatient(ctx, Patient{ID: 1, Name: "Old", City: "Tyre"}))
	require.NoError(t, r.UpsertPatient(ctx, Patient{ID: 1, Name: "New", City: "Beirut"}))

	p, err := r.Patient(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "New", p.Name)
	assert.Equal(t, "Beirut", p.City)
}

func TestEnsurePatient_KeepsExisting(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	require.NoError(t, r.UpsertPatient(ctx, Patient{ID: 1, Name: "Maya"}))
	require.NoError(t, r.EnsurePatient(ctx, 1))
	require.NoError(t, r.EnsurePatient(ctx, 2))

	p, err := r.Patient(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Maya", p.Name)

	p, err = r.Patient(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Patient 2", p.Name)
}

func TestProfile(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	require.NoError(t, r.UpsertPatient(ctx, Patient{ID: 1, Name: "Maya"}))
	require.NoError(t, r.AddCondition(ctx, 1, Condition{Name: "Type 2 diabetes"}))
	require.NoError(t, r.AddCondition(ctx, 1, Condition{Name: "Bronchitis", Status: "resolved"}))
	require.NoError(t, r.AddMedication(ctx, 1, Medication{Name: "Metformin", Dosage: "500mg", Frequency: "twice daily", Active: true}))
	require.NoError(t, r.AddMedication(ctx, 1, Medication{Name: "Amoxicillin", Active: false}))
	require.NoError(t, r.AddAllergy(ctx, 1, Allergy{Substance: "Penicillin", Reaction: "rash", Severity: "moderate"}))

	prof, err := r.Profile(ctx, 1)
	require.NoError(t, err)

	require.Len(t, prof.Conditions, 1)
	assert.Equal(t, "Type 2 diabetes", prof.Conditions[0].Name)
	assert.Equal(t, "active", prof.Conditions[0].Status)
	require.Len(t, prof.Medications, 1)
	assert.Equal(t, "Metformin", prof.Medications[0].Name)
	require.Len(t, prof.Allergies, 1)

	summary := prof.Summary()
	assert.Contains(t, summary, "- Type 2 diabetes (active)")
	assert.Contains(t, summary, "- Metformin 500mg, twice daily")
	assert.Contains(t, summary, "- Penicillin (rash) [moderate]")
	assert.NotContains(t, summary, "Bronchitis")
}

func TestProfile_EmptySummary(t *testing.T) {
	s := Profile{}.Summary()
	assert.Contains(t, s, "- None recorded")
	assert.Contains(t, s, "- No known allergies")
}

// --- Medical record tests ---

func TestSearchRecords(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	_, err := r.AddRecord(ctx, MedicalRecord{PatientID: 1, Kind: "lab", Title: "HbA1c panel", Content: "HbA1c 7.2 percent, fasting glucose elevated"})
	require.NoError(t, err)
	_, err = r.AddRecord(ctx, MedicalRecord{PatientID: 1, Title: "Cardiology visit", Content: "Echocardiogram normal"})
	require.NoError(t, err)
	_, err = r.AddRecord(ctx, MedicalRecord{PatientID: 2, Title: "Other patient", Content: "glucose normal"})
	require.NoError(t, err)

	got, err := r.SearchRecords(ctx, 1, "glucose", 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "HbA1c panel", got[0].Title)
	assert.Equal(t, "lab", got[0].Kind)
	assert.False(t, got[0].RecordedAt.IsZero())
}

func TestSearchRecords_PunctuationIsSafe(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	_, err := r.AddRecord(ctx, MedicalRecord{PatientID: 1, Title: "BP log", Content: "blood pressure 150/95"})
	require.NoError(t, err)

	got, err := r.SearchRecords(ctx, 1, `"blood-pressure" AND (`, 5)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearchRecords_EmptyQueryReturnsRecent(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, title := range []string{"first", "second", "third"} {
		_, err := r.AddRecord(ctx, MedicalRecord{PatientID: 1, Title: title, Content: "x", RecordedAt: base.AddDate(0, 0, i)})
		require.NoError(t, err)
	}

	got, err := r.SearchRecords(ctx, 1, "  ", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Title)
	assert.Equal(t, "second", got[1].Title)
}

func TestFTSQuery(t *testing.T) {
	assert.Equal(t, `"chest" OR "pain"`, ftsQuery("chest pain!"))
	assert.Equal(t, "", ftsQuery(" -- "))
}

// --- Physician tests ---

func TestSavePhysician_Dedupes(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	created, err := r.SavePhysician(ctx, Physician{PatientID: 1, Name: "Dr. Khoury", Specialty: "Cardiology"})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = r.SavePhysician(ctx, Physician{PatientID: 1, Name: "dr. khoury"})
	require.NoError(t, err)
	assert.False(t, created)

	// Same name for another patient is a different entry.
	created, err = r.SavePhysician(ctx, Physician{PatientID: 2, Name: "Dr. Khoury"})
	require.NoError(t, err)
	assert.True(t, created)
}

func TestSearchPhysicians(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	_, err := r.SavePhysician(ctx, Physician{PatientID: 1, Name: "Dr. Haddad", Specialty: "Endocrinology", Clinic: "AUBMC"})
	require.NoError(t, err)
	_, err = r.SavePhysician(ctx, Physician{PatientID: 1, Name: "Dr. Saab", Specialty: "Cardiology"})
	require.NoError(t, err)

	got, err := r.SearchPhysicians(ctx, 1, "cardio")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Dr. Saab", got[0].Name)

	got, err = r.SearchPhysicians(ctx, 1, "aubmc")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = r.SearchPhysicians(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

// --- Summary / goal / vitals tests ---

func TestSaveSummary_Upserts(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()
	today := time.Now().UTC().Format(time.DateOnly)
	old := time.Now().UTC().AddDate(0, 0, -30).Format(time.DateOnly)

	require.NoError(t, r.SaveSummary(ctx, DailySummary{PatientID: 1, Day: today, Summary: "draft"}))
	require.NoError(t, r.SaveSummary(ctx, DailySummary{PatientID: 1, Day: today, Summary: "final", AvgHR: 72.5, Steps: 8000}))
	require.NoError(t, r.SaveSummary(ctx, DailySummary{PatientID: 1, Day: old, Summary: "old"}))

	got, err := r.Summaries(ctx, 1, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "final", got[0].Summary)
	assert.InDelta(t, 72.5, got[0].AvgHR, 0.001)
	assert.Equal(t, 8000, got[0].Steps)
	assert.Zero(t, got[0].AvgSpO2)
}

func TestGoals(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	_, err := r.AddGoal(ctx, Goal{PatientID: 1, Description: "Walk 8000 steps", Priority: "low"})
	require.NoError(t, err)
	_, err = r.AddGoal(ctx, Goal{PatientID: 1, Description: "Lower HbA1c", Category: "diabetes", Priority: "high"})
	require.NoError(t, err)

	got, err := r.ActiveGoals(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lower HbA1c", got[0].Description)
	assert.Equal(t, "general", got[1].Category)
	assert.Equal(t, "active", got[1].Status)
}

func TestVitalsSince(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := r.AddVital(ctx, VitalReading{PatientID: 1, HeartRate: 80, RecordedAt: now.Add(-48 * time.Hour)})
	require.NoError(t, err)
	_, err = r.AddVital(ctx, VitalReading{PatientID: 1, HeartRate: 120, SpO2: 93, RecordedAt: now.Add(-time.Hour)})
	require.NoError(t, err)

	got, err := r.VitalsSince(ctx, 1, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 120, got[0].HeartRate)
	assert.Equal(t, 93, got[0].SpO2)
	assert.Zero(t, got[0].Systolic)
	assert.Equal(t, "watch", got[0].Source)
}

// --- Emergency tests ---

func TestEmergencyContacts_Ordered(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	_, err := r.AddEmergencyContact(ctx, EmergencyContact{PatientID: 1, Name: "Sami", Phone: "+9613000002", Priority: 2})
	require.NoError(t, err)
	_, err = r.AddEmergencyContact(ctx, EmergencyContact{PatientID: 1, Name: "Lina", Relationship: "sister", Phone: "+9613000001"})
	require.NoError(t, err)

	got, err := r.EmergencyContacts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Lina", got[0].Name)
	assert.Equal(t, 1, got[0].Priority)
}

func TestLogEmergency(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	ev, err := r.LogEmergency(ctx, EmergencyEvent{PatientID: 1, Kind: "vitals", Severity: "critical", Details: "SpO2 85"})
	require.NoError(t, err)
	assert.Len(t, ev.ID, 36)

	got, err := r.EmergencyEvents(ctx, 1, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, ev.ID, got[0].ID)
	assert.Equal(t, "critical", got[0].Severity)
	assert.WithinDuration(t, ev.CreatedAt, got[0].CreatedAt, time.Second)
}

// --- Context provider tests ---

func TestPatientContext_Unknown(t *testing.T) {
	r := testRecords(t)

	pc, mr, err := r.PatientContext(context.Background(), 42, domain.Location{})
	require.NoError(t, err)
	assert.Equal(t, "User ID: 42\n", pc)
	assert.Equal(t, "No medical record on file.", mr)
}

func TestPatientContext_Known(t *testing.T) {
	r := testRecords(t)
	ctx := context.Background()

	require.NoError(t, r.UpsertPatient(ctx, Patient{ID: 1, Name: "Maya", City: "Beirut"}))
	require.NoError(t, r.AddCondition(ctx, 1, Condition{Name: "Asthma"}))
	_, err := r.AddRecord(ctx, MedicalRecord{PatientID: 1, Title: "Spirometry", Content: "FEV1 82 percent"})
	require.NoError(t, err)

	pc, mr, err := r.PatientContext(ctx, 1, domain.Location{Lat: 33.8938, Lon: 35.5018})
	require.NoError(t, err)
	assert.Contains(t, pc, "Name: Maya")
	assert.Contains(t, pc, "City: Beirut")
	assert.Contains(t, pc, "Current location: 33.89380, 35.50180")
	assert.Contains(t, mr, "- Asthma (active)")
	assert.Contains(t, mr, "Spirometry: FEV1 82 percent")
}

func TestTruncate_RuneSafe(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "مرحب...", truncate("مرحبا", 4))
	assert.True(t, utf8.ValidString(truncate(strings.Repeat("é", 300), 200)))
}

// --- Checkpoint store tests ---

func TestCheckpoint_SaveLoad(t *testing.T) {
	cs := NewCheckpointStore(testDB(t))
	ctx := context.Background()

	state := domain.ConversationState{
		ThreadID:     "t-1",
		UserID:       1,
		History:      []domain.Message{domain.User("hi"), domain.Assistant("hello")},
		Iterations:   1,
		UserLocation: domain.Location{Lat: 33.9, Lon: 35.5},
	}
	require.NoError(t, cs.Save(ctx, state))

	got, ok, err := cs.Load(ctx, "t-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(1), got.UserID)
	require.Len(t, got.History, 2)
	assert.Equal(t, "hello", got.History[1].Text)
	assert.Equal(t, state.UserLocation, got.UserLocation)
}

func TestCheckpoint_LoadMissing(t *testing.T) {
	cs := NewCheckpointStore(testDB(t))
	_, ok, err := cs.Load(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckpoint_SaveReplaces(t *testing.T) {
	cs := NewCheckpointStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, cs.Save(ctx, domain.ConversationState{ThreadID: "t", History: []domain.Message{domain.User("a")}}))
	require.NoError(t, cs.Save(ctx, domain.ConversationState{ThreadID: "t", History: []domain.Message{domain.User("a"), domain.Assistant("b")}}))

	got, ok, err := cs.Load(ctx, "t")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, got.History, 2)

	ids, err := cs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t"}, ids)
}

func TestCheckpoint_EmptyThreadID(t *testing.T) {
	cs := NewCheckpointStore(testDB(t))
	assert.Error(t, cs.Save(context.Background(), domain.ConversationState{}))
}

func TestCheckpoint_DeleteAndList(t *testing.T) {
	cs := NewCheckpointStore(testDB(t))
	ctx := context.Background()

	require.NoError(t, cs.Save(ctx, domain.ConversationState{ThreadID: "a", UserID: 1}))
	require.NoError(t, cs.Save(ctx, domain.ConversationState{ThreadID: "b", UserID: 2}))

	mine, err := cs.ListForUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, mine)

	require.NoError(t, cs.Delete(ctx, "a"))
	require.NoError(t, cs.Delete(ctx, "missing"))

	ids, err := cs.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestCheckpoint_LoadReturnsCopy(t *testing.T) {
	db := testDB(t)
	cs := NewCheckpointStore(db)
	ctx := context.Background()

	state := domain.ConversationState{ThreadID: "x", History: []domain.Message{domain.User("q")}}
	require.NoError(t, cs.Save(ctx, state))

	// Loaded copies are independent of later saves.
	got, _, err := cs.Load(ctx, "x")
	require.NoError(t, err)
	got.History = append(got.History, domain.Assistant("r"))

	again, _, err := cs.Load(ctx, "x")
	require.NoError(t, err)
	assert.Len(t, again.History, 1)
}
