package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create patients and profile tables",
		SQL: `
			CREATE TABLE patients (
				id          INTEGER PRIMARY KEY,
				name        TEXT NOT NULL,
				phone       TEXT NOT NULL DEFAULT '',
				city        TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE conditions (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id  INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				status      TEXT NOT NULL DEFAULT 'active',
				noted_at    TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE TABLE medications (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id  INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				dosage      TEXT NOT NULL DEFAULT '',
				frequency   TEXT NOT NULL DEFAULT '',
				active      INTEGER NOT NULL DEFAULT 1
			);

			CREATE TABLE allergies (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id  INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				substance   TEXT NOT NULL,
				reaction    TEXT NOT NULL DEFAULT '',
				severity    TEXT NOT NULL DEFAULT ''
			);

			CREATE INDEX idx_conditions_patient ON conditions (patient_id);
			CREATE INDEX idx_medications_patient ON medications (patient_id);
			CREATE INDEX idx_allergies_patient ON allergies (patient_id);
		`,
	},
	{
		Version: 2,
		Name:    "create medical records with FTS5",
		SQL: `
			CREATE TABLE medical_records (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id  INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				kind        TEXT NOT NULL DEFAULT 'note',
				title       TEXT NOT NULL DEFAULT '',
				content     TEXT NOT NULL,
				recorded_at TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_records_patient ON medical_records (patient_id, recorded_at);

			CREATE VIRTUAL TABLE medical_records_fts USING fts5(
				title,
				content,
				content='medical_records',
				content_rowid='id'
			);

			CREATE TRIGGER medical_records_ai AFTER INSERT ON medical_records BEGIN
				INSERT INTO medical_records_fts(rowid, title, content)
				VALUES (new.id, new.title, new.content);
			END;

			CREATE TRIGGER medical_records_ad AFTER DELETE ON medical_records BEGIN
				INSERT INTO medical_records_fts(medical_records_fts, rowid, title, content)
				VALUES ('delete', old.id, old.title, old.content);
			END;

			CREATE TRIGGER medical_records_au AFTER UPDATE ON medical_records BEGIN
				INSERT INTO medical_records_fts(medical_records_fts, rowid, title, content)
				VALUES ('delete', old.id, old.title, old.content);
				INSERT INTO medical_records_fts(rowid, title, content)
				VALUES (new.id, new.title, new.content);
			END;
		`,
	},
	{
		Version: 3,
		Name:    "create physicians, summaries, goals and vitals",
		SQL: `
			CREATE TABLE physicians (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id  INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				specialty   TEXT NOT NULL DEFAULT '',
				clinic      TEXT NOT NULL DEFAULT '',
				phone       TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE UNIQUE INDEX idx_physicians_name ON physicians (patient_id, name COLLATE NOCASE);

			CREATE TABLE daily_summaries (
				patient_id  INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				day         TEXT NOT NULL,
				summary     TEXT NOT NULL,
				avg_hr      REAL,
				avg_spo2    REAL,
				steps       INTEGER,
				PRIMARY KEY (patient_id, day)
			);

			CREATE TABLE health_goals (
				id          INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id  INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				description TEXT NOT NULL,
				category    TEXT NOT NULL DEFAULT 'general',
				priority    TEXT NOT NULL DEFAULT 'medium',
				status      TEXT NOT NULL DEFAULT 'active',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_goals_patient ON health_goals (patient_id, status);

			CREATE TABLE vital_readings (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id    INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				heart_rate    INTEGER,
				spo2          INTEGER,
				systolic      INTEGER,
				diastolic     INTEGER,
				stress        INTEGER,
				steps         INTEGER,
				source        TEXT NOT NULL DEFAULT 'watch',
				recorded_at   TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_vitals_patient ON vital_readings (patient_id, recorded_at);
		`,
	},
	{
		Version: 4,
		Name:    "create emergency contacts and events",
		SQL: `
			CREATE TABLE emergency_contacts (
				id           INTEGER PRIMARY KEY AUTOINCREMENT,
				patient_id   INTEGER NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
				name         TEXT NOT NULL,
				relationship TEXT NOT NULL DEFAULT '',
				phone        TEXT NOT NULL,
				priority     INTEGER NOT NULL DEFAULT 1
			);

			CREATE INDEX idx_contacts_patient ON emergency_contacts (patient_id, priority);

			CREATE TABLE emergency_events (
				id          TEXT PRIMARY KEY,
				patient_id  INTEGER NOT NULL,
				kind        TEXT NOT NULL,
				severity    TEXT NOT NULL,
				details     TEXT NOT NULL DEFAULT '',
				location    TEXT NOT NULL DEFAULT '',
				created_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_events_patient ON emergency_events (patient_id, created_at);
		`,
	},
	{
		Version: 5,
		Name:    "create conversation checkpoints",
		SQL: `
			CREATE TABLE conversations (
				thread_id   TEXT PRIMARY KEY,
				user_id     INTEGER NOT NULL DEFAULT 0,
				state       TEXT NOT NULL,
				created_at  TEXT NOT NULL DEFAULT (datetime('now')),
				updated_at  TEXT NOT NULL DEFAULT (datetime('now'))
			);

			CREATE INDEX idx_conversations_user ON conversations (user_id, updated_at);
		`,
	},
}
