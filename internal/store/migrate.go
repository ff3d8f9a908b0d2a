package store

import "context"

// schema creates the portal tables. The partial unique index on
// file_records makes the handwriting-sample replace-or-create an atomic
// upsert instead of a racy read-then-write.
const schema = `
CREATE TABLE IF NOT EXISTS students (
	id            TEXT PRIMARY KEY,
	erp_id        TEXT NOT NULL DEFAULT '',
	name          TEXT NOT NULL,
	email         TEXT UNIQUE NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT 'student',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS file_records (
	id           TEXT PRIMARY KEY,
	owner_id     TEXT NOT NULL,
	owner_name   TEXT NOT NULL DEFAULT '',
	category     TEXT NOT NULL,
	content      BYTEA NOT NULL,
	content_type TEXT NOT NULL,
	file_name    TEXT NOT NULL,
	uploaded_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	marks        DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS idx_file_records_owner_category
	ON file_records(owner_id, category);

CREATE UNIQUE INDEX IF NOT EXISTS uniq_handwriting_sample
	ON file_records(owner_id) WHERE category = 'handwriting_sample';

CREATE TABLE IF NOT EXISTS attendance_entries (
	id           TEXT PRIMARY KEY,
	student_id   TEXT NOT NULL,
	student_name TEXT NOT NULL DEFAULT '',
	day          TEXT NOT NULL,
	captured_at  TIMESTAMPTZ NOT NULL,
	subject      TEXT NOT NULL,
	status       TEXT NOT NULL,
	confidence   DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance_entries(day);

CREATE TABLE IF NOT EXISTS comparison_jobs (
	id           TEXT PRIMARY KEY,
	student_id   TEXT NOT NULL,
	status       TEXT NOT NULL DEFAULT 'pending',
	similarity   DOUBLE PRECISION,
	verdict      TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);
`

// Migrate applies the schema. Safe to run on every startup.
func (d *DB) Migrate(ctx context.Context) error {
	if d == nil || d.Client == nil {
		return nil
	}
	_, err := d.Client.ExecContext(ctx, schema)
	return err
}
