package remotestore

// Schema is the DDL for the three remote tables, applied by
// `apply-desk migrate`.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS admin_settings (
		id             SERIAL PRIMARY KEY,
		apartment_id   TEXT UNIQUE NOT NULL,
		title          TEXT NOT NULL DEFAULT '',
		phones         TEXT[] NOT NULL DEFAULT '{}',
		emails         TEXT[] NOT NULL DEFAULT '{}',
		apartment_name TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id                 SERIAL PRIMARY KEY,
		application_number TEXT UNIQUE NOT NULL,
		name               TEXT NOT NULL,
		phone              TEXT NOT NULL,
		work_type          TEXT,
		work_type_display  TEXT,
		start_date         DATE,
		description        TEXT,
		privacy            BOOLEAN NOT NULL DEFAULT TRUE,
		submitted_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS notification_logs (
		id             UUID PRIMARY KEY,
		application_id TEXT NOT NULL,
		channel        TEXT NOT NULL,
		provider       TEXT NOT NULL,
		recipient      TEXT,
		status         TEXT NOT NULL,
		error          TEXT,
		timestamp      TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notification_logs_application ON notification_logs (application_id)`,
}
