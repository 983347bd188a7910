package database

import (
	"fmt"
)

// schema is applied on startup. CREATE IF NOT EXISTS keeps it idempotent, so
// re-running a batch against an existing database is safe.
const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    company_ids TEXT NOT NULL,
    documents_total INTEGER NOT NULL DEFAULT 0,
    documents_failed INTEGER NOT NULL DEFAULT 0,
    records_total INTEGER NOT NULL DEFAULT 0,
    validation_ok INTEGER NOT NULL DEFAULT 1
);

CREATE TABLE IF NOT EXISTS lifecycle_records (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    vehicle_key TEXT NOT NULL,
    status TEXT NOT NULL,
    inbound_value REAL NOT NULL,
    outbound_value REAL NOT NULL,
    profit REAL NOT NULL,
    inbound_date TIMESTAMP,
    outbound_date TIMESTAMP,
    reference_date TIMESTAMP,
    inbound_document TEXT,
    outbound_document TEXT,
    chassis TEXT,
    plate TEXT,
    model TEXT
);

CREATE INDEX IF NOT EXISTS idx_lifecycle_run ON lifecycle_records(run_id);
CREATE INDEX IF NOT EXISTS idx_lifecycle_key ON lifecycle_records(vehicle_key);

CREATE TABLE IF NOT EXISTS audit_alerts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    direction TEXT NOT NULL,
    vehicle_key TEXT NOT NULL,
    kind TEXT NOT NULL,
    source_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_alerts_run ON audit_alerts(run_id);
`

// Migrate creates the schema if it does not exist yet
func (db *DB) Migrate() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	db.logger.Info("Database schema ready")
	return nil
}
