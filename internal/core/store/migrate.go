package store

import (
	"context"
	"fmt"
)

// Column types are the common subset of SQLite and PostgreSQL. Timestamps
// are unix milliseconds; flags are 0 or 1.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS monitor_memory (
		monitor TEXT NOT NULL,
		key TEXT NOT NULL,
		value INTEGER NOT NULL,
		updated_at BIGINT NOT NULL,
		PRIMARY KEY (monitor, key)
	);`,
	`CREATE TABLE IF NOT EXISTS monitor_activity (
		monitor TEXT PRIMARY KEY,
		last_check_at BIGINT,
		last_event_at BIGINT,
		last_error_at BIGINT,
		last_error TEXT
	);`,
	`CREATE TABLE IF NOT EXISTS monitor_events (
		id TEXT PRIMARY KEY,
		monitor TEXT NOT NULL,
		domain TEXT NOT NULL,
		check_type TEXT NOT NULL,
		value INTEGER NOT NULL,
		created_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_monitor_events_recent ON monitor_events(monitor, created_at);`,
	`CREATE TABLE IF NOT EXISTS monitor_logs (
		id TEXT PRIMARY KEY,
		monitor TEXT NOT NULL,
		level TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at BIGINT NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_monitor_logs_recent ON monitor_logs(monitor, created_at);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.ready(); err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
