package history

import (
	"context"
	"fmt"
	"time"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS command_history (
        id TEXT PRIMARY KEY,
        kind TEXT NOT NULL,
        input_id TEXT NOT NULL DEFAULT '',
        layer INTEGER NOT NULL DEFAULT 0,
        submitted_at TEXT NOT NULL,
        resolved_at TEXT,
        status TEXT NOT NULL,
        detail TEXT NOT NULL DEFAULT ''
    )`,
	`CREATE INDEX IF NOT EXISTS idx_command_history_submitted ON command_history(submitted_at)`,
	`CREATE TABLE IF NOT EXISTS connection_profiles (
        name TEXT PRIMARY KEY,
        host TEXT NOT NULL,
        port INTEGER NOT NULL,
        updated_at TEXT NOT NULL
    )`,
}

func (s *Store) applyMigrations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL
    )`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`)
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for version := current; version < len(migrations); version++ {
		statement := migrations[version]
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply migration %d: %w", version+1, err)
		}
		if _, err := s.db.ExecContext(
			ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)`,
			version+1,
			time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("record migration %d: %w", version+1, err)
		}
	}
	return nil
}
