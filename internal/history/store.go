package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store manages history persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database and applies
// migrations.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Record inserts a freshly submitted command.
func (s *Store) Record(ctx context.Context, entry Entry) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO command_history (id, kind, input_id, layer, submitted_at, status, detail)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Kind,
		entry.InputID,
		entry.Layer,
		entry.SubmittedAt.UTC().Format(time.RFC3339Nano),
		entry.Status,
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("record command: %w", err)
	}
	return nil
}

// Resolve stamps a terminal status onto a previously recorded command.
func (s *Store) Resolve(ctx context.Context, id, status, detail string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE command_history SET status = ?, detail = ?, resolved_at = ? WHERE id = ?`,
		status,
		detail,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("resolve command %s: %w", id, err)
	}
	return nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, kind, input_id, layer, submitted_at, resolved_at, status, detail
         FROM command_history ORDER BY submitted_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var submitted string
		var resolved sql.NullString
		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.InputID, &entry.Layer, &submitted, &resolved, &entry.Status, &entry.Detail); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if entry.SubmittedAt, err = time.Parse(time.RFC3339Nano, submitted); err != nil {
			return nil, fmt.Errorf("parse submitted_at: %w", err)
		}
		if resolved.Valid {
			ts, err := time.Parse(time.RFC3339Nano, resolved.String)
			if err != nil {
				return nil, fmt.Errorf("parse resolved_at: %w", err)
			}
			entry.ResolvedAt = &ts
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune removes entries older than the cutoff.
func (s *Store) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx, `DELETE FROM command_history WHERE submitted_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return res.RowsAffected()
}

// SaveProfile inserts or updates a named connection target.
func (s *Store) SaveProfile(ctx context.Context, profile Profile) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO connection_profiles (name, host, port, updated_at) VALUES (?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET host = excluded.host, port = excluded.port, updated_at = excluded.updated_at`,
		profile.Name,
		profile.Host,
		profile.Port,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("save profile %s: %w", profile.Name, err)
	}
	return nil
}

// GetProfile fetches a profile by name.
func (s *Store) GetProfile(ctx context.Context, name string) (*Profile, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT name, host, port, updated_at FROM connection_profiles WHERE name = ?`,
		name,
	)
	var profile Profile
	var updated string
	if err := row.Scan(&profile.Name, &profile.Host, &profile.Port, &updated); err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("profile %s not found", name)
		}
		return nil, fmt.Errorf("get profile %s: %w", name, err)
	}
	var err error
	if profile.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &profile, nil
}

// ListProfiles returns all saved profiles ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, host, port, updated_at FROM connection_profiles ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()

	var profiles []Profile
	for rows.Next() {
		var profile Profile
		var updated string
		if err := rows.Scan(&profile.Name, &profile.Host, &profile.Port, &updated); err != nil {
			return nil, fmt.Errorf("scan profile row: %w", err)
		}
		if profile.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parse updated_at: %w", err)
		}
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes a saved profile.
func (s *Store) DeleteProfile(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM connection_profiles WHERE name = ?`, name); err != nil {
		return fmt.Errorf("delete profile %s: %w", name, err)
	}
	return nil
}
