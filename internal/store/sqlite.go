package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/TimurManjosov/licadvisor/internal/rules"
	_ "modernc.org/sqlite"
)

type migration struct {
	sql     string
	version int
}

var sqliteMigrations = []migration{
	{
		version: 1,
		sql: `
			CREATE TABLE requirements (
				id         TEXT PRIMARY KEY,
				position   INTEGER NOT NULL,
				title      TEXT NOT NULL,
				desc_en    TEXT NOT NULL DEFAULT '',
				desc_he    TEXT NOT NULL DEFAULT '',
				authority  TEXT NOT NULL,
				priority   TEXT NOT NULL,
				source_ref TEXT NOT NULL DEFAULT '',
				triggers   TEXT NOT NULL DEFAULT '{}',
				updated_at INTEGER NOT NULL DEFAULT (unixepoch())
			);

			CREATE INDEX idx_requirements_position ON requirements(position);
		`,
	},
}

// SQLiteStore is a SQLite implementation of the Store interface, backed by
// the pure-Go modernc.org/sqlite driver.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn and applies migrations.
// Use ":memory:" for a throwaway database.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serializes writers.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to execute pragma %s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate(ctx context.Context) error {
	var current int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&current); err != nil {
		return fmt.Errorf("failed to get current database version: %w", err)
	}

	for _, m := range sqliteMigrations {
		if m.version <= current {
			continue
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", m.version, err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", m.version)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update database version to %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.version, err)
		}
	}
	return nil
}

// ListRules returns every rule ordered by catalog position.
func (s *SQLiteStore) ListRules(ctx context.Context) ([]rules.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM requirements ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]rules.Rule, 0)
	for rows.Next() {
		r, err := scanSQLRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRule retrieves a single rule by id.
func (s *SQLiteStore) GetRule(ctx context.Context, id string) (*rules.Rule, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM requirements WHERE id = ?`, id)
	r, err := scanSQLRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRuleNotFound
		}
		return nil, err
	}
	return &r, nil
}

// ReplaceAll deletes the stored catalog and inserts the new one in a single transaction.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, catalog []rules.Rule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM requirements`); err != nil {
		return fmt.Errorf("clear requirements: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO requirements
		(id, position, title, desc_en, desc_he, authority, priority, source_ref, triggers)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range catalog {
		trig, err := encodeTriggers(r.Triggers)
		if err != nil {
			return fmt.Errorf("rule %q: %w", r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, i, r.Title, r.DescEN, r.DescHE,
			r.Authority, string(r.Priority), r.SourceRef, string(trig)); err != nil {
			return fmt.Errorf("insert rule %q: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLRule(row rowScanner) (rules.Rule, error) {
	var (
		r        rules.Rule
		priority string
		trig     string
	)
	if err := row.Scan(&r.ID, &r.Title, &r.DescEN, &r.DescHE, &r.Authority, &priority, &r.SourceRef, &trig); err != nil {
		return rules.Rule{}, err
	}
	r.Priority = rules.Priority(priority)

	t, err := decodeTriggers([]byte(trig))
	if err != nil {
		return rules.Rule{}, fmt.Errorf("rule %q: %w", r.ID, err)
	}
	r.Triggers = t
	return r, nil
}
