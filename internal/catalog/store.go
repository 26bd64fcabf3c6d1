// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog persists a history of conversion runs in a small SQLite
// database, so a site's drawing-to-MOVA conversions can be audited later.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/movalab/geomova/pkg/types"
)

const dbFile = "history.db"

// defaultLimit caps history listings when the caller does not set one.
const defaultLimit = 20

// Run is one recorded conversion.
type Run struct {
	ID        int64     `json:"id"`
	Time      time.Time `json:"time"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Format    string    `json:"format"`
	Scale     float64   `json:"scale"`
	Read      int       `json:"read"`
	Converted int       `json:"converted"`
	Skipped   int       `json:"skipped"`
	OK        bool      `json:"ok"`
	Error     string    `json:"error,omitempty"`
}

// Store manages the run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database under dir, creating the schema
// if it does not exist.
func Open(cfg types.CatalogConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = ".geomova"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening catalog database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating catalog schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		time TEXT NOT NULL,
		input TEXT NOT NULL,
		output TEXT NOT NULL,
		format TEXT NOT NULL,
		scale REAL NOT NULL,
		read_count INTEGER NOT NULL,
		converted INTEGER NOT NULL,
		skipped INTEGER NOT NULL,
		ok INTEGER NOT NULL,
		error TEXT
	)`)
	return err
}

// Record inserts one run.
func (s *Store) Record(ctx context.Context, r Run) error {
	when := r.Time
	if when.IsZero() {
		when = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (time, input, output, format, scale, read_count, converted, skipped, ok, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		when.Format(time.RFC3339), r.Input, r.Output, r.Format, r.Scale,
		r.Read, r.Converted, r.Skipped, r.OK, r.Error)
	if err != nil {
		return fmt.Errorf("recording run: %w", err)
	}
	return nil
}

// Recent returns the most recent runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, time, input, output, format, scale, read_count, converted, skipped, ok, error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var when string
		var errText sql.NullString
		if err := rows.Scan(&r.ID, &when, &r.Input, &r.Output, &r.Format, &r.Scale,
			&r.Read, &r.Converted, &r.Skipped, &r.OK, &errText); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		r.Time, _ = time.Parse(time.RFC3339, when)
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}
