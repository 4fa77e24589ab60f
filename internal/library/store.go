// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package library persists exemplars from past decks so later drafts can
// draw on them without re-uploading. Only slide text is stored; drafts and
// briefs never are.
package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/proposal-drafter/pkg/types"
)

const (
	dbFile            = "library.db"
	defaultMaxResults = 20
)

// Store is the SQLite-backed exemplar library.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
	now        func() time.Time
}

// Open opens or creates the library database at cfg.Dir/library.db and
// creates the schema if it does not exist.
func Open(cfg types.LibraryConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("library directory not configured")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating library directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS decks (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			ingested_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS exemplars (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			deck TEXT NOT NULL REFERENCES decks(name) ON DELETE CASCADE,
			slide INTEGER NOT NULL,
			text TEXT NOT NULL,
			UNIQUE(deck, slide)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exemplars_deck ON exemplars(deck)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='exemplars_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		return nil
	}

	ftsStatements := []string{
		`CREATE VIRTUAL TABLE exemplars_fts USING fts5(text, content=exemplars, content_rowid=rowid)`,
		`CREATE TRIGGER exemplars_ai AFTER INSERT ON exemplars BEGIN
			INSERT INTO exemplars_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
		`CREATE TRIGGER exemplars_ad AFTER DELETE ON exemplars BEGIN
			INSERT INTO exemplars_fts(exemplars_fts, rowid, text) VALUES('delete', old.rowid, old.text);
		END`,
		`CREATE TRIGGER exemplars_au AFTER UPDATE ON exemplars BEGIN
			INSERT INTO exemplars_fts(exemplars_fts, rowid, text) VALUES('delete', old.rowid, old.text);
			INSERT INTO exemplars_fts(rowid, text) VALUES (new.rowid, new.text);
		END`,
	}
	for _, stmt := range ftsStatements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	return nil
}

// IngestResult reports the outcome of ingesting one deck.
type IngestResult struct {
	Deck      string
	Exemplars int
	// Replaced is true when the deck was already in the library.
	Replaced bool
}

// Ingest stores the exemplars of one deck, replacing any earlier version
// stored under the same name. A replaced deck moves to the end of the
// library order. Exemplars whose Deck differs from deck are rejected.
func (s *Store) Ingest(ctx context.Context, deck string, exemplars []types.Exemplar) (IngestResult, error) {
	if deck == "" {
		return IngestResult{}, fmt.Errorf("deck name is required")
	}
	for _, ex := range exemplars {
		if ex.Deck != deck {
			return IngestResult{}, fmt.Errorf("exemplar from %q cannot be stored under %q", ex.Deck, deck)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return IngestResult{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res := IngestResult{Deck: deck, Exemplars: len(exemplars)}

	// Delete exemplars explicitly so the FTS delete trigger fires for each row.
	if _, err := tx.ExecContext(ctx, `DELETE FROM exemplars WHERE deck = ?`, deck); err != nil {
		return IngestResult{}, fmt.Errorf("deleting old exemplars: %w", err)
	}
	del, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE name = ?`, deck)
	if err != nil {
		return IngestResult{}, fmt.Errorf("deleting old deck: %w", err)
	}
	if n, _ := del.RowsAffected(); n > 0 {
		res.Replaced = true
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO decks (name, ingested_at) VALUES (?, ?)`,
		deck, s.now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return IngestResult{}, fmt.Errorf("inserting deck: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO exemplars (deck, slide, text) VALUES (?, ?, ?)`)
	if err != nil {
		return IngestResult{}, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, ex := range exemplars {
		if _, err := stmt.ExecContext(ctx, deck, ex.Slide, ex.Text); err != nil {
			return IngestResult{}, fmt.Errorf("inserting slide %d of %s: %w", ex.Slide, deck, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return IngestResult{}, fmt.Errorf("committing: %w", err)
	}
	return res, nil
}

// Remove deletes a deck and its exemplars. It reports whether the deck existed.
func (s *Store) Remove(ctx context.Context, deck string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM exemplars WHERE deck = ?`, deck); err != nil {
		return false, fmt.Errorf("deleting exemplars: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM decks WHERE name = ?`, deck)
	if err != nil {
		return false, fmt.Errorf("deleting deck: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, tx.Commit()
}
