// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// DeckSummary describes one stored deck.
type DeckSummary struct {
	Name       string    `json:"name" yaml:"name"`
	Exemplars  int       `json:"exemplars" yaml:"exemplars"`
	IngestedAt time.Time `json:"ingested_at" yaml:"ingested_at"`
}

// SearchResult is an exemplar matched by a full-text query.
type SearchResult struct {
	types.Exemplar `yaml:",inline"`
	// Rank is the FTS5 bm25 rank; lower is more relevant.
	Rank float64 `json:"rank" yaml:"rank"`
}

// List returns every stored exemplar in library order: decks by ingestion,
// then slides by position.
func (s *Store) List(ctx context.Context) ([]types.Exemplar, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT e.deck, e.slide, e.text
		FROM exemplars e
		JOIN decks d ON d.name = e.deck
		ORDER BY d.seq, e.slide`)
	if err != nil {
		return nil, fmt.Errorf("listing exemplars: %w", err)
	}
	defer rows.Close()

	var out []types.Exemplar
	for rows.Next() {
		var ex types.Exemplar
		if err := rows.Scan(&ex.Deck, &ex.Slide, &ex.Text); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, ex)
	}
	return out, rows.Err()
}

// Exemplars returns the whole library in library order, so a Store can feed
// the drafting pipeline directly.
func (s *Store) Exemplars(ctx context.Context) ([]types.Exemplar, error) {
	return s.List(ctx)
}

// Decks summarizes the stored decks in ingestion order.
func (s *Store) Decks(ctx context.Context) ([]DeckSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.name, d.ingested_at, count(e.rowid)
		FROM decks d
		LEFT JOIN exemplars e ON e.deck = d.name
		GROUP BY d.seq
		ORDER BY d.seq`)
	if err != nil {
		return nil, fmt.Errorf("listing decks: %w", err)
	}
	defer rows.Close()

	var out []DeckSummary
	for rows.Next() {
		var (
			ds DeckSummary
			at string
		)
		if err := rows.Scan(&ds.Name, &at, &ds.Exemplars); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		ds.IngestedAt, _ = time.Parse(time.RFC3339Nano, at)
		out = append(out, ds)
	}
	return out, rows.Err()
}

// Search runs a full-text query over exemplar text and returns matches by
// relevance. Each whitespace-separated term must appear; terms are matched
// literally, so punctuation in the query is not FTS syntax. maxResults <= 0
// uses the store default.
func (s *Store) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT e.deck, e.slide, e.text, exemplars_fts.rank
		FROM exemplars_fts
		JOIN exemplars e ON e.rowid = exemplars_fts.rowid
		WHERE exemplars_fts MATCH ?
		ORDER BY exemplars_fts.rank
		LIMIT ?`, match, maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching library: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Deck, &r.Slide, &r.Text, &r.Rank); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ftsQuery quotes each term as an FTS5 string so user input cannot inject
// query operators.
func ftsQuery(q string) string {
	terms := strings.Fields(q)
	for i, t := range terms {
		terms[i] = `"` + strings.ReplaceAll(t, `"`, `""`) + `"`
	}
	return strings.Join(terms, " ")
}
