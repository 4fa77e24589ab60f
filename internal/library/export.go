// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package library

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/proposal-drafter/pkg/types"
)

const exportFile = "export.yaml"

// ExportDeck is one deck in a library export.
type ExportDeck struct {
	Name      string           `yaml:"name"`
	Exemplars []types.Exemplar `yaml:"exemplars"`
}

// Export writes the library as YAML, one entry per deck in library order.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	exemplars, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("querying for export: %w", err)
	}

	var decks []ExportDeck
	for _, ex := range exemplars {
		if n := len(decks); n == 0 || decks[n-1].Name != ex.Deck {
			decks = append(decks, ExportDeck{Name: ex.Deck})
		}
		last := &decks[len(decks)-1]
		last.Exemplars = append(last.Exemplars, ex)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(decks); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}

// ExportFile writes the YAML export next to the database and returns its path.
func (s *Store) ExportFile(ctx context.Context) (string, error) {
	path := filepath.Join(s.dir, exportFile)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	if err := s.Export(ctx, f); err != nil {
		f.Close()
		return "", err
	}
	return path, f.Close()
}
