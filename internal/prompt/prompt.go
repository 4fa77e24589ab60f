// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package prompt assembles the instruction sent to the generation backend
// from exemplar slide texts and the project brief.
package prompt

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// Instruction frames the model's role and task.
const Instruction = "You are a professional proposal-writer assistant. Based on the following " +
	"Objectives & Solutions examples and the new project brief, draft a concise " +
	"Objectives & Solutions paragraph in our brand tone."

// Section headers, in the order they appear in every prompt.
const (
	ExamplesHeader = "=== Examples ==="
	BriefHeader    = "=== New Brief ==="
	DraftHeader    = "=== Draft ==="
)

// ExemplarSeparator sits on its own line between consecutive exemplars.
const ExemplarSeparator = "---"

// draftPromptTmpl lays out the prompt. The draft section is left open so
// the backend continues from it. The examples section is always present,
// empty when there are no exemplars.
var draftPromptTmpl = template.Must(template.New("draft").Parse(`{{.Instruction}}

{{.ExamplesHeader}}
{{.Examples}}

{{.BriefHeader}}
{{.Brief}}

{{.DraftHeader}}
`))

// Synthesize builds the prompt for the given exemplar texts and brief. The
// exemplars appear in the order given, the brief verbatim. Nothing is
// truncated; identical input yields a byte-identical prompt.
func Synthesize(exemplars []string, brief string) (types.Prompt, error) {
	var buf bytes.Buffer
	err := draftPromptTmpl.Execute(&buf, struct {
		Instruction    string
		ExamplesHeader string
		Examples       string
		BriefHeader    string
		Brief          string
		DraftHeader    string
	}{
		Instruction:    Instruction,
		ExamplesHeader: ExamplesHeader,
		Examples:       strings.Join(exemplars, "\n"+ExemplarSeparator+"\n"),
		BriefHeader:    BriefHeader,
		Brief:          brief,
		DraftHeader:    DraftHeader,
	})
	if err != nil {
		return types.Prompt{}, fmt.Errorf("rendering prompt: %w", err)
	}
	text := buf.String()
	return types.Prompt{ID: ID(text), Text: text}, nil
}

// Texts returns the text of each exemplar, preserving order.
func Texts(exemplars []types.Exemplar) []string {
	out := make([]string, len(exemplars))
	for i, e := range exemplars {
		out[i] = e.Text
	}
	return out
}

// ID returns the identity of a prompt: the first 12 hex characters of the
// SHA-256 digest of its text.
func ID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", sum[:])[:12]
}
