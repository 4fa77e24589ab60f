// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"strings"

	"github.com/pdiddy/proposal-drafter/internal/prompt"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// EchoBackend drafts without a model: it restates the brief section of the
// prompt. Useful for offline runs and tests. Like real model output, the
// result carries surrounding whitespace.
type EchoBackend struct{}

func NewEchoBackend() *EchoBackend { return &EchoBackend{} }

func (e *EchoBackend) Name() string { return string(types.BackendEcho) }

func (e *EchoBackend) ConcurrentSafe() bool { return true }

// Generate returns "Objectives & Solutions: <brief>", cut to limits.MaxLength
// runes when set.
func (e *EchoBackend) Generate(ctx context.Context, p string, limits types.Limits) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	brief := p
	if i := strings.LastIndex(brief, prompt.BriefHeader+"\n"); i >= 0 {
		brief = brief[i+len(prompt.BriefHeader)+1:]
	}
	if i := strings.LastIndex(brief, "\n\n"+prompt.DraftHeader); i >= 0 {
		brief = brief[:i]
	}

	out := []rune("Objectives & Solutions: " + strings.Join(strings.Fields(brief), " "))
	if limits.MaxLength > 0 && len(out) > limits.MaxLength {
		out = out[:limits.MaxLength]
	}
	return "\n" + string(out) + "\n", nil
}
