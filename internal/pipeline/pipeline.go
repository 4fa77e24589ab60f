// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline runs one drafting request: exemplar extraction, brief
// extraction, prompt synthesis and generation, in that order. Stages run
// sequentially; the only state shared between requests is the backend.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pdiddy/proposal-drafter/internal/brief"
	"github.com/pdiddy/proposal-drafter/internal/generate"
	"github.com/pdiddy/proposal-drafter/internal/logger"
	"github.com/pdiddy/proposal-drafter/internal/prompt"
	"github.com/pdiddy/proposal-drafter/internal/slides"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// ExemplarSource supplies exemplars collected outside the request, such as
// an exemplar library. They precede the request's own exemplars.
type ExemplarSource interface {
	Exemplars(ctx context.Context) ([]types.Exemplar, error)
}

// Request carries the uploads of one drafting action.
type Request struct {
	// Decks are the prior slide decks, in upload order.
	Decks []types.Upload

	// Brief is the new project brief. Required.
	Brief *types.Upload
}

// Result is the outcome of a successful run.
type Result struct {
	Prompt    types.Prompt
	Exemplars []types.Exemplar
	Brief     types.Brief
	Draft     string
	Backend   string
	Elapsed   time.Duration
}

// Pipeline turns requests into drafts with a shared backend.
type Pipeline struct {
	backend generate.Backend
	policy  slides.RelevancePolicy
	limits  types.Limits
	timeout time.Duration
	source  ExemplarSource
	log     *logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithPolicy replaces the slide relevance policy.
func WithPolicy(p slides.RelevancePolicy) Option {
	return func(pl *Pipeline) { pl.policy = p }
}

// WithLimits sets the generation limits passed on every call.
func WithLimits(l types.Limits) Option {
	return func(pl *Pipeline) { pl.limits = l }
}

// WithTimeout bounds each generation call. Expiry is reported as a
// *types.GenerationError.
func WithTimeout(d time.Duration) Option {
	return func(pl *Pipeline) { pl.timeout = d }
}

// WithExemplarSource adds exemplars from outside the request. With a source
// configured, a request may omit decks.
func WithExemplarSource(s ExemplarSource) Option {
	return func(pl *Pipeline) { pl.source = s }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(pl *Pipeline) { pl.log = l }
}

// New returns a pipeline around an initialized backend.
func New(backend generate.Backend, opts ...Option) *Pipeline {
	p := &Pipeline{
		backend: backend,
		policy:  slides.DefaultPolicy,
		limits:  generate.LimitsFrom(types.GenerationConfig{}),
		log:     logger.Nop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Run executes one request. Any stage failure aborts the run; nothing is
// retried and no partial draft is returned.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	if req.Brief == nil {
		return nil, &types.MissingInputError{Input: "brief"}
	}
	if len(req.Decks) == 0 && p.source == nil {
		return nil, &types.MissingInputError{Input: "decks"}
	}

	var exemplars []types.Exemplar
	if p.source != nil {
		stored, err := p.source.Exemplars(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading stored exemplars: %w", err)
		}
		exemplars = append(exemplars, stored...)
	}

	uploaded, err := slides.ExtractExemplars(req.Decks, p.policy)
	if err != nil {
		return nil, err
	}
	exemplars = append(exemplars, uploaded...)

	b, err := brief.Extract(req.Brief)
	if err != nil {
		return nil, err
	}

	pr, err := prompt.Synthesize(prompt.Texts(exemplars), b.Text)
	if err != nil {
		return nil, err
	}

	log := p.log.With("prompt_id", pr.ID, "backend", p.backend.Name())
	log.Info("generating draft",
		"decks", len(req.Decks),
		"exemplars", len(exemplars),
		"brief_format", string(b.Format),
		"prompt_bytes", len(pr.Text),
	)

	draft, err := p.generate(ctx, pr)
	if err != nil {
		log.Error("generation failed", "error", err)
		return nil, err
	}

	res := &Result{
		Prompt:    pr,
		Exemplars: exemplars,
		Brief:     b,
		Draft:     draft,
		Backend:   p.backend.Name(),
		Elapsed:   time.Since(start),
	}
	log.Info("draft ready", "draft_chars", len(draft), "elapsed", res.Elapsed)
	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, pr types.Prompt) (string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	raw, err := p.backend.Generate(ctx, pr.Text, p.limits)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		return "", &types.GenerationError{PromptID: pr.ID, Backend: p.backend.Name(), Err: err}
	}
	return strings.TrimSpace(raw), nil
}
