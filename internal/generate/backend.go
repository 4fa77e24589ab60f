// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package generate provides the text-generation backends that turn a
// synthesized prompt into a draft. All variants satisfy Backend; the variant
// is chosen by configuration once at startup.
package generate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pdiddy/proposal-drafter/internal/logger"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

const (
	DefaultHostedModel  = "google/flan-t5-small"
	DefaultMaxLength    = 256
	DefaultMaxNewTokens = 256
	DefaultTemperature  = 0.7
	DefaultProbeTimeout = 2 * time.Minute
)

// Secret file names read from the secrets directory.
const (
	SecretHostedToken = "hf-api-token"
	SecretLocalKey    = "local-api-key"
)

// Backend generates a completion for a prompt. Implementations return the
// raw model output; callers trim it. A returned error means the call failed
// and no text is usable.
type Backend interface {
	// Name returns the variant name ("hosted", "local", "echo").
	Name() string

	// Generate runs one completion of prompt within limits.
	Generate(ctx context.Context, prompt string, limits types.Limits) (string, error)
}

// concurrentSafe is implemented by backends that may be invoked from several
// goroutines at once.
type concurrentSafe interface {
	ConcurrentSafe() bool
}

type options struct {
	log *logger.Logger
}

// Option configures backend construction.
type Option func(*options)

// WithLogger reports startup progress, such as probe retries, to log.
func WithLogger(log *logger.Logger) Option {
	return func(o *options) { o.log = log }
}

func buildOptions(opts []Option) options {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Nop()
	}
	return o
}

// New builds the configured backend and checks that it is ready. It is meant
// to run once at process start; any failure is returned as a
// *types.BackendInitError. The returned backend is wrapped by Guard.
func New(ctx context.Context, cfg types.GenerationConfig, secrets map[string]string, opts ...Option) (Backend, error) {
	kind := cfg.Backend
	if kind == "" {
		kind = types.BackendHosted
	}

	var (
		b   Backend
		err error
	)
	switch kind {
	case types.BackendHosted:
		if cfg.APIKey == "" {
			cfg.APIKey = secrets[SecretHostedToken]
		}
		b, err = NewHostedBackend(ctx, cfg, opts...)
	case types.BackendLocal:
		if cfg.APIKey == "" {
			cfg.APIKey = secrets[SecretLocalKey]
		}
		b, err = NewLocalBackend(ctx, cfg)
	case types.BackendEcho:
		b = NewEchoBackend()
	default:
		err = fmt.Errorf("unknown backend %q (want hosted, local, or echo)", kind)
	}
	if err != nil {
		return nil, &types.BackendInitError{Backend: string(kind), Err: err}
	}
	return Guard(b, cfg.Serialize), nil
}

// LimitsFrom derives per-call limits from the configuration, filling defaults.
func LimitsFrom(cfg types.GenerationConfig) types.Limits {
	l := types.Limits{
		MaxLength:    cfg.MaxLength,
		MaxNewTokens: cfg.MaxNewTokens,
		Temperature:  cfg.Temperature,
	}
	if l.MaxLength <= 0 {
		l.MaxLength = DefaultMaxLength
	}
	if l.MaxNewTokens <= 0 {
		l.MaxNewTokens = DefaultMaxNewTokens
	}
	return l
}

// Guard returns b unchanged when it tolerates concurrent calls and serialize
// is false. Otherwise every Generate call goes through a single lock.
func Guard(b Backend, serialize bool) Backend {
	if _, already := b.(*serialized); already {
		return b
	}
	if cs, ok := b.(concurrentSafe); ok && cs.ConcurrentSafe() && !serialize {
		return b
	}
	return &serialized{backend: b}
}

type serialized struct {
	mu      sync.Mutex
	backend Backend
}

func (s *serialized) Name() string { return s.backend.Name() }

func (s *serialized) Generate(ctx context.Context, prompt string, limits types.Limits) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Generate(ctx, prompt, limits)
}
