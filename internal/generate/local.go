// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// defaultLocalURL is where llama.cpp's llama-server listens by default.
const defaultLocalURL = "http://127.0.0.1:8080/v1/"

// LocalBackend runs a quantized causal model served locally behind an
// OpenAI-compatible completions endpoint (llama.cpp llama-server). Calls send
// a new-token budget and a sampling temperature; the first choice is used.
type LocalBackend struct {
	Model string
	opts  []option.RequestOption
}

// NewLocalBackend configures the local backend. When cfg.ModelPath is set the
// model file must exist. Unless cfg.SkipProbe is set, the server must answer
// a model listing.
func NewLocalBackend(ctx context.Context, cfg types.GenerationConfig) (*LocalBackend, error) {
	if cfg.ModelPath != "" {
		info, err := os.Stat(cfg.ModelPath)
		if err != nil {
			return nil, fmt.Errorf("model file: %w", err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("model file %s is a directory", cfg.ModelPath)
		}
	}

	model := cfg.Model
	if model == "" && cfg.ModelPath != "" {
		model = modelNameFromPath(cfg.ModelPath)
	}
	if model == "" {
		return nil, errors.New("local backend needs a model identifier or model path")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultLocalURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	apiKey := cfg.APIKey
	if apiKey == "" {
		// llama-server accepts any key unless started with --api-key.
		apiKey = "no-key"
	}

	opts := []option.RequestOption{
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, option.WithHeader("User-Agent", cfg.UserAgent))
	}

	l := &LocalBackend{Model: model, opts: opts}
	if cfg.SkipProbe {
		return l, nil
	}
	client := openai.NewClient(l.opts...)
	if _, err := client.Models.List(ctx); err != nil {
		return nil, fmt.Errorf("local server at %s not reachable: %w", baseURL, err)
	}
	return l, nil
}

func (l *LocalBackend) Name() string { return string(types.BackendLocal) }

// ConcurrentSafe reports false: a local server typically holds one model
// context and callers serialize access to it.
func (l *LocalBackend) ConcurrentSafe() bool { return false }

// Generate requests one completion and returns the text of the first choice.
func (l *LocalBackend) Generate(ctx context.Context, prompt string, limits types.Limits) (string, error) {
	maxTokens := limits.MaxNewTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxNewTokens
	}
	temperature := DefaultTemperature
	if limits.Temperature != nil {
		temperature = *limits.Temperature
	}

	client := openai.NewClient(l.opts...)
	resp, err := client.Completions.New(ctx, openai.CompletionNewParams{
		Model:       openai.CompletionNewParamsModel(l.Model),
		Prompt:      openai.CompletionNewParamsPromptUnion{OfString: openai.String(prompt)},
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(temperature),
	})
	if err != nil {
		return "", fmt.Errorf("calling local completions: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("local completions returned no choices")
	}
	return resp.Choices[0].Text, nil
}

// modelNameFromPath turns "/models/mistral-7b.Q4_K_M.gguf" into
// "mistral-7b.Q4_K_M".
func modelNameFromPath(p string) string {
	base := p
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	return strings.TrimSuffix(base, ".gguf")
}
