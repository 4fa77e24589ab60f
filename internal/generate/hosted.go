// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pdiddy/proposal-drafter/internal/httputil"
	"github.com/pdiddy/proposal-drafter/internal/logger"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

// inferenceAPIURL is the Hugging Face Inference API root. Package-level var
// for test substitution.
var inferenceAPIURL = "https://api-inference.huggingface.co"

// probeRetries bounds the probe attempts; ProbeTimeout bounds their total time.
const probeRetries = 6

// HostedBackend calls a hosted sequence-to-sequence model through the
// Hugging Face Inference API. Output length is capped with max_length; no
// sampling temperature is sent.
type HostedBackend struct {
	APIKey    string
	Model     string
	BaseURL   string
	UserAgent string
	Client    *http.Client

	probeTimeout time.Duration
	log          *logger.Logger
}

type inferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters inferenceParameters `json:"parameters"`
	Options    inferenceOptions    `json:"options"`
}

type inferenceParameters struct {
	MaxLength int `json:"max_length,omitempty"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
	UseCache     bool `json:"use_cache"`
}

type inferenceOutput struct {
	GeneratedText string `json:"generated_text"`
}

type inferenceError struct {
	Error string `json:"error"`
}

// NewHostedBackend configures the hosted backend and, unless cfg.SkipProbe
// is set, sends a one-token warm-up request so that a cold or missing model
// fails startup rather than the first draft. The warm-up gives up after
// cfg.ProbeTimeout.
func NewHostedBackend(ctx context.Context, cfg types.GenerationConfig, opts ...Option) (*HostedBackend, error) {
	o := buildOptions(opts)
	model := cfg.Model
	if model == "" {
		model = DefaultHostedModel
	}
	h := &HostedBackend{
		APIKey:       cfg.APIKey,
		Model:        model,
		BaseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		UserAgent:    cfg.UserAgent,
		Client:       &http.Client{Timeout: cfg.Timeout},
		probeTimeout: cfg.ProbeTimeout,
		log:          o.log,
	}
	if h.probeTimeout <= 0 {
		h.probeTimeout = DefaultProbeTimeout
	}
	if cfg.SkipProbe {
		return h, nil
	}
	if err := h.probe(ctx); err != nil {
		return nil, fmt.Errorf("model %s not ready: %w", model, err)
	}
	return h, nil
}

func (h *HostedBackend) Name() string { return string(types.BackendHosted) }

// ConcurrentSafe reports true: each call is an independent HTTP request.
func (h *HostedBackend) ConcurrentSafe() bool { return true }

// Generate sends one inference request and returns the first generated text.
func (h *HostedBackend) Generate(ctx context.Context, prompt string, limits types.Limits) (string, error) {
	maxLength := limits.MaxLength
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	req, err := h.newRequest(ctx, inferenceRequest{
		Inputs:     prompt,
		Parameters: inferenceParameters{MaxLength: maxLength},
		Options:    inferenceOptions{WaitForModel: true},
	})
	if err != nil {
		return "", err
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("calling inference API: %w", err)
	}
	defer resp.Body.Close()

	return decodeInference(resp)
}

func (h *HostedBackend) probe(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.probeTimeout)
	defer cancel()

	req, err := h.newRequest(ctx, inferenceRequest{
		Inputs:     "ping",
		Parameters: inferenceParameters{MaxLength: 1},
	})
	if err != nil {
		return err
	}
	resp, err := httputil.DoWithRetryNotify(ctx, h.client(), req, probeRetries, func(retry, status int, wait time.Duration) {
		h.log.Warn("model not ready, retrying probe",
			"model", h.Model, "status", status, "retry", retry, "max_retries", probeRetries, "wait", wait)
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("probe gave up after %s: %w", h.probeTimeout, err)
		}
		return fmt.Errorf("calling inference API: %w", err)
	}
	defer resp.Body.Close()
	_, err = decodeInference(resp)
	return err
}

func (h *HostedBackend) newRequest(ctx context.Context, body inferenceRequest) (*http.Request, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	base := h.BaseURL
	if base == "" {
		base = inferenceAPIURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base+"/models/"+h.Model, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if h.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}
	return req, nil
}

func (h *HostedBackend) client() *http.Client {
	if h.Client == nil {
		return http.DefaultClient
	}
	return h.Client
}

func decodeInference(resp *http.Response) (string, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading inference response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr inferenceError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return "", fmt.Errorf("inference API returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return "", fmt.Errorf("inference API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var outputs []inferenceOutput
	if err := json.Unmarshal(body, &outputs); err != nil {
		return "", fmt.Errorf("decoding inference response: %w", err)
	}
	if len(outputs) == 0 {
		return "", fmt.Errorf("inference API returned no outputs")
	}
	return outputs[0].GeneratedText, nil
}
