// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package generate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/proposal-drafter/internal/httputil"
	"github.com/pdiddy/proposal-drafter/internal/logger"
	"github.com/pdiddy/proposal-drafter/internal/prompt"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

func TestMain(m *testing.M) {
	httputil.RetryBaseDelay = time.Millisecond
	os.Exit(m.Run())
}

// --- hosted ---

type fakeInference struct {
	mu       sync.Mutex
	requests []map[string]any
	auth     []string
	calls    int32
	handler  func(n int32, w http.ResponseWriter, body map[string]any)
}

func (f *fakeInference) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.requests = append(f.requests, body)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.mu.Unlock()
	n := atomic.AddInt32(&f.calls, 1)
	if r.URL.Path != "/models/google/flan-t5-small" {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"Model not found"}`))
		return
	}
	f.handler(n, w, body)
}

func okOutput(text string) func(int32, http.ResponseWriter, map[string]any) {
	return func(_ int32, w http.ResponseWriter, _ map[string]any) {
		json.NewEncoder(w).Encode([]map[string]string{{"generated_text": text}})
	}
}

func hostedConfig(url string) types.GenerationConfig {
	return types.GenerationConfig{
		AIConfig: types.AIConfig{Model: "google/flan-t5-small", APIKey: "hf_test"},
		Backend:  types.BackendHosted,
		BaseURL:  url,
	}
}

func TestHosted_Generate(t *testing.T) {
	fake := &fakeInference{handler: okOutput("  We will grow revenue.  ")}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	h, err := NewHostedBackend(context.Background(), hostedConfig(ts.URL))
	require.NoError(t, err)

	got, err := h.Generate(context.Background(), "the prompt", types.Limits{MaxLength: 128, Temperature: floatPtr(0.2)})
	require.NoError(t, err)
	assert.Equal(t, "  We will grow revenue.  ", got)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.requests, 2) // probe + generate
	req := fake.requests[1]
	assert.Equal(t, "the prompt", req["inputs"])
	params := req["parameters"].(map[string]any)
	assert.Equal(t, float64(128), params["max_length"])
	assert.NotContains(t, params, "temperature")
	assert.Equal(t, "Bearer hf_test", fake.auth[1])
}

func TestHosted_ProbeWaitsForModelLoad(t *testing.T) {
	fake := &fakeInference{handler: func(n int32, w http.ResponseWriter, _ map[string]any) {
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"Model is currently loading","estimated_time":20}`))
			return
		}
		okOutput("ok")(n, w, nil)
	}}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	_, err := NewHostedBackend(context.Background(), hostedConfig(ts.URL))
	require.NoError(t, err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&fake.calls))
}

func TestHosted_ProbeGivesUpAfterTimeout(t *testing.T) {
	fake := &fakeInference{handler: func(n int32, w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"Model is currently loading"}`))
	}}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	old := httputil.RetryBaseDelay
	httputil.RetryBaseDelay = time.Second
	t.Cleanup(func() { httputil.RetryBaseDelay = old })

	core, logs := observer.New(zap.DebugLevel)
	cfg := hostedConfig(ts.URL)
	cfg.ProbeTimeout = 50 * time.Millisecond

	start := time.Now()
	_, err := NewHostedBackend(context.Background(), cfg, WithLogger(logger.FromZap(zap.New(core))))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "probe gave up after 50ms")
	assert.Less(t, time.Since(start), time.Second)

	retries := logs.FilterMessage("model not ready, retrying probe").All()
	require.Len(t, retries, 1)
	fields := retries[0].ContextMap()
	assert.Equal(t, int64(http.StatusServiceUnavailable), fields["status"])
	assert.Equal(t, int64(1), fields["retry"])
}

func TestHosted_ProbeFailsOnUnknownModel(t *testing.T) {
	ts := httptest.NewServer(&fakeInference{handler: okOutput("x")})
	defer ts.Close()

	cfg := hostedConfig(ts.URL)
	cfg.Model = "nobody/missing"
	_, err := NewHostedBackend(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Model not found")
}

func TestHosted_GenerateDoesNotRetry(t *testing.T) {
	fake := &fakeInference{handler: func(n int32, w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"overloaded"}`))
	}}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	cfg := hostedConfig(ts.URL)
	cfg.SkipProbe = true
	h, err := NewHostedBackend(context.Background(), cfg)
	require.NoError(t, err)

	_, err = h.Generate(context.Background(), "p", types.Limits{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overloaded")
	assert.Equal(t, int32(1), atomic.LoadInt32(&fake.calls))
}

func TestHosted_BadResponses(t *testing.T) {
	tests := []struct {
		name    string
		handler func(int32, http.ResponseWriter, map[string]any)
		wantErr string
	}{
		{"empty list", func(_ int32, w http.ResponseWriter, _ map[string]any) { w.Write([]byte(`[]`)) }, "no outputs"},
		{"not json", func(_ int32, w http.ResponseWriter, _ map[string]any) { w.Write([]byte(`<html>`)) }, "decoding"},
		{"server error", func(_ int32, w http.ResponseWriter, _ map[string]any) {
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte("boom"))
		}, "500: boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(&fakeInference{handler: tt.handler})
			defer ts.Close()

			cfg := hostedConfig(ts.URL)
			cfg.SkipProbe = true
			h, err := NewHostedBackend(context.Background(), cfg)
			require.NoError(t, err)

			_, err = h.Generate(context.Background(), "p", types.Limits{})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

// --- local ---

type fakeLocalServer struct {
	mu      sync.Mutex
	bodies  []map[string]any
	choices []string
}

func (f *fakeLocalServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/models", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"mistral-7b.Q4_K_M","object":"model","created":0,"owned_by":"llamacpp"}]}`))
	})
	mux.HandleFunc("/v1/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.bodies = append(f.bodies, body)
		f.mu.Unlock()

		choices := make([]map[string]any, len(f.choices))
		for i, c := range f.choices {
			choices[i] = map[string]any{"index": i, "text": c, "finish_reason": "stop", "logprobs": nil}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id": "cmpl-1", "object": "text_completion", "created": 0,
			"model": body["model"], "choices": choices,
		})
	})
	return mux
}

func localConfig(url string) types.GenerationConfig {
	return types.GenerationConfig{
		AIConfig: types.AIConfig{Model: "mistral-7b.Q4_K_M"},
		Backend:  types.BackendLocal,
		BaseURL:  url + "/v1",
	}
}

func TestLocal_Generate(t *testing.T) {
	fake := &fakeLocalServer{choices: []string{" first choice\n", "second choice"}}
	ts := httptest.NewServer(fake.handler())
	defer ts.Close()

	l, err := NewLocalBackend(context.Background(), localConfig(ts.URL))
	require.NoError(t, err)

	got, err := l.Generate(context.Background(), "the prompt", types.Limits{MaxNewTokens: 64, Temperature: floatPtr(0.3)})
	require.NoError(t, err)
	assert.Equal(t, " first choice\n", got)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.bodies, 1)
	body := fake.bodies[0]
	assert.Equal(t, "mistral-7b.Q4_K_M", body["model"])
	assert.Equal(t, "the prompt", body["prompt"])
	assert.Equal(t, float64(64), body["max_tokens"])
	assert.InDelta(t, 0.3, body["temperature"], 1e-9)
}

func TestLocal_DefaultTemperature(t *testing.T) {
	fake := &fakeLocalServer{choices: []string{"x"}}
	ts := httptest.NewServer(fake.handler())
	defer ts.Close()

	cfg := localConfig(ts.URL)
	cfg.SkipProbe = true
	l, err := NewLocalBackend(context.Background(), cfg)
	require.NoError(t, err)

	_, err = l.Generate(context.Background(), "p", types.Limits{})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.InDelta(t, DefaultTemperature, fake.bodies[0]["temperature"], 1e-9)
	assert.Equal(t, float64(DefaultMaxNewTokens), fake.bodies[0]["max_tokens"])
}

func TestLocal_NoChoices(t *testing.T) {
	ts := httptest.NewServer((&fakeLocalServer{}).handler())
	defer ts.Close()

	l, err := NewLocalBackend(context.Background(), localConfig(ts.URL))
	require.NoError(t, err)

	_, err = l.Generate(context.Background(), "p", types.Limits{})
	assert.ErrorContains(t, err, "no choices")
}

func TestLocal_InitErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing model file", func(t *testing.T) {
		cfg := localConfig("http://127.0.0.1:1")
		cfg.ModelPath = filepath.Join(dir, "absent.gguf")
		_, err := NewLocalBackend(context.Background(), cfg)
		assert.ErrorContains(t, err, "model file")
	})

	t.Run("no model at all", func(t *testing.T) {
		cfg := localConfig("http://127.0.0.1:1")
		cfg.Model = ""
		_, err := NewLocalBackend(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("server unreachable", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()
		_, err := NewLocalBackend(context.Background(), localConfig(url))
		assert.ErrorContains(t, err, "not reachable")
	})
}

func TestLocal_ModelNameFromPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mistral-7b.Q4_K_M.gguf")
	require.NoError(t, os.WriteFile(path, []byte("gguf"), 0o644))

	cfg := localConfig("http://127.0.0.1:1")
	cfg.Model = ""
	cfg.ModelPath = path
	cfg.SkipProbe = true
	l, err := NewLocalBackend(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "mistral-7b.Q4_K_M", l.Model)
}

// --- echo, registry, guard ---

func TestEcho_RestatesBrief(t *testing.T) {
	p, err := prompt.Synthesize(nil, "Improve   reliability\nof billing")
	require.NoError(t, err)

	got, err := NewEchoBackend().Generate(context.Background(), p.Text, types.Limits{})
	require.NoError(t, err)
	assert.Equal(t, "\nObjectives & Solutions: Improve reliability of billing\n", got)

	short, err := NewEchoBackend().Generate(context.Background(), p.Text, types.Limits{MaxLength: 10})
	require.NoError(t, err)
	assert.Equal(t, "\nObjectives\n", short)
}

func TestNew(t *testing.T) {
	b, err := New(context.Background(), types.GenerationConfig{Backend: types.BackendEcho}, nil)
	require.NoError(t, err)
	assert.Equal(t, "echo", b.Name())

	_, err = New(context.Background(), types.GenerationConfig{Backend: "gpt-9"}, nil)
	var ierr *types.BackendInitError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "gpt-9", ierr.Backend)
}

func TestNew_HostedUsesSecretToken(t *testing.T) {
	fake := &fakeInference{handler: okOutput("ok")}
	ts := httptest.NewServer(fake)
	defer ts.Close()

	cfg := hostedConfig(ts.URL)
	cfg.APIKey = ""
	b, err := New(context.Background(), cfg, map[string]string{SecretHostedToken: "hf_secret"})
	require.NoError(t, err)
	assert.Equal(t, "hosted", b.Name())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, "Bearer hf_secret", fake.auth[0])
}

func TestNew_InitFailureIsBackendInitError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid credentials"}`))
	}))
	defer ts.Close()

	_, err := New(context.Background(), hostedConfig(ts.URL), nil)
	var ierr *types.BackendInitError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "hosted", ierr.Backend)
	assert.Contains(t, err.Error(), "Invalid credentials")
}

func TestLimitsFrom(t *testing.T) {
	l := LimitsFrom(types.GenerationConfig{})
	assert.Equal(t, DefaultMaxLength, l.MaxLength)
	assert.Equal(t, DefaultMaxNewTokens, l.MaxNewTokens)
	assert.Nil(t, l.Temperature)

	temp := 0.1
	l = LimitsFrom(types.GenerationConfig{MaxLength: 10, MaxNewTokens: 20, Temperature: &temp})
	assert.Equal(t, types.Limits{MaxLength: 10, MaxNewTokens: 20, Temperature: &temp}, l)
}

// concurrencyProbe records the highest number of overlapping calls.
type concurrencyProbe struct {
	safe    bool
	active  int32
	maxSeen int32
}

func (c *concurrencyProbe) Name() string         { return "probe" }
func (c *concurrencyProbe) ConcurrentSafe() bool { return c.safe }
func (c *concurrencyProbe) Generate(context.Context, string, types.Limits) (string, error) {
	n := atomic.AddInt32(&c.active, 1)
	for {
		old := atomic.LoadInt32(&c.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&c.maxSeen, old, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	atomic.AddInt32(&c.active, -1)
	return "ok", nil
}

func runConcurrently(b Backend, n int) {
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b.Generate(context.Background(), "p", types.Limits{})
		}()
	}
	wg.Wait()
}

func TestGuard(t *testing.T) {
	unsafe := &concurrencyProbe{safe: false}
	runConcurrently(Guard(unsafe, false), 8)
	assert.Equal(t, int32(1), atomic.LoadInt32(&unsafe.maxSeen))

	forced := &concurrencyProbe{safe: true}
	runConcurrently(Guard(forced, true), 8)
	assert.Equal(t, int32(1), atomic.LoadInt32(&forced.maxSeen))

	safe := &concurrencyProbe{safe: true}
	g := Guard(safe, false)
	assert.Same(t, safe, g)

	once := Guard(unsafe, false)
	assert.Same(t, once, Guard(once, true))
}

func floatPtr(f float64) *float64 { return &f }
