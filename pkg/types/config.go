package types

import "time"

// HTTPConfig holds shared HTTP settings used by backends that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP client timeout. Zero means no client-side timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "proposal-drafter/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIConfig holds shared settings for stages that call a text-generation API.
type AIConfig struct {
	// Model is the model identifier (e.g. "google/flan-t5-small").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the API. Optional for local servers.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`
}

// BackendKind selects the generation backend variant.
type BackendKind string

const (
	// BackendHosted is a hosted sequence-to-sequence model (Hugging Face Inference API).
	BackendHosted BackendKind = "hosted"
	// BackendLocal is a local quantized causal model behind an OpenAI-compatible
	// completions server (llama.cpp llama-server).
	BackendLocal BackendKind = "local"
	// BackendEcho is a deterministic offline backend for development and tests.
	BackendEcho BackendKind = "echo"
)

// GenerationConfig holds the one-time configuration of the generation backend.
// It is read once at startup and never mutated afterwards.
type GenerationConfig struct {
	AIConfig   `yaml:",inline" mapstructure:",squash"`
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Backend selects the variant: hosted, local, or echo.
	Backend BackendKind `json:"backend" yaml:"backend" mapstructure:"backend"`

	// BaseURL overrides the backend endpoint (Inference API root or local server URL).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// ModelPath is the on-disk path of the quantized model served locally.
	// When set, startup fails if the file is missing.
	ModelPath string `json:"model_path,omitempty" yaml:"model_path,omitempty" mapstructure:"model_path"`

	// MaxLength is the maximum output length for the hosted variant (default 256).
	MaxLength int `json:"max_length" yaml:"max_length" mapstructure:"max_length"`

	// MaxNewTokens is the new-token budget for the local variant (default 256).
	MaxNewTokens int `json:"max_new_tokens" yaml:"max_new_tokens" mapstructure:"max_new_tokens"`

	// Temperature is the sampling temperature for the local variant. Nil means
	// the default (0.7). The hosted variant ignores it.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" mapstructure:"temperature"`

	// RequestTimeout bounds a single generation call. Zero means no timeout.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`

	// Serialize forces a process-wide lock around every generation call even
	// when the backend tolerates concurrent use.
	Serialize bool `json:"serialize" yaml:"serialize" mapstructure:"serialize"`

	// SkipProbe disables the readiness probe performed at startup.
	SkipProbe bool `json:"skip_probe" yaml:"skip_probe" mapstructure:"skip_probe"`

	// ProbeTimeout caps the total time the startup probe waits for a
	// loading model, retries included. Zero means the default (2m).
	ProbeTimeout time.Duration `json:"probe_timeout" yaml:"probe_timeout" mapstructure:"probe_timeout"`
}

// Limits bounds the output of one generation call. Each variant reads only
// the fields it supports.
type Limits struct {
	// MaxLength is the maximum output length (hosted variant).
	MaxLength int `json:"max_length" yaml:"max_length"`

	// MaxNewTokens is the new-token budget (local variant).
	MaxNewTokens int `json:"max_new_tokens" yaml:"max_new_tokens"`

	// Temperature is the sampling temperature (local variant). Nil leaves the
	// backend default in place.
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty"`
}

// LibraryConfig holds settings for the exemplar library.
type LibraryConfig struct {
	// Dir is the directory holding the library database (contains library.db).
	Dir string `json:"dir" yaml:"dir" mapstructure:"dir"`

	// MaxResults is the default maximum number of search results (default 20).
	MaxResults int `json:"max_results" yaml:"max_results" mapstructure:"max_results"`
}

// ServerConfig holds settings for the HTTP hosting surface.
type ServerConfig struct {
	// Addr is the listen address (default ":8080").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps the multipart body size (default 32 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// AllowOrigins lists browser origins allowed to call the API. Empty
	// disables CORS handling.
	AllowOrigins []string `json:"allow_origins,omitempty" yaml:"allow_origins,omitempty" mapstructure:"allow_origins"`
}

// LogConfig selects the logger mode.
type LogConfig struct {
	// Mode is "dev" or "prod".
	Mode string `json:"mode" yaml:"mode" mapstructure:"mode"`
}

// Config groups all settings for the drafter.
type Config struct {
	Generation GenerationConfig `json:"generation" yaml:"generation" mapstructure:"generation"`
	Library    LibraryConfig    `json:"library" yaml:"library" mapstructure:"library"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}
