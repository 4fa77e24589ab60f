// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/proposal-drafter/internal/generate"
	"github.com/pdiddy/proposal-drafter/internal/library"
	"github.com/pdiddy/proposal-drafter/internal/pipeline"
	"github.com/pdiddy/proposal-drafter/internal/slides"
	"github.com/pdiddy/proposal-drafter/pkg/types"
)

const (
	defaultBackend        = types.BackendHosted
	defaultRequestTimeout = 2 * time.Minute
)

func setDefaults() {
	viper.SetDefault("secrets_dir", ".secrets")
	viper.SetDefault("log.mode", "dev")

	viper.SetDefault("generation.backend", string(defaultBackend))
	viper.SetDefault("generation.model", "")
	viper.SetDefault("generation.api_key", "")
	viper.SetDefault("generation.base_url", "")
	viper.SetDefault("generation.model_path", "")
	viper.SetDefault("generation.max_length", generate.DefaultMaxLength)
	viper.SetDefault("generation.max_new_tokens", generate.DefaultMaxNewTokens)
	viper.SetDefault("generation.request_timeout", defaultRequestTimeout)
	viper.SetDefault("generation.timeout", time.Duration(0))
	viper.SetDefault("generation.user_agent", "proposal-drafter/"+version)
	viper.SetDefault("generation.serialize", false)
	viper.SetDefault("generation.skip_probe", false)
	viper.SetDefault("generation.probe_timeout", generate.DefaultProbeTimeout)

	viper.SetDefault("library.dir", "library")
	viper.SetDefault("library.max_results", 20)

	viper.SetDefault("server.addr", ":8080")
	viper.SetDefault("server.max_upload_bytes", int64(32<<20))
	viper.SetDefault("server.allow_origins", []string{})
}

// loadConfig resolves the configuration from defaults, the config file, the
// environment, and flags, in increasing precedence.
func loadConfig(cmd *cobra.Command) (types.Config, error) {
	var cfg types.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	if f := cmd.Flags().Lookup("temperature"); f != nil && f.Changed {
		t, _ := cmd.Flags().GetFloat64("temperature")
		cfg.Generation.Temperature = &t
	}
	return cfg, nil
}

// newPipeline builds the backend once, then the pipeline around it. A
// backend that cannot start is fatal to the command.
func newPipeline(ctx context.Context, cfg types.Config, keywords []string, lib *library.Store) (*pipeline.Pipeline, error) {
	backend, err := generate.New(ctx, cfg.Generation, loadedSecrets, generate.WithLogger(log))
	if err != nil {
		return nil, err
	}
	log.Info("backend ready", "backend", backend.Name(), "model", cfg.Generation.Model)

	opts := []pipeline.Option{
		pipeline.WithLimits(generate.LimitsFrom(cfg.Generation)),
		pipeline.WithTimeout(cfg.Generation.RequestTimeout),
		pipeline.WithLogger(log),
	}
	if len(keywords) > 0 {
		opts = append(opts, pipeline.WithPolicy(slides.KeywordPolicy(keywords...)))
	}
	if lib != nil {
		opts = append(opts, pipeline.WithExemplarSource(lib))
	}
	return pipeline.New(backend, opts...), nil
}

// readUpload reads a local file as an upload named by its base name.
func readUpload(path string) (types.Upload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.Upload{}, fmt.Errorf("reading %s: %w", path, err)
	}
	return types.Upload{Name: filepath.Base(path), Data: data}, nil
}
