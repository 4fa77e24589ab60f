// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the proposal-drafter CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/proposal-drafter/internal/generate"
	"github.com/pdiddy/proposal-drafter/internal/logger"
	"github.com/pdiddy/proposal-drafter/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

var (
	// loadedSecrets holds API keys loaded from the secrets directory and the environment.
	loadedSecrets map[string]string

	// log is the process logger, built once the configuration is read.
	log = logger.Nop()
)

// rootCmd is the base command for the proposal-drafter CLI.
var rootCmd = &cobra.Command{
	Use:   "proposal-drafter",
	Short: "Draft Objectives & Solutions sections from past slide decks",
	Long: `proposal-drafter turns past client presentations and a new project brief
into a first draft of an "Objectives & Solutions" section.

Slides mentioning objectives or solutions become examples; the brief is read
from a Word or text file; a text-generation backend (hosted, local, or echo)
writes the draft. The draft can be edited and exported as Word or plain text.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logger.New(viper.GetString("log.mode"))
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		log = l

		s, err := secrets.Load(viper.GetString("secrets_dir"), os.Stderr)
		if err != nil {
			return err
		}
		loadedSecrets = secrets.WithEnv(s, generate.SecretHostedToken, generate.SecretLocalKey)
		if len(loadedSecrets) > 0 {
			keys := make([]string, 0, len(loadedSecrets))
			for k := range loadedSecrets {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		log.Sync()
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./proposal-drafter.yaml or ~/.config/proposal-drafter/proposal-drafter.yaml)")
	pf.String("secrets-dir", ".secrets", "directory of secret files (hf-api-token, local-api-key)")
	pf.String("log-mode", "dev", "log output: dev (console) or prod (JSON)")
	pf.String("library-dir", "library", "directory holding the exemplar library database")

	pf.String("backend", string(defaultBackend), "generation backend: hosted, local, or echo")
	pf.String("model", "", "model identifier (hosted repo ID or local model name)")
	pf.String("model-path", "", "on-disk path of the local quantized model; startup fails if missing")
	pf.String("base-url", "", "override the backend endpoint")
	pf.Int("max-length", generate.DefaultMaxLength, "maximum output length (hosted)")
	pf.Int("max-new-tokens", generate.DefaultMaxNewTokens, "new-token budget (local)")
	pf.Float64("temperature", generate.DefaultTemperature, "sampling temperature (local)")
	pf.Duration("request-timeout", defaultRequestTimeout, "bound on one generation call (0 = none)")
	pf.Bool("serialize", false, "serialize every generation call behind one lock")
	pf.Bool("skip-probe", false, "skip the backend readiness probe at startup")
	pf.Duration("probe-timeout", generate.DefaultProbeTimeout, "total time the startup probe waits for a loading model")
}

// flagKeys maps configuration keys to the root flags that override them.
// Temperature is applied separately so an unset value keeps its nil meaning.
var flagKeys = map[string]string{
	"secrets_dir":                "secrets-dir",
	"log.mode":                   "log-mode",
	"library.dir":                "library-dir",
	"generation.backend":         "backend",
	"generation.model":           "model",
	"generation.model_path":      "model-path",
	"generation.base_url":        "base-url",
	"generation.max_length":      "max-length",
	"generation.max_new_tokens":  "max-new-tokens",
	"generation.request_timeout": "request-timeout",
	"generation.serialize":       "serialize",
	"generation.skip_probe":      "skip-probe",
	"generation.probe_timeout":   "probe-timeout",
}

// bindFlags lets flags override configuration keys. It runs on every
// execution since a viper reset drops earlier bindings.
func bindFlags() {
	pf := rootCmd.PersistentFlags()
	for key, flag := range flagKeys {
		_ = viper.BindPFlag(key, pf.Lookup(flag))
	}
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.max_upload_bytes", serveCmd.Flags().Lookup("max-upload-bytes"))
	_ = viper.BindPFlag("server.allow_origins", serveCmd.Flags().Lookup("allow-origin"))
}

func initConfig() {
	// .env only fills variables that are not already set.
	if err := godotenv.Load(); err == nil {
		fmt.Fprintln(os.Stderr, "Loaded .env")
	}

	setDefaults()
	bindFlags()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("proposal-drafter")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "proposal-drafter"))
		}
	}

	viper.SetEnvPrefix("PROPOSAL_DRAFTER")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
