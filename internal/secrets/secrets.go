// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads API keys from a directory of plain-text files. Each
// file is one secret: the filename is the key and the trimmed contents are
// the value. Keys absent from the directory may be supplied through the
// environment (including a .env file loaded at startup).
//
// Known keys: hf-api-token (hosted backend), local-api-key (local backend).
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files produce a warning on warn but do not abort.
func Load(dir string, warn io.Writer) (map[string]string, error) {
	if warn == nil {
		warn = io.Discard
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(warn, "warning: could not read secret %s: %v\n", name, err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}
	return secrets, nil
}

// EnvName returns the environment variable consulted for key:
// "hf-api-token" becomes "HF_API_TOKEN".
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// WithEnv fills each of keys missing from secrets with the value of its
// environment variable, when set. Files win over the environment.
func WithEnv(secrets map[string]string, keys ...string) map[string]string {
	if secrets == nil {
		secrets = map[string]string{}
	}
	for _, k := range keys {
		if _, ok := secrets[k]; ok {
			continue
		}
		if v := strings.TrimSpace(os.Getenv(EnvName(k))); v != "" {
			secrets[k] = v
		}
	}
	return secrets
}
