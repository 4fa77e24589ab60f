// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("backend ready", "backend", "hosted", "api_key", "hf_abc", "hf-api-token", "hf_def")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "hosted", fields["backend"])
	assert.Equal(t, "[REDACTED]", fields["api_key"])
	assert.Equal(t, "[REDACTED]", fields["hf-api-token"])
}

func TestWithKeepsFields(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := FromZap(zap.New(core)).With("request_id", "r-1")

	l.Warn("slow")
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "r-1", logs.All()[0].ContextMap()["request_id"])
}

func TestOddKeyValues(t *testing.T) {
	assert.Equal(t, []interface{}{"a", 1, "dangling"}, sanitizeKVs([]interface{}{"a", 1, "dangling"}))
}

func TestNew(t *testing.T) {
	for _, mode := range []string{"dev", "prod"} {
		l, err := New(mode)
		require.NoError(t, err)
		l.Debug("hello")
	}
	Nop().Info("discarded")
}
