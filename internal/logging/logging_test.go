// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package logging

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/jeranaias/flybuddy/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zap.DebugLevel,
		"INFO":    zap.InfoLevel,
		"warn":    zap.WarnLevel,
		"warning": zap.WarnLevel,
		" error ": zap.ErrorLevel,
		"":        zap.InfoLevel,
		"trace":   zap.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestNew_WritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "flybuddy.log")

	logger, err := New(config.LogConfig{Level: "info"}, path)
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("conversation saved", zap.String("id", "abc"))
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "conversation saved", entry["msg"])
	assert.Equal(t, "abc", entry["id"])
	assert.Equal(t, "flybuddy", entry["logger"])
}

func TestLogger_SetLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flybuddy.log")
	logger, err := New(config.LogConfig{Level: "error"}, path)
	require.NoError(t, err)

	logger.Info("before")
	logger.SetLevel("debug")
	assert.Equal(t, zap.DebugLevel, logger.Level())
	logger.Debug("after")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "before")
	assert.Contains(t, string(data), "after")
}

func TestFromConfig(t *testing.T) {
	t.Setenv("FLYBUDDY_HOME", t.TempDir())
	cfg := config.Default()
	cfg.Log.File = filepath.Join(t.TempDir(), "custom.log")

	logger, err := FromConfig(cfg)
	require.NoError(t, err)
	logger.Info("hello")
	require.NoError(t, logger.Close())

	_, err = os.Stat(cfg.Log.File)
	assert.NoError(t, err)
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info("ignored")
	logger.SetLevel("warn")
	assert.Equal(t, zap.WarnLevel, logger.Level())
}
