// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"ERROR", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.input), "parseLevel(%q)", tt.input)
	}
}

func TestNewDefaultsToJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Output: &buf})

	logger.Info("hello", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestNewTextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Format: FormatText, Output: &buf})

	logger.Info("hello")

	assert.Contains(t, buf.String(), "msg=hello")
}

func TestNewRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Level: "warn", Output: &buf})

	logger.Info("suppressed")
	assert.Empty(t, buf.String())

	logger.Warn("emitted")
	assert.Contains(t, buf.String(), "emitted")
}

func TestNewNilConfig(t *testing.T) {
	assert.NotNil(t, New(nil))
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("FERRY_DEBUG", "")
	t.Setenv("FERRY_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("LOG_SOURCE", "")

	cfg := FromEnv()
	assert.Equal(t, "info", cfg.Level)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.False(t, cfg.AddSource)
}

func TestFromEnvDebugTakesPrecedence(t *testing.T) {
	t.Setenv("FERRY_DEBUG", "1")
	t.Setenv("FERRY_LOG_LEVEL", "error")

	cfg := FromEnv()
	assert.Equal(t, "debug", cfg.Level)
	assert.True(t, cfg.AddSource)
}

func TestFromEnvLevelPrecedence(t *testing.T) {
	t.Setenv("FERRY_DEBUG", "")
	t.Setenv("FERRY_LOG_LEVEL", "TRACE")
	t.Setenv("LOG_LEVEL", "error")

	cfg := FromEnv()
	assert.Equal(t, "trace", cfg.Level)
}

func TestFromEnvFallsBackToLogLevel(t *testing.T) {
	t.Setenv("FERRY_DEBUG", "")
	t.Setenv("FERRY_LOG_LEVEL", "")
	t.Setenv("LOG_LEVEL", "warn")

	cfg := FromEnv()
	assert.Equal(t, "warn", cfg.Level)
}

func TestFromEnvFormatAndSource(t *testing.T) {
	t.Setenv("LOG_FORMAT", "TEXT")
	t.Setenv("LOG_SOURCE", "1")

	cfg := FromEnv()
	assert.Equal(t, FormatText, cfg.Format)
	assert.True(t, cfg.AddSource)
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Output: &buf})

	WithComponent(logger, "dispatch").Info("routed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "dispatch", entry[ComponentKey])
}

func TestWithTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&Config{Output: &buf})

	WithTraceID(logger, "abc-123").Info("seen")

	line := strings.TrimSpace(buf.String())
	assert.Contains(t, line, `"trace_id":"abc-123"`)
}
