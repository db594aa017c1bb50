package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestStructuredLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "info", Format: "json", ServiceName: "authgreet", Output: &buf})

	ctx := ContextWithSessionID(context.Background(), "sess-1")
	log.WithFields(map[string]interface{}{"component": "test"}).
		Error(ctx, "login failed", errors.New("boom"), map[string]interface{}{"email": "a@x.io"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "login failed", entry["msg"])
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "sess-1", entry["session_id"])
	assert.Equal(t, "boom", entry["error"])
	assert.Equal(t, "authgreet", entry["service"])
	assert.Equal(t, "test", entry["component"])
	assert.Equal(t, "a@x.io", entry["email"])
}

func TestStructuredLogger_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "warn", Format: "json", Output: &buf})

	log.Debug(context.Background(), "hidden", nil)
	log.Info(context.Background(), "hidden", nil)
	log.Warn(context.Background(), "shown", nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestLogAuthEvent(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "info", Format: "json", Output: &buf})

	LogAuthEvent(context.Background(), log, "login", "user-1", "127.0.0.1", true, nil)
	LogAuthEvent(context.Background(), log, "login", "", "127.0.0.1", false, map[string]interface{}{"reason": "invalid_credentials"})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "info", lines[0]["level"])
	assert.Equal(t, true, lines[0]["success"])
	assert.Equal(t, "warning", lines[1]["level"])
	assert.Equal(t, "invalid_credentials", lines[1]["reason"])
}

func TestSecurityAndPerformanceEvents(t *testing.T) {
	var buf bytes.Buffer
	log := NewStructuredLogger(LoggerConfig{Level: "debug", Format: "json", Output: &buf})

	LogSecurityEvent(context.Background(), log, "refresh_rejected", "MEDIUM", nil)
	LogSecurityEvent(context.Background(), log, "forged_token", "HIGH", nil)
	LogPerformance(context.Background(), log, "password_verify", 42*time.Millisecond, nil)

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "warning", lines[0]["level"])
	assert.Equal(t, "security", lines[0]["event_type"])
	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "debug", lines[2]["level"])
	assert.Equal(t, float64(42), lines[2]["duration_ms"])
}

func TestSessionIDFromContext_Missing(t *testing.T) {
	assert.Empty(t, SessionIDFromContext(context.Background()))
}
