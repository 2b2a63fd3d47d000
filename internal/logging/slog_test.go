package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/blobvault/internal/config"
)

func newJSONLogger(t *testing.T, level slog.Level) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: level})
	return NewSlogLogger(slog.New(h)), &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestSlogLogger_Levels(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelDebug)
	ctx := context.Background()

	log.Debug(ctx, "schema ensured", "applied", 1)
	log.Info(ctx, "file inserted", "id", 7)
	log.Warn(ctx, "export verification failed", "id", 7)
	log.Error(ctx, "open storage failed", "error", "refused")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 4)

	want := []struct{ level, msg, key string }{
		{"DEBUG", "schema ensured", "applied"},
		{"INFO", "file inserted", "id"},
		{"WARN", "export verification failed", "id"},
		{"ERROR", "open storage failed", "error"},
	}
	for i, w := range want {
		assert.Equal(t, w.level, lines[i]["level"])
		assert.Equal(t, w.msg, lines[i]["msg"])
		assert.Contains(t, lines[i], w.key)
	}
}

func TestSlogLogger_LevelFilter(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelWarn)
	ctx := context.Background()

	log.Debug(ctx, "hidden")
	log.Info(ctx, "hidden")
	log.Warn(ctx, "shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
}

func TestSlogLogger_WithKeepsParentUnchanged(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)
	ctx := context.Background()

	child := log.With("engine", "sqlite", "run", "r-1")
	child.Info(ctx, "storage opened")
	log.Info(ctx, "plain")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "sqlite", lines[0]["engine"])
	assert.Equal(t, "r-1", lines[0]["run"])
	assert.NotContains(t, lines[1], "engine")
}

func TestSlogLogger_ConfigLogValueOmitsPassword(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	cfg := config.Config{Engine: config.EngineMySQL, Host: "db", Port: 3306, User: "app", Password: "pw-123", Database: "files"}
	log.Info(context.Background(), "storage opened", "config", cfg)

	assert.NotContains(t, buf.String(), "pw-123")
	lines := decodeLines(t, buf)
	group, ok := lines[0]["config"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "db", group["host"])
}

func TestSlogLogger_NilContextAndLogger(t *testing.T) {
	log, buf := newJSONLogger(t, slog.LevelInfo)

	log.Info(nil, "still logged")
	assert.Contains(t, buf.String(), "still logged")

	assert.NotNil(t, NewSlogLogger(nil))
}

func TestNewNop_Discards(t *testing.T) {
	log := NewNop()
	log.Info(context.Background(), "nothing", "k", "v")
	log.With("a", 1).Error(context.Background(), "still nothing")
}
