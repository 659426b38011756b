package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_JSONFieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelInfo, Format: "json"})

	log.Debug("hidden")
	log.With(Component("progress")).Info("lesson completed",
		UserID("u-1"), LessonID(3), Float64("score", 87.5), Err(errors.New("boom")))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	entry := lines[0]
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "lesson completed", entry["message"])
	assert.Equal(t, "progress", entry["component"])
	assert.Equal(t, "u-1", entry["user_id"])
	assert.Equal(t, float64(3), entry["lesson_id"])
	assert.Equal(t, 87.5, entry["score"])
	assert.Equal(t, "boom", entry["error"])
}

func TestLogger_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelDebug})

	log.Info("login", String("password", "hunter22"), String("access_token", "eyJ..."), Username("ada"))

	out := buf.String()
	assert.NotContains(t, out, "hunter22")
	assert.NotContains(t, out, "eyJ")
	assert.Contains(t, out, redacted)
	assert.Contains(t, out, "ada")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}

func TestNilErrorIsSkipped(t *testing.T) {
	var buf bytes.Buffer
	New(Options{Output: &buf}).Info("ok", Err(nil))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	_, present := lines[0]["error"]
	assert.False(t, present)
}
