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

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	prev := SetOutput(buf)
	SetLevel(DEBUG)
	t.Cleanup(func() {
		SetOutput(prev)
		SetLevel(INFO)
	})
	return buf
}

func TestInfo_WritesJSONLine(t *testing.T) {
	buf := capture(t)

	Info("section fetched", "section", "geography", "rows", 12)

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "section fetched", entry["msg"])
	assert.Equal(t, "geography", entry["section"])
	assert.Equal(t, "12", entry["rows"])
}

func TestLevelFilter(t *testing.T) {
	buf := capture(t)
	SetLevel(WARN)

	Info("dropped")
	Warn("kept", "err", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0], `"err":"boom"`)
}

func TestRedaction(t *testing.T) {
	buf := capture(t)

	Info("sending", "recipients", "ops.team@example.com,ab@example.org", "access_token", "ya29.abcdefghijkl")

	out := buf.String()
	assert.NotContains(t, out, "ops.team@example.com")
	assert.Contains(t, out, "op***@example.com")
	assert.Contains(t, out, "***@example.org")
	assert.Contains(t, out, "****ijkl")
}

func TestParseLevel(t *testing.T) {
	l, ok := ParseLevel("warning")
	assert.True(t, ok)
	assert.Equal(t, WARN, l)

	l, ok = ParseLevel("loud")
	assert.False(t, ok)
	assert.Equal(t, INFO, l)
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "op***@example.com", RedactEmail("ops@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}
