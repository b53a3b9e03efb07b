package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Text(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "debug", NoColor: true, Writer: &buf})
	require.NoError(t, err)

	log.Debug("search finished", "gain", 3.956)
	assert.Contains(t, buf.String(), "search finished")
	assert.Contains(t, buf.String(), "gain=3.956")
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	log, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	require.NoError(t, err)

	log.Info("dropped")
	log.Warn("original system is unstable", "session", "abc")
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "WARN", rec["level"])
	assert.Equal(t, "abc", rec["session"])
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
	_, err = New(Config{Format: "xml"})
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("DEBUG")
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, lvl)
}
