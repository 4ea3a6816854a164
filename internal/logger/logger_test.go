package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_QuietWithoutFileIsNop(t *testing.T) {
	log, closeFn, err := New(Options{Level: "debug", Quiet: true})
	require.NoError(t, err)
	defer closeFn()
	assert.False(t, log.Core().Enabled(-1), "nop logger should have nothing enabled")
}

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "examgen.log")
	log, closeFn, err := New(Options{Level: "info", Format: "json", File: path, Quiet: true})
	require.NoError(t, err)

	log.Debug("hidden")
	log.Info("generation complete")
	closeFn()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "generation complete", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Contains(t, entry, "timestamp")
}

func TestNew_InvalidLevel(t *testing.T) {
	_, _, err := New(Options{Level: "loud"})
	assert.Error(t, err)
}
