package logutils

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_File(t *testing.T) {
	file := filepath.Join(t.TempDir(), "logs", "taskman.log")

	log, closer, err := New("info", file)
	require.NoError(t, err)

	log.Debug().Msg("hidden")
	log.Info().Str("tool", "add").Msg("tool invoked")
	closer()

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "add", entry["tool"])
	assert.Equal(t, "tool invoked", entry["message"])
	assert.Contains(t, entry, "time")
}

func TestNew_FileAppends(t *testing.T) {
	file := filepath.Join(t.TempDir(), "taskman.log")

	for _, msg := range []string{"first", "second"} {
		log, closer, err := New("info", file)
		require.NoError(t, err)
		log.Info().Msg(msg)
		closer()
	}

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(string(data), "\n"))
}

func TestNew_Stderr(t *testing.T) {
	var buf bytes.Buffer

	log, closer, err := newWithStderr("warn", "", &buf)
	require.NoError(t, err)
	defer closer()

	log.Info().Msg("quiet")
	log.Warn().Msg("loud")

	assert.NotContains(t, buf.String(), "quiet")
	assert.Contains(t, buf.String(), "loud")
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())
}

func TestNew_InvalidLevel(t *testing.T) {
	_, closer, err := New("chatty", "")
	require.Error(t, err)
	assert.NotNil(t, closer)
}
