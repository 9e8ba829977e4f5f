package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/smileynet/postdesk/internal/config"
)

func TestNew_EmptyFileIsNop(t *testing.T) {
	log, err := New(config.Log{})
	require.NoError(t, err)

	assert.False(t, log.Core().Enabled(zap.ErrorLevel))
}

func TestNew_WritesJSONAtLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "postdesk.log")

	log, err := New(config.Log{File: path, Level: "warn"})
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", zap.String("key", "users?limit=10&page=0"))
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"level":"warn"`)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestNew_InvalidLevel(t *testing.T) {
	_, err := New(config.Log{File: filepath.Join(t.TempDir(), "x.log"), Level: "loud"})

	assert.ErrorContains(t, err, "logging: level")
}

func TestStderr(t *testing.T) {
	log, err := Stderr("debug")
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(zap.DebugLevel))

	_, err = Stderr("nope")
	assert.Error(t, err)
}
