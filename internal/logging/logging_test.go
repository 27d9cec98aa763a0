package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, l)

	l, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, l)

	_, err = ParseLevel("loud")
	assert.Error(t, err)
}

func TestNewVerboseForcesDebug(t *testing.T) {
	logger, level, err := New(Options{Level: "error", Format: "console", Verbose: true})
	require.NoError(t, err)
	defer logger.Sync()

	assert.Equal(t, zapcore.DebugLevel, level.Level())
	level.SetLevel(zapcore.WarnLevel)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
