package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func restoreGlobal(t *testing.T) {
	prev := Log
	t.Cleanup(func() {
		Log = prev
		zap.ReplaceGlobals(prev)
	})
}

func TestInitLoggerEmitsAtLevel(t *testing.T) {
	restoreGlobal(t)

	InitLogger("info")
	assert.True(t, Log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, Log.Core().Enabled(zapcore.FatalLevel))
	assert.False(t, Log.Core().Enabled(zapcore.DebugLevel))

	InitLogger("debug")
	assert.True(t, Log.Core().Enabled(zapcore.DebugLevel))
}

func TestInitLoggerUnknownLevelFallsBackToInfo(t *testing.T) {
	restoreGlobal(t)

	InitLogger("loud")
	assert.True(t, Log.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, Log.Core().Enabled(zapcore.DebugLevel))
}
