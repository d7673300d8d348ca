package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op until InitLogger runs.
var Log = zap.NewNop()

// InitLogger installs a production JSON logger at the given level ("debug", "info", ...).
func InitLogger(level string) {
	lvl := zap.NewAtomicLevelAt(zap.InfoLevel)
	if level != "" {
		if err := lvl.UnmarshalText([]byte(level)); err != nil {
			lvl = zap.NewAtomicLevelAt(zap.InfoLevel)
		}
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build()
	if err != nil {
		l = zap.NewExample()
		l.Warn("Falling back to example logger", zap.Error(err))
	}
	Log = l
	zap.ReplaceGlobals(l)
}

// Sync flushes buffered log entries.
func Sync() {
	_ = Log.Sync()
}
