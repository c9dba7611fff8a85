package logger

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process-wide logger. It is a no-op logger until Init is called,
// so packages can log safely from tests without any setup.
var Log = zap.NewNop()

// Debug switches Init to the development config (console encoder, debug level).
var Debug bool

var initOnce sync.Once

// Init builds the process logger. Calling it more than once is harmless.
func Init() {
	initOnce.Do(func() {
		var cfg zap.Config
		if Debug {
			cfg = zap.NewDevelopmentConfig()
		} else {
			cfg = zap.NewProductionConfig()
			cfg.Encoding = "console"
			cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		}
		cfg.DisableStacktrace = true

		l, err := cfg.Build()
		if err != nil {
			// Keep the no-op logger rather than failing the viewer over logging.
			return
		}
		Log = l
	})
}

// SetLogger replaces the process logger and returns a func restoring the previous one.
func SetLogger(l *zap.Logger) (restore func()) {
	prev := Log
	Log = l
	return func() { Log = prev }
}

// Sync flushes buffered log entries. Errors from syncing stderr are ignored.
func Sync() {
	_ = Log.Sync()
}
