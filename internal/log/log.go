package log

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger    atomic.Pointer[zap.SugaredLogger]
	level     = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	verbosity atomic.Int32
)

func init() {
	// Warnings only until Init is called
	verbosity.Store(VerbosityWarn)
	logger.Store(zap.New(NewCore(CoreOptions{
		Level:  level,
		Format: "text",
		Output: os.Stderr,
	})).Sugar())
}

// Init initializes the global logger (call once at startup).
func Init(v int, format string) {
	SetVerbosity(v)

	l := zap.New(NewCore(CoreOptions{
		Level:  level,
		Format: format,
		Output: os.Stderr,
	}))
	logger.Store(l.Sugar())
	zap.ReplaceGlobals(l)
}

// SetVerbosity changes verbosity at runtime.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
	level.SetLevel(VerbosityToLevel(v))
}

// Verbosity returns the current verbosity level.
func Verbosity() int {
	return int(verbosity.Load())
}

// Sync flushes any buffered log entries.
func Sync() error {
	return logger.Load().Sync()
}

// Error logs at error level (v=0).
func Error(msg string, keysAndValues ...any) {
	logger.Load().Errorw(msg, keysAndValues...)
}

// Warn logs at warn level (v=1).
func Warn(msg string, keysAndValues ...any) {
	logger.Load().Warnw(msg, keysAndValues...)
}

// Info logs at info level (v=2).
func Info(msg string, keysAndValues ...any) {
	logger.Load().Infow(msg, keysAndValues...)
}

// Debug logs at debug level (v=3).
func Debug(msg string, keysAndValues ...any) {
	logger.Load().Debugw(msg, keysAndValues...)
}

// Trace logs at trace level (v=4).
func Trace(msg string, keysAndValues ...any) {
	l := logger.Load().Desugar()
	if ce := l.Check(LevelTrace, msg); ce != nil {
		ce.Write(fields(keysAndValues)...)
	}
}

// Component returns a logger tagged with component name.
func Component(name string) *zap.SugaredLogger {
	return logger.Load().With("component", name)
}

// fields converts loose key-value pairs into zap fields.
func fields(keysAndValues []any) []zap.Field {
	out := make([]zap.Field, 0, (len(keysAndValues)+1)/2)
	for i := 0; i < len(keysAndValues); i += 2 {
		key := fmt.Sprint(keysAndValues[i])
		if i+1 >= len(keysAndValues) {
			out = append(out, zap.Any("!BADKEY", keysAndValues[i]))
			break
		}
		out = append(out, zap.Any(key, keysAndValues[i+1]))
	}
	return out
}
