// Package log is the filesentry logging facade over uber-go/zap.
// Verbosity follows the -v=N convention: each step admits one more level.
package log

import "go.uber.org/zap/zapcore"

// LevelTrace sits one step below zap's Debug.
const LevelTrace = zapcore.Level(-2)

// Verbosity steps accepted by -v and log.verbosity.
const (
	VerbosityError = iota // errors only
	VerbosityWarn         // unreadable files, discarded baselines
	VerbosityInfo         // config, scan summaries, saves
	VerbosityDebug        // per-file hashing, lock and codec detail
	VerbosityTrace        // traversal decisions
)

// verbosityLevels is indexed by verbosity step.
var verbosityLevels = [...]zapcore.Level{
	VerbosityError: zapcore.ErrorLevel,
	VerbosityWarn:  zapcore.WarnLevel,
	VerbosityInfo:  zapcore.InfoLevel,
	VerbosityDebug: zapcore.DebugLevel,
	VerbosityTrace: LevelTrace,
}

// VerbosityToLevel maps -v=N to the minimum enabled zap level.
// Out-of-range values clamp to the nearest step.
func VerbosityToLevel(v int) zapcore.Level {
	v = max(v, VerbosityError)
	v = min(v, VerbosityTrace)
	return verbosityLevels[v]
}

// LevelName renders a level for the encoder, naming the trace level.
func LevelName(l zapcore.Level) string {
	if l == LevelTrace {
		return "TRACE"
	}
	return l.CapitalString()
}
