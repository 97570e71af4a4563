package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel sits below Debug and is used for per-node traversal output.
const TraceLevel = zapcore.DebugLevel - 1

// LevelFromString maps a configured level name to a zap level. Names are
// case-insensitive and "trace" selects TraceLevel.
func LevelFromString(name string) (zapcore.Level, error) {
	switch n := strings.ToLower(strings.TrimSpace(name)); n {
	case "trace":
		return TraceLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	default:
		var lvl zapcore.Level
		if err := lvl.UnmarshalText([]byte(n)); err != nil {
			return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
		}
		return lvl, nil
	}
}
