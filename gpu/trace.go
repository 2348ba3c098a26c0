package gpu

import (
	"context"
	"log/slog"
)

// LevelTrace sits above Info so cycle-level traces stay out of normal logs
// unless explicitly enabled.
const LevelTrace slog.Level = slog.LevelInfo + 1

// Trace emits a structured cycle-level trace record.
func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}
