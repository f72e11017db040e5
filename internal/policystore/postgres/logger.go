package postgres

import (
	"context"
	"log/slog"

	sqldblogger "github.com/simukti/sqldb-logger"
)

// slogAdapter satisfies sqldblogger.Logger by forwarding every driver-level
// event to a *slog.Logger, the same structured sink the rest of the module
// logs through.
type slogAdapter struct {
	logger *slog.Logger
}

func (a slogAdapter) Log(ctx context.Context, level sqldblogger.Level, msg string, data map[string]interface{}) {
	attrs := make([]any, 0, len(data)*2)
	for k, v := range data {
		attrs = append(attrs, slog.Any(k, v))
	}

	var slogLevel slog.Level
	switch level {
	case sqldblogger.LevelError:
		slogLevel = slog.LevelError
	case sqldblogger.LevelInfo:
		slogLevel = slog.LevelInfo
	case sqldblogger.LevelDebug, sqldblogger.LevelTrace:
		slogLevel = slog.LevelDebug
	default:
		slogLevel = slog.LevelInfo
	}
	a.logger.Log(ctx, slogLevel, msg, attrs...)
}
