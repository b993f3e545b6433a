package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/uptrace/bun"
)

// LogHook is a bun.QueryHook that logs executed statements.
type LogHook struct {
	logger *slog.Logger
}

var _ bun.QueryHook = (*LogHook)(nil)

// NewLogHook returns a hook logging through logger, or slog.Default when nil.
func NewLogHook(logger *slog.Logger) *LogHook {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogHook{logger: logger}
}

func (h *LogHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *LogHook) AfterQuery(ctx context.Context, event *bun.QueryEvent) {
	level := slog.LevelDebug
	attrs := []slog.Attr{
		slog.String("operation", event.Operation()),
		slog.Duration("duration", time.Since(event.StartTime)),
		slog.String("query", event.Query),
	}
	if event.Err != nil && !isNoRows(event.Err) {
		level = slog.LevelWarn
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	h.logger.LogAttrs(ctx, level, "sql", attrs...)
}
