package database

import (
	"context"
	"time"

	"github.com/uptrace/bun"
	"go.uber.org/zap"
)

// slowQueryHook warns about statements that run longer than threshold.
type slowQueryHook struct {
	threshold time.Duration
	logger    *zap.Logger
	since     func(time.Time) time.Duration
}

var _ bun.QueryHook = (*slowQueryHook)(nil)

func newSlowQueryHook(threshold time.Duration, logger *zap.Logger) *slowQueryHook {
	return &slowQueryHook{threshold: threshold, logger: logger, since: time.Since}
}

func (h *slowQueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *slowQueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	took := h.since(event.StartTime)
	if took < h.threshold {
		return
	}
	h.logger.Warn("slow query",
		zap.String("operation", event.Operation()),
		zap.Duration("took", took),
		zap.String("query", truncate(event.Query, 512)),
		zap.Error(event.Err),
	)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
