package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/vadiminshakov/ultracore/pkg/retrier"
)

// Scheduler runs the match engine on a fixed interval until the context is
// cancelled. Each cycle is wrapped in a retrier so a transiently failing
// cycle is retried with backoff before the next tick.
type Scheduler struct {
	engine   *MatchEngine
	interval time.Duration
	retrier  *retrier.Retrier
	logger   *zap.Logger
}

func NewScheduler(e *MatchEngine, interval time.Duration, r *retrier.Retrier, logger *zap.Logger) *Scheduler {
	return &Scheduler{engine: e, interval: interval, retrier: r, logger: logger}
}

// Run blocks, executing one cycle per tick. It returns the context error on
// cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := s.retrier.Do(ctx, func(ctx context.Context) error {
				return s.engine.Execute()
			})
			if err != nil {
				s.logger.Error("match cycle failed", zap.Error(err))
			}
		}
	}
}
