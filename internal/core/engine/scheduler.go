package engine

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/namelens/domainwatch/internal/core"
)

// DefaultInterval is the cadence between cycles of one monitor.
const DefaultInterval = time.Hour

// Scheduler runs every monitor immediately and then on a fixed interval.
// Cycles of one monitor never overlap; monitors run independently.
type Scheduler struct {
	Runner   *Runner
	Monitors []core.CheckConfiguration
	Interval time.Duration
	Logger   Logger

	// OnCycle is called after every cycle, successful or not.
	OnCycle func(cfg core.CheckConfiguration, result *Result, err error)
}

// Run blocks until ctx is cancelled. Cycle errors are logged and retried
// on the next tick.
func (s *Scheduler) Run(ctx context.Context) error {
	if s == nil || s.Runner == nil {
		return errors.New("scheduler is not configured")
	}
	if len(s.Monitors) == 0 {
		return errors.New("no monitors configured")
	}

	interval := s.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	s.logger().Info("scheduler starting",
		zap.Int("monitors", len(s.Monitors)),
		zap.Duration("interval", interval),
	)

	g, gCtx := errgroup.WithContext(ctx)
	for _, cfg := range s.Monitors {
		g.Go(func() error {
			s.loop(gCtx, cfg, interval)
			return nil
		})
	}

	err := g.Wait()
	s.logger().Info("scheduler stopped")
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (s *Scheduler) loop(ctx context.Context, cfg core.CheckConfiguration, interval time.Duration) {
	s.cycle(ctx, cfg)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.cycle(ctx, cfg)
		}
	}
}

func (s *Scheduler) cycle(ctx context.Context, cfg core.CheckConfiguration) {
	if ctx.Err() != nil {
		return
	}
	result, err := s.Runner.RunOnce(ctx, cfg)
	if err != nil {
		s.logger().Warn("cycle failed, retrying on next tick",
			zap.String("monitor", cfg.Name),
			zap.Error(err),
		)
	}
	if s.OnCycle != nil {
		s.OnCycle(cfg, result, err)
	}
}

func (s *Scheduler) logger() Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}
