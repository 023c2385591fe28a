package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/metrics"
)

// Runner performs the host duties around a cycle: loading and saving state,
// delivering events and recording activity.
type Runner struct {
	Engine   *Engine
	State    StateStore
	Activity ActivityStore
	Sink     EventSink
	Logger   Logger
	Clock    func() time.Time

	// cycles holds one single-slot channel per monitor name.
	cycles sync.Map
}

// Result describes a completed cycle.
type Result struct {
	Monitor string           `json:"monitor" yaml:"monitor"`
	Event   *core.CheckEvent `json:"event" yaml:"event"`
	State   core.CheckState  `json:"state" yaml:"state"`
	Changed bool             `json:"changed" yaml:"changed"`
	DryRun  bool             `json:"dry_run,omitempty" yaml:"dry_run,omitempty"`
}

// RunOnce runs one cycle for cfg. State is saved only after a successful
// lookup, and only when it changed.
func (r *Runner) RunOnce(ctx context.Context, cfg core.CheckConfiguration) (*Result, error) {
	return r.run(ctx, cfg, false)
}

// DryRun performs the lookup and decision without persisting state or
// emitting the event.
func (r *Runner) DryRun(ctx context.Context, cfg core.CheckConfiguration) (*Result, error) {
	return r.run(ctx, cfg, true)
}

func (r *Runner) run(ctx context.Context, cfg core.CheckConfiguration, dryRun bool) (*Result, error) {
	if r == nil || r.Engine == nil || r.State == nil {
		return nil, errors.New("runner is not configured")
	}

	release, err := r.acquire(ctx, cfg.Name)
	if err != nil {
		return nil, err
	}
	defer release()

	started := r.now()
	log := r.logger()

	prev, err := LoadState(ctx, r.State, cfg.Name)
	if err != nil {
		return nil, err
	}

	event, next, err := r.Engine.Check(ctx, cfg, prev)
	if err != nil {
		metrics.RecordCheck(cfg.Name, false, time.Since(started))
		kind := "error"
		if core.IsTimeout(err) {
			kind = "timeout"
		}
		metrics.RecordTransportError(cfg.Name, kind)

		log.Error("check failed",
			zap.String("monitor", cfg.Name),
			zap.String("domain", cfg.Domain),
			zap.Bool("timeout", kind == "timeout"),
			zap.Error(err),
		)
		if !dryRun {
			r.recordError(ctx, cfg.Name, err)
		}
		return nil, err
	}
	metrics.RecordCheck(cfg.Name, true, time.Since(started))

	result := &Result{
		Monitor: cfg.Name,
		Event:   event,
		State:   next,
		Changed: !prev.Equal(next),
		DryRun:  dryRun,
	}

	if dryRun {
		log.Debug("dry run completed", zap.String("monitor", cfg.Name), zap.Bool("would_emit", event != nil))
		return result, nil
	}

	if event != nil && r.Sink != nil {
		if err := r.Sink.Emit(ctx, event); err != nil {
			err = fmt.Errorf("emit event for %s: %w", cfg.Name, err)
			log.Error("event delivery failed", zap.String("monitor", cfg.Name), zap.Error(err))
			r.recordError(ctx, cfg.Name, err)
			return nil, err
		}
	}

	if result.Changed {
		if err := SaveState(ctx, r.State, cfg.Name, prev, next); err != nil {
			log.Error("state save failed", zap.String("monitor", cfg.Name), zap.Error(err))
			r.recordError(ctx, cfg.Name, err)
			return nil, err
		}
	}

	now := r.now()
	if r.Activity != nil {
		if err := r.Activity.RecordCheck(ctx, cfg.Name, now); err != nil {
			log.Warn("failed to record check", zap.String("monitor", cfg.Name), zap.Error(err))
		}
		if event != nil {
			if err := r.Activity.RecordEvent(ctx, cfg.Name, now); err != nil {
				log.Warn("failed to record event", zap.String("monitor", cfg.Name), zap.Error(err))
			}
		}
	}

	if event != nil {
		metrics.RecordEvent(cfg.Name, string(event.CheckType), event.Value)
		log.Info("event emitted",
			zap.String("monitor", cfg.Name),
			zap.String("domain", event.Domain),
			zap.String(string(event.CheckType), strconv.FormatBool(event.Value)),
		)
	} else {
		log.Debug("no change", zap.String("monitor", cfg.Name))
	}

	return result, nil
}

// Status reports the stored state, activity and liveness of a monitor.
func (r *Runner) Status(ctx context.Context, cfg core.CheckConfiguration) (core.MonitorStatus, error) {
	status := core.MonitorStatus{Config: cfg}
	if r == nil || r.State == nil {
		return status, errors.New("runner is not configured")
	}

	state, err := LoadState(ctx, r.State, cfg.Name)
	if err != nil {
		return status, err
	}
	status.State = state

	if r.Activity != nil {
		activity, err := r.Activity.GetActivity(ctx, cfg.Name)
		if err != nil {
			return status, fmt.Errorf("load activity for %s: %w", cfg.Name, err)
		}
		status.Activity = activity
	}

	recent := RecentErrorLogs(status.Activity.LastEventAt, status.Activity.LastErrorAt)
	status.Working = IsWorking(status.Activity.LastEventAt, cfg.ExpectedReceivePeriodDays, recent, r.now())
	return status, nil
}

// acquire serializes cycles of one monitor so each one starts from the
// state its predecessor saved. It gives up when ctx is done.
func (r *Runner) acquire(ctx context.Context, monitor string) (func(), error) {
	slot, _ := r.cycles.LoadOrStore(monitor, make(chan struct{}, 1))
	sem := slot.(chan struct{})
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for in-flight cycle of %s: %w", monitor, ctx.Err())
	}
}

func (r *Runner) recordError(ctx context.Context, monitor string, cause error) {
	if r.Activity == nil {
		return
	}
	if err := r.Activity.RecordError(ctx, monitor, r.now(), cause.Error()); err != nil {
		r.logger().Warn("failed to record error", zap.String("monitor", monitor), zap.Error(err))
	}
}

func (r *Runner) logger() Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
