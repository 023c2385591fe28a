package engine

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/namelens/domainwatch/internal/core"
	"github.com/namelens/domainwatch/internal/core/checker"
)

// Logger is the logging surface the engine writes to. Both *zap.Logger and
// the gofulmen logger satisfy it.
type Logger interface {
	Debug(msg string, fields ...zap.Field)
	Info(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
}

// Engine runs single check cycles. It holds no per-monitor state.
type Engine struct {
	Transports checker.Transports
	Logger     Logger
	Clock      func() time.Time
	NewID      func() string
}

// Decision is the outcome of comparing a fresh observation to the stored one.
type Decision struct {
	Emit   bool
	Update bool
}

// Decide applies the emission policy. The stored value is replaced only
// when it differs from current, in both modes.
func Decide(current bool, stored *bool, changesOnly bool) Decision {
	changed := stored == nil || *stored != current
	return Decision{
		Emit:   changed || !changesOnly,
		Update: changed,
	}
}

// Check performs one lookup and returns the event to emit, if any, together
// with the next state. Errors leave the state untouched.
func (e *Engine) Check(ctx context.Context, cfg core.CheckConfiguration, state core.CheckState) (*core.CheckEvent, core.CheckState, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if e == nil {
		return nil, state, errors.New("engine is not configured")
	}

	if !cfg.CheckType.Valid() {
		err := &core.InvalidTypeError{Type: cfg.CheckType}
		e.logger().Error(err.Error(), zap.String("monitor", cfg.Name), zap.String("domain", cfg.Domain))
		return nil, state, err
	}

	transport, err := e.Transports.For(cfg.Transport)
	if err != nil {
		return nil, state, err
	}

	result, err := transport.Lookup(ctx, cfg.Domain, cfg.Timeout())
	if err != nil {
		return nil, state, err
	}
	if result == nil {
		return nil, state, core.NewTransportError(cfg.Transport, cfg.Domain, "", checker.ErrMalformedResponse)
	}

	current, _ := result.Flag(cfg.CheckType)

	if cfg.Debug {
		e.logger().Info("parser : "+result.Message,
			zap.String("monitor", cfg.Name),
			zap.String("source", result.Source),
			zap.String("server", result.Server),
			zap.Bool("registered", result.Registered),
			zap.Bool("available", result.Available),
			zap.String("raw_hash", result.RawHash),
		)
		e.logger().Info(string(cfg.CheckType)+" is "+strconv.FormatBool(current), zap.String("monitor", cfg.Name))
	}

	decision := Decide(current, state.Stored(cfg.CheckType), cfg.ChangesOnly)

	next := state
	if decision.Update {
		next = state.With(cfg.CheckType, current)
	}

	if !decision.Emit {
		return nil, next, nil
	}

	return &core.CheckEvent{
		ID:        e.newID(),
		Monitor:   cfg.Name,
		Domain:    cfg.Domain,
		CheckType: cfg.CheckType,
		Value:     current,
		CreatedAt: e.now(),
	}, next, nil
}

func (e *Engine) logger() Logger {
	if e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}

func (e *Engine) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}

func (e *Engine) newID() string {
	if e.NewID != nil {
		return e.NewID()
	}
	return uuid.NewString()
}
