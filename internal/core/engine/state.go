package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/namelens/domainwatch/internal/core"
)

// StateStore is the per-monitor key/value memory.
type StateStore interface {
	GetMemory(ctx context.Context, monitor, key string) (*bool, error)
	SetMemory(ctx context.Context, monitor, key string, value bool) error
}

// ActivityStore records host-side activity used for liveness.
type ActivityStore interface {
	GetActivity(ctx context.Context, monitor string) (core.MonitorActivity, error)
	RecordCheck(ctx context.Context, monitor string, at time.Time) error
	RecordEvent(ctx context.Context, monitor string, at time.Time) error
	RecordError(ctx context.Context, monitor string, at time.Time, message string) error
}

// EventSink receives emitted events.
type EventSink interface {
	Emit(ctx context.Context, event *core.CheckEvent) error
}

var stateKeys = []core.CheckType{core.CheckTypeRegistered, core.CheckTypeAvailable}

// LoadState reads both memory slots of a monitor.
func LoadState(ctx context.Context, store StateStore, monitor string) (core.CheckState, error) {
	var state core.CheckState
	for _, checkType := range stateKeys {
		value, err := store.GetMemory(ctx, monitor, checkType.MemoryKey())
		if err != nil {
			return core.CheckState{}, fmt.Errorf("load %s for %s: %w", checkType.MemoryKey(), monitor, err)
		}
		if value != nil {
			state = state.With(checkType, *value)
		}
	}
	return state, nil
}

// SaveState writes the slots that differ between prev and next. Slots are
// never cleared.
func SaveState(ctx context.Context, store StateStore, monitor string, prev, next core.CheckState) error {
	for _, checkType := range stateKeys {
		value := next.Stored(checkType)
		if value == nil {
			continue
		}
		if old := prev.Stored(checkType); old != nil && *old == *value {
			continue
		}
		if err := store.SetMemory(ctx, monitor, checkType.MemoryKey(), *value); err != nil {
			return fmt.Errorf("save %s for %s: %w", checkType.MemoryKey(), monitor, err)
		}
	}
	return nil
}
