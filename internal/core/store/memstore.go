package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/namelens/domainwatch/internal/core"
)

// Memory is a process-local store with the same surface as Store. It backs
// one-shot runs that should not touch disk, and tests.
type Memory struct {
	mu       sync.Mutex
	memory   map[string]map[string]bool
	activity map[string]core.MonitorActivity
	events   []core.CheckEvent
	logs     []LogEntry
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		memory:   make(map[string]map[string]bool),
		activity: make(map[string]core.MonitorActivity),
	}
}

func (m *Memory) GetMemory(_ context.Context, monitor, key string) (*bool, error) {
	monitor, key, err := memoryKey(monitor, key)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	value, ok := m.memory[monitor][key]
	if !ok {
		return nil, nil
	}
	return &value, nil
}

func (m *Memory) SetMemory(_ context.Context, monitor, key string, value bool) error {
	monitor, key, err := memoryKey(monitor, key)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	slots, ok := m.memory[monitor]
	if !ok {
		slots = make(map[string]bool)
		m.memory[monitor] = slots
	}
	slots[key] = value
	return nil
}

func (m *Memory) GetActivity(_ context.Context, monitor string) (core.MonitorActivity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activity[monitor], nil
}

func (m *Memory) RecordCheck(_ context.Context, monitor string, at time.Time) error {
	m.update(monitor, func(a *core.MonitorActivity) { a.LastCheckAt = utcPtr(at) })
	return nil
}

func (m *Memory) RecordEvent(_ context.Context, monitor string, at time.Time) error {
	m.update(monitor, func(a *core.MonitorActivity) { a.LastEventAt = utcPtr(at) })
	return nil
}

func (m *Memory) RecordError(ctx context.Context, monitor string, at time.Time, message string) error {
	m.update(monitor, func(a *core.MonitorActivity) {
		a.LastErrorAt = utcPtr(at)
		a.LastError = message
	})
	return m.AppendLog(ctx, monitor, "error", message, at)
}

func (m *Memory) AppendLog(_ context.Context, monitor, level, message string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, LogEntry{
		ID:        uuid.NewString(),
		Monitor:   monitor,
		Level:     level,
		Message:   message,
		CreatedAt: at.UTC(),
	})
	return nil
}

func (m *Memory) AppendEvent(_ context.Context, event *core.CheckEvent) error {
	if event == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.events {
		if event.ID != "" && existing.ID == event.ID {
			return nil
		}
	}
	m.events = append(m.events, *event)
	return nil
}

func (m *Memory) ListEvents(_ context.Context, monitor string, limit uint) ([]core.CheckEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.CheckEvent
	for _, event := range m.events {
		if monitor == "" || event.Monitor == monitor {
			out = append(out, event)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (m *Memory) ListLogs(_ context.Context, monitor string, limit uint) ([]LogEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []LogEntry
	for _, entry := range m.logs {
		if monitor == "" || entry.Monitor == monitor {
			out = append(out, entry)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return truncate(out, limit), nil
}

func (m *Memory) update(monitor string, fn func(*core.MonitorActivity)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	activity := m.activity[monitor]
	fn(&activity)
	m.activity[monitor] = activity
}

func utcPtr(t time.Time) *time.Time {
	v := t.UTC()
	return &v
}

func truncate[T any](items []T, limit uint) []T {
	if limit == 0 {
		limit = DefaultListLimit
	}
	if uint(len(items)) > limit {
		return items[:limit]
	}
	return items
}
