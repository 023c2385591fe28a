package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
)

const memoryTable = "monitor_memory"

// GetMemory returns the stored flag for a monitor slot, or nil when the slot
// has never been written.
func (s *Store) GetMemory(ctx context.Context, monitor, key string) (*bool, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	monitor, key, err := memoryKey(monitor, key)
	if err != nil {
		return nil, err
	}

	var value int64
	found, err := s.builder.From(memoryTable).
		Select("value").
		Where(
			goqu.I("monitor").Eq(monitor),
			goqu.I("key").Eq(key),
		).
		ScanValContext(ctx, &value)
	if err != nil {
		return nil, fmt.Errorf("fetch memory %s/%s: %w", monitor, key, err)
	}
	if !found {
		return nil, nil
	}

	flag := value != 0
	return &flag, nil
}

// SetMemory upserts a monitor slot.
func (s *Store) SetMemory(ctx context.Context, monitor, key string, value bool) error {
	if err := s.ready(); err != nil {
		return err
	}
	monitor, key, err := memoryKey(monitor, key)
	if err != nil {
		return err
	}

	_, err = s.builder.Insert(memoryTable).
		Rows(goqu.Record{
			"monitor":    monitor,
			"key":        key,
			"value":      boolToInt(value),
			"updated_at": time.Now().UTC().UnixMilli(),
		}).
		OnConflict(goqu.DoUpdate("monitor, key", goqu.Record{
			"value":      goqu.I("excluded.value"),
			"updated_at": goqu.I("excluded.updated_at"),
		})).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("store memory %s/%s: %w", monitor, key, err)
	}
	return nil
}

func memoryKey(monitor, key string) (string, string, error) {
	monitor = strings.TrimSpace(monitor)
	key = strings.TrimSpace(key)
	if monitor == "" {
		return "", "", errors.New("monitor is required")
	}
	if key == "" {
		return "", "", errors.New("memory key is required")
	}
	return monitor, key, nil
}

func boolToInt(value bool) int64 {
	if value {
		return 1
	}
	return 0
}
