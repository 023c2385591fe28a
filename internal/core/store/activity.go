package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/google/uuid"

	"github.com/namelens/domainwatch/internal/core"
)

const (
	activityTable = "monitor_activity"
	eventsTable   = "monitor_events"
	logsTable     = "monitor_logs"

	// DefaultListLimit caps event and log listings when no limit is given.
	DefaultListLimit = 50
)

// LogEntry is one persisted host log line for a monitor.
type LogEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Monitor   string    `json:"monitor" yaml:"monitor"`
	Level     string    `json:"level" yaml:"level"`
	Message   string    `json:"message" yaml:"message"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
}

type activityRow struct {
	Monitor     string         `db:"monitor"`
	LastCheckAt sql.NullInt64  `db:"last_check_at"`
	LastEventAt sql.NullInt64  `db:"last_event_at"`
	LastErrorAt sql.NullInt64  `db:"last_error_at"`
	LastError   sql.NullString `db:"last_error"`
}

type eventRow struct {
	ID        string `db:"id"`
	Monitor   string `db:"monitor"`
	Domain    string `db:"domain"`
	CheckType string `db:"check_type"`
	Value     int64  `db:"value"`
	CreatedAt int64  `db:"created_at"`
}

type logRow struct {
	ID        string `db:"id"`
	Monitor   string `db:"monitor"`
	Level     string `db:"level"`
	Message   string `db:"message"`
	CreatedAt int64  `db:"created_at"`
}

// GetActivity returns the activity timestamps of a monitor. A monitor that
// never ran has an empty activity.
func (s *Store) GetActivity(ctx context.Context, monitor string) (core.MonitorActivity, error) {
	if err := s.ready(); err != nil {
		return core.MonitorActivity{}, err
	}
	monitor = strings.TrimSpace(monitor)
	if monitor == "" {
		return core.MonitorActivity{}, errors.New("monitor is required")
	}

	var row activityRow
	found, err := s.builder.From(activityTable).
		Where(goqu.I("monitor").Eq(monitor)).
		ScanStructContext(ctx, &row)
	if err != nil {
		return core.MonitorActivity{}, fmt.Errorf("fetch activity for %s: %w", monitor, err)
	}
	if !found {
		return core.MonitorActivity{}, nil
	}

	return core.MonitorActivity{
		LastCheckAt: fromMillis(row.LastCheckAt),
		LastEventAt: fromMillis(row.LastEventAt),
		LastErrorAt: fromMillis(row.LastErrorAt),
		LastError:   row.LastError.String,
	}, nil
}

// RecordCheck stamps the time of the last completed check.
func (s *Store) RecordCheck(ctx context.Context, monitor string, at time.Time) error {
	return s.touchActivity(ctx, monitor, goqu.Record{"last_check_at": at.UTC().UnixMilli()})
}

// RecordEvent stamps the time of the last emitted event.
func (s *Store) RecordEvent(ctx context.Context, monitor string, at time.Time) error {
	return s.touchActivity(ctx, monitor, goqu.Record{"last_event_at": at.UTC().UnixMilli()})
}

// RecordError stamps the last failure and appends it to the monitor log.
func (s *Store) RecordError(ctx context.Context, monitor string, at time.Time, message string) error {
	if err := s.touchActivity(ctx, monitor, goqu.Record{
		"last_error_at": at.UTC().UnixMilli(),
		"last_error":    message,
	}); err != nil {
		return err
	}
	return s.AppendLog(ctx, monitor, "error", message, at)
}

func (s *Store) touchActivity(ctx context.Context, monitor string, values goqu.Record) error {
	if err := s.ready(); err != nil {
		return err
	}
	monitor = strings.TrimSpace(monitor)
	if monitor == "" {
		return errors.New("monitor is required")
	}

	row := goqu.Record{"monitor": monitor}
	update := goqu.Record{}
	for column, value := range values {
		row[column] = value
		update[column] = goqu.I("excluded." + column)
	}

	_, err := s.builder.Insert(activityTable).
		Rows(row).
		OnConflict(goqu.DoUpdate("monitor", update)).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("record activity for %s: %w", monitor, err)
	}
	return nil
}

// AppendLog stores one log line for a monitor.
func (s *Store) AppendLog(ctx context.Context, monitor, level, message string, at time.Time) error {
	if err := s.ready(); err != nil {
		return err
	}

	_, err := s.builder.Insert(logsTable).
		Rows(goqu.Record{
			"id":         uuid.NewString(),
			"monitor":    strings.TrimSpace(monitor),
			"level":      level,
			"message":    message,
			"created_at": at.UTC().UnixMilli(),
		}).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("append log for %s: %w", monitor, err)
	}
	return nil
}

// AppendEvent records an emitted event. Re-appending the same event ID is a
// no-op.
func (s *Store) AppendEvent(ctx context.Context, event *core.CheckEvent) error {
	if err := s.ready(); err != nil {
		return err
	}
	if event == nil {
		return errors.New("event is required")
	}

	id := event.ID
	if id == "" {
		id = uuid.NewString()
	}

	_, err := s.builder.Insert(eventsTable).
		Rows(goqu.Record{
			"id":         id,
			"monitor":    event.Monitor,
			"domain":     event.Domain,
			"check_type": string(event.CheckType),
			"value":      boolToInt(event.Value),
			"created_at": event.CreatedAt.UTC().UnixMilli(),
		}).
		OnConflict(goqu.DoNothing()).
		Executor().ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("append event for %s: %w", event.Monitor, err)
	}
	return nil
}

// ListEvents returns the most recent events, newest first. An empty monitor
// lists events across all monitors.
func (s *Store) ListEvents(ctx context.Context, monitor string, limit uint) ([]core.CheckEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultListLimit
	}

	ds := s.builder.From(eventsTable).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(limit)
	if monitor = strings.TrimSpace(monitor); monitor != "" {
		ds = ds.Where(goqu.I("monitor").Eq(monitor))
	}

	var rows []eventRow
	if err := ds.ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]core.CheckEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, core.CheckEvent{
			ID:        row.ID,
			Monitor:   row.Monitor,
			Domain:    row.Domain,
			CheckType: core.CheckType(row.CheckType),
			Value:     row.Value != 0,
			CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		})
	}
	return events, nil
}

// ListLogs returns the most recent log lines for a monitor, newest first.
func (s *Store) ListLogs(ctx context.Context, monitor string, limit uint) ([]LogEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit == 0 {
		limit = DefaultListLimit
	}

	ds := s.builder.From(logsTable).
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(limit)
	if monitor = strings.TrimSpace(monitor); monitor != "" {
		ds = ds.Where(goqu.I("monitor").Eq(monitor))
	}

	var rows []logRow
	if err := ds.ScanStructsContext(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list logs: %w", err)
	}

	entries := make([]LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, LogEntry{
			ID:        row.ID,
			Monitor:   row.Monitor,
			Level:     row.Level,
			Message:   row.Message,
			CreatedAt: time.UnixMilli(row.CreatedAt).UTC(),
		})
	}
	return entries, nil
}

func fromMillis(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := time.UnixMilli(value.Int64).UTC()
	return &t
}
