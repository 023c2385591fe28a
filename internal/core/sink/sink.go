// Package sink delivers emitted check events to their consumers.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/namelens/domainwatch/internal/core"
)

// Sink receives emitted events.
type Sink interface {
	Emit(ctx context.Context, event *core.CheckEvent) error
}

// WriterSink writes one JSON payload per line.
type WriterSink struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

// NewWriterSink wraps an io.Writer.
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// OpenWriterSink appends to path; empty or "-" writes to stdout.
func OpenWriterSink(path string) (*WriterSink, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		return NewWriterSink(os.Stdout), nil
	}

	// #nosec G304 -- path comes from operator configuration
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open event log: %w", err)
	}
	return &WriterSink{w: f, closer: f}, nil
}

func (s *WriterSink) Emit(_ context.Context, event *core.CheckEvent) error {
	if event == nil {
		return nil
	}

	line, err := json.Marshal(event.Payload())
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.w.Write(line); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// Close closes the underlying file, if the sink opened one.
func (s *WriterSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// EventAppender persists events.
type EventAppender interface {
	AppendEvent(ctx context.Context, event *core.CheckEvent) error
}

// StoreSink records events in the store's event table.
type StoreSink struct {
	Store EventAppender
}

func (s *StoreSink) Emit(ctx context.Context, event *core.CheckEvent) error {
	if s.Store == nil || event == nil {
		return nil
	}
	return s.Store.AppendEvent(ctx, event)
}

// MultiSink fans an event out to every sink. All sinks are attempted; the
// failures are joined.
type MultiSink []Sink

func (m MultiSink) Emit(ctx context.Context, event *core.CheckEvent) error {
	var errs []error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
type Discard struct{}

func (Discard) Emit(context.Context, *core.CheckEvent) error { return nil }
