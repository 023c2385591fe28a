package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/namelens/domainwatch/internal/core"
	mockchecker "github.com/namelens/domainwatch/internal/core/checker/mock"
)

type fakeStore struct {
	mu       sync.Mutex
	memory   map[string]bool
	activity map[string]core.MonitorActivity
	errors   []string
	sets     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{memory: map[string]bool{}, activity: map[string]core.MonitorActivity{}}
}

func (f *fakeStore) GetMemory(ctx context.Context, monitor, key string) (*bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.memory[monitor+"/"+key]
	if !ok {
		return nil, nil
	}
	return &value, nil
}

func (f *fakeStore) SetMemory(ctx context.Context, monitor, key string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.memory[monitor+"/"+key] = value
	f.sets++
	return nil
}

func (f *fakeStore) GetActivity(ctx context.Context, monitor string) (core.MonitorActivity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activity[monitor], nil
}

func (f *fakeStore) RecordCheck(ctx context.Context, monitor string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.activity[monitor]
	a.LastCheckAt = &at
	f.activity[monitor] = a
	return nil
}

func (f *fakeStore) RecordEvent(ctx context.Context, monitor string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.activity[monitor]
	a.LastEventAt = &at
	f.activity[monitor] = a
	return nil
}

func (f *fakeStore) RecordError(ctx context.Context, monitor string, at time.Time, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	a := f.activity[monitor]
	a.LastErrorAt = &at
	a.LastError = message
	f.activity[monitor] = a
	f.errors = append(f.errors, message)
	return nil
}

type recordingSink struct {
	mu     sync.Mutex
	events []*core.CheckEvent
	err    error
}

func (s *recordingSink) Emit(ctx context.Context, event *core.CheckEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func newTestRunner(t *testing.T) (*Runner, *mockchecker.MockTransport, *fakeStore, *recordingSink) {
	engine, transport := newTestEngine(t)
	store := newFakeStore()
	sink := &recordingSink{}
	return &Runner{
		Engine:   engine,
		State:    store,
		Activity: store,
		Sink:     sink,
		Clock:    func() time.Time { return fixedNow },
	}, transport, store, sink
}

func TestRunnerPersistsAndEmits(t *testing.T) {
	runner, transport, store, sink := newTestRunner(t)
	cfg := registeredConfig()
	ctx := context.Background()

	transport.EXPECT().Lookup(gomock.Any(), "example.com", gomock.Any()).Return(lookup(true), nil).Times(2)

	result, err := runner.RunOnce(ctx, cfg)
	require.NoError(t, err)
	require.NotNil(t, result.Event)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 1, store.sets)

	value, err := store.GetMemory(ctx, "example.com", core.MemoryKeyRegistered)
	require.NoError(t, err)
	require.NotNil(t, value)
	assert.True(t, *value)

	activity, err := store.GetActivity(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, activity.LastCheckAt)
	require.NotNil(t, activity.LastEventAt)
	assert.Nil(t, activity.LastErrorAt)

	// second identical cycle: no event, no write
	result, err = runner.RunOnce(ctx, cfg)
	require.NoError(t, err)
	assert.Nil(t, result.Event)
	assert.False(t, result.Changed)
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 1, store.sets)
}

func TestRunnerTransportFailureRecordsError(t *testing.T) {
	runner, transport, store, sink := newTestRunner(t)
	cfg := registeredConfig()
	ctx := context.Background()

	transport.EXPECT().Lookup(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, core.NewTransportError(core.TransportWhois, "example.com", "", context.DeadlineExceeded))

	result, err := runner.RunOnce(ctx, cfg)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, core.IsTimeout(err))
	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 0, store.sets)

	activity, err := store.GetActivity(ctx, "example.com")
	require.NoError(t, err)
	require.NotNil(t, activity.LastErrorAt)
	assert.Nil(t, activity.LastCheckAt)
	assert.Contains(t, activity.LastError, "timed out")
}

func TestRunnerSinkFailureKeepsState(t *testing.T) {
	runner, transport, store, sink := newTestRunner(t)
	sink.err = errors.New("broker unavailable")
	cfg := registeredConfig()

	transport.EXPECT().Lookup(gomock.Any(), gomock.Any(), gomock.Any()).Return(lookup(true), nil)

	_, err := runner.RunOnce(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
	assert.Equal(t, 0, store.sets)
	assert.Len(t, store.errors, 1)
}

func TestRunnerDryRun(t *testing.T) {
	runner, transport, store, sink := newTestRunner(t)
	cfg := registeredConfig()

	transport.EXPECT().Lookup(gomock.Any(), gomock.Any(), gomock.Any()).Return(lookup(false), nil)

	result, err := runner.DryRun(context.Background(), cfg)
	require.NoError(t, err)
	require.NotNil(t, result.Event)
	assert.True(t, result.DryRun)
	assert.False(t, *result.State.LastRegistered)

	assert.Equal(t, 0, sink.count())
	assert.Equal(t, 0, store.sets)
	activity, err := store.GetActivity(context.Background(), cfg.Name)
	require.NoError(t, err)
	assert.Nil(t, activity.LastCheckAt)
}

func TestRunnerStatus(t *testing.T) {
	runner, _, store, _ := newTestRunner(t)
	cfg := registeredConfig()
	ctx := context.Background()

	status, err := runner.Status(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, status.Working)
	assert.Nil(t, status.State.LastRegistered)

	require.NoError(t, store.SetMemory(ctx, cfg.Name, core.MemoryKeyRegistered, true))
	require.NoError(t, store.RecordEvent(ctx, cfg.Name, fixedNow.Add(-time.Hour)))

	status, err = runner.Status(ctx, cfg)
	require.NoError(t, err)
	assert.True(t, status.Working)
	assert.True(t, *status.State.LastRegistered)

	require.NoError(t, store.RecordError(ctx, cfg.Name, fixedNow, "whois lookup for example.com failed"))
	status, err = runner.Status(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, status.Working)
}

func TestSaveStateWritesChangedSlotsOnly(t *testing.T) {
	store := newFakeStore()
	ctx := context.Background()

	prev := core.CheckState{}.With(core.CheckTypeRegistered, true)
	next := prev.With(core.CheckTypeAvailable, false)

	require.NoError(t, SaveState(ctx, store, "m", prev, next))
	assert.Equal(t, 1, store.sets)

	loaded, err := LoadState(ctx, store, "m")
	require.NoError(t, err)
	assert.Nil(t, loaded.LastRegistered)
	assert.False(t, *loaded.LastAvailable)
}

func TestRunnerSerializesCyclesOfOneMonitor(t *testing.T) {
	runner, transport, store, sink := newTestRunner(t)
	cfg := registeredConfig()

	var inFlight, maxInFlight int32
	var mu sync.Mutex
	transport.EXPECT().Lookup(gomock.Any(), "example.com", gomock.Any()).
		DoAndReturn(func(ctx context.Context, domain string, timeout time.Duration) (*core.LookupResult, error) {
			mu.Lock()
			inFlight++
			if inFlight > maxInFlight {
				maxInFlight = inFlight
			}
			mu.Unlock()

			time.Sleep(50 * time.Millisecond)

			mu.Lock()
			inFlight--
			mu.Unlock()
			return lookup(true), nil
		}).Times(2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = runner.RunOnce(context.Background(), cfg)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	// one unknown -> registered transition, emitted once
	assert.Equal(t, 1, sink.count())
	assert.Equal(t, 1, store.sets)
	assert.Equal(t, int32(1), maxInFlight)
}

func TestRunnerCycleWaitHonoursContext(t *testing.T) {
	runner, _, _, _ := newTestRunner(t)

	release, err := runner.acquire(context.Background(), "example.com")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = runner.RunOnce(ctx, registeredConfig())
	require.ErrorIs(t, err, context.Canceled)

	release()
	again, err := runner.acquire(context.Background(), "example.com")
	require.NoError(t, err)
	again()
}
