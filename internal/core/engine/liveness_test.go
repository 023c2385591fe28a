package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsWorking(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}

	cases := []struct {
		name      string
		lastEvent *time.Time
		days      int
		recentErr bool
		want      bool
	}{
		{"NoEvent", nil, 2, false, false},
		{"RecentEvent", at(time.Hour), 2, false, true},
		{"StaleEvent", at(49 * time.Hour), 2, false, false},
		{"RecentEventWithErrors", at(time.Hour), 2, true, false},
		{"LongWindow", at(6 * 24 * time.Hour), 7, false, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsWorking(tc.lastEvent, tc.days, tc.recentErr, now))
		})
	}
}

func TestRecentErrorLogs(t *testing.T) {
	event := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := event.Add(d)
		return &v
	}

	assert.False(t, RecentErrorLogs(nil, at(0)))
	assert.False(t, RecentErrorLogs(&event, nil))
	assert.True(t, RecentErrorLogs(&event, at(time.Hour)))
	assert.True(t, RecentErrorLogs(&event, at(-time.Minute)))
	assert.False(t, RecentErrorLogs(&event, at(-5*time.Minute)))
}
