package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestEvaluate_SafeWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(WithClock(fixedClock(now)))

	snap := tracker.Evaluate(now.Add(-1*time.Hour), 24*time.Hour)

	assert.Equal(t, SeveritySafe, snap.Severity)
	assert.False(t, snap.Expired)
	assert.Greater(t, snap.RemainingSeconds, int64(20*3600))
	assert.Equal(t, int64(24*3600), snap.TargetSeconds)
}

func TestEvaluate_ExpiredWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(WithClock(fixedClock(now)))

	snap := tracker.Evaluate(now.Add(-25*time.Hour), 24*time.Hour)

	assert.Equal(t, SeverityExpired, snap.Severity)
	assert.True(t, snap.Expired)
	assert.Equal(t, int64(0), snap.RemainingSeconds)
}

func TestEvaluate_SeverityBuckets(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	tracker := NewTracker(WithClock(fixedClock(now)))

	tests := []struct {
		name     string
		elapsed  time.Duration
		expected Severity
	}{
		{"barely started", 1 * time.Minute, SeveritySafe},
		{"just above 25 percent left", 17 * time.Hour, SeveritySafe},
		{"inside warning band", 20 * time.Hour, SeverityWarning},
		{"ten percent boundary is warning", 21*time.Hour + 36*time.Minute, SeverityWarning},
		{"under ten percent", 23 * time.Hour, SeverityCritical},
		{"exactly exhausted", 24 * time.Hour, SeverityExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := tracker.Evaluate(now.Add(-tt.elapsed), 24*time.Hour)
			assert.Equal(t, tt.expected, snap.Severity)
		})
	}
}

func TestTrack_EmitsImmediatelyAndStopsOnCancel(t *testing.T) {
	tracker := NewTracker(WithInterval(5 * time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	stream := tracker.Track(ctx, time.Now().Add(-time.Hour), 24*time.Hour)

	select {
	case snap, ok := <-stream:
		require.True(t, ok)
		assert.Equal(t, SeveritySafe, snap.Severity)
	case <-time.After(time.Second):
		t.Fatal("expected an immediate first emission")
	}

	// A second emission arrives after one interval
	select {
	case _, ok := <-stream:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("expected a periodic emission")
	}

	cancel()

	// The stream closes once the subscriber detaches
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-stream:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("stream did not close after cancellation")
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		seconds  int64
		expected string
	}{
		{3661, "01:01:01"},
		{60, "00:01:00"},
		{0, "00:00:00"},
		{30 * 3600, "30:00:00"},
		{-5, "00:00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDuration(tt.seconds))
		})
	}
}
