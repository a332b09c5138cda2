// Package sla computes service-level countdowns for loans waiting on a stage.
// A window is never stored; remaining time is purely a function of wall-clock
// time, the stage entry timestamp and the configured target duration.
package sla

import (
	"context"
	"fmt"
	"time"
)

// Severity buckets a window by the percentage of its target duration left
type Severity string

const (
	SeveritySafe     Severity = "SAFE"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
	SeverityExpired  Severity = "EXPIRED"
)

// DefaultTargetHours is the stage window applied when no per-stage target is configured
const DefaultTargetHours = 24

// Snapshot is one recomputed view of a running window
type Snapshot struct {
	TargetSeconds    int64
	RemainingSeconds int64
	Expired          bool
	Severity         Severity
}

// Tracker produces live countdown streams. The zero interval defaults to one
// second; tests inject a shorter interval and a fixed clock.
type Tracker struct {
	now      func() time.Time
	interval time.Duration
}

// Option configures a Tracker
type Option func(*Tracker)

// WithClock overrides the wall-clock source
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithInterval overrides the recompute interval
func WithInterval(d time.Duration) Option {
	return func(t *Tracker) { t.interval = d }
}

// NewTracker creates a tracker that recomputes every second
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		now:      time.Now,
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Evaluate computes the current snapshot for a window that opened at start
// with the given target duration.
func (t *Tracker) Evaluate(start time.Time, target time.Duration) Snapshot {
	targetSecs := int64(target / time.Second)
	remaining := int64(start.Add(target).Sub(t.now()) / time.Second)
	if remaining < 0 {
		remaining = 0
	}

	snap := Snapshot{
		TargetSeconds:    targetSecs,
		RemainingSeconds: remaining,
		Expired:          remaining <= 0,
	}
	snap.Severity = classify(remaining, targetSecs)
	return snap
}

// Track emits an immediate snapshot and then one per interval until ctx is
// cancelled. The channel closes on cancellation; no timer survives the last
// observer.
func (t *Tracker) Track(ctx context.Context, start time.Time, target time.Duration) <-chan Snapshot {
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)

		ticker := time.NewTicker(t.interval)
		defer ticker.Stop()

		// First emission happens immediately, not after the first delay
		select {
		case out <- t.Evaluate(start, target):
		case <-ctx.Done():
			return
		}

		for {
			select {
			case <-ticker.C:
				select {
				case out <- t.Evaluate(start, target):
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}

func classify(remaining, target int64) Severity {
	if remaining <= 0 {
		return SeverityExpired
	}
	if target <= 0 {
		return SeverityExpired
	}
	percent := float64(remaining) / float64(target) * 100
	switch {
	case percent > 25:
		return SeveritySafe
	case percent >= 10:
		return SeverityWarning
	default:
		return SeverityCritical
	}
}

// FormatDuration renders seconds as zero-padded HH:MM:SS. Hours are not
// reduced modulo 24: 30 hours renders as "30:00:00".
func FormatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
