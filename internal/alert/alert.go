// Package alert decides when a low battery warrants a notification.
package alert

import (
	"time"

	"codeberg.org/mutker/battmon/internal/telemetry"
)

// State is carried from one tick to the next. The zero value is Clear.
type State struct {
	// Active is true while a low-battery condition is being alerted.
	Active bool
	// LastNotifiedAt is zero until the first notification.
	LastNotifiedAt time.Time
}

// Policy holds the thresholds Evaluate works against.
type Policy struct {
	Threshold   int
	RepeatDelay time.Duration
}

// Low reports whether the sample is below the threshold while running on battery.
// A percentage equal to the threshold is not low.
func (p Policy) Low(s telemetry.Sample) bool {
	return s.Present && !s.OnACPower && s.Percentage < p.Threshold
}

// Evaluate returns whether to notify now and the state for the next tick.
// The sample's timestamp is the current time.
func Evaluate(s telemetry.Sample, p Policy, st State) (bool, State) {
	if !p.Low(s) {
		return false, State{LastNotifiedAt: st.LastNotifiedAt}
	}

	// Elapsed time is wall-clock time so that a suspend counts toward the delay.
	now := s.Timestamp.Round(0)
	if !st.Active || now.Sub(st.LastNotifiedAt.Round(0)) >= p.RepeatDelay {
		return true, State{Active: true, LastNotifiedAt: now}
	}

	return false, st
}
