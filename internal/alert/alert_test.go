package alert_test

import (
	"testing"
	"time"

	"codeberg.org/mutker/battmon/internal/alert"
	"codeberg.org/mutker/battmon/internal/telemetry"
	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

var policy = alert.Policy{Threshold: 15, RepeatDelay: 300 * time.Second}

func sample(p int, ac bool, at time.Time) telemetry.Sample {
	return telemetry.Sample{Percentage: p, OnACPower: ac, Present: true, Timestamp: at}
}

func alerting(at time.Time) alert.State {
	return alert.State{Active: true, LastNotifiedAt: at}
}

func TestClearStaysClearAtOrAboveThreshold(t *testing.T) {
	for p := policy.Threshold; p <= 100; p++ {
		notify, st := alert.Evaluate(sample(p, false, start), policy, alert.State{})

		assert.False(t, notify, "p=%d", p)
		assert.False(t, st.Active, "p=%d", p)
	}
}

func TestClearToAlertingBelowThreshold(t *testing.T) {
	for p := 0; p < policy.Threshold; p++ {
		notify, st := alert.Evaluate(sample(p, false, start), policy, alert.State{})

		assert.True(t, notify, "p=%d", p)
		assert.Equal(t, alerting(start), st, "p=%d", p)
	}
}

func TestACPowerClearsAlert(t *testing.T) {
	for _, p := range []int{0, 5, 14, 15, 50, 100} {
		notify, st := alert.Evaluate(sample(p, true, start.Add(time.Hour)), policy, alerting(start))

		assert.False(t, notify, "p=%d", p)
		assert.False(t, st.Active, "p=%d", p)
	}
}

func TestACPowerNeverAlertsFromClear(t *testing.T) {
	notify, st := alert.Evaluate(sample(3, true, start), policy, alert.State{})

	assert.False(t, notify)
	assert.False(t, st.Active)
}

func TestRepeatDelay(t *testing.T) {
	tests := []struct {
		name    string
		elapsed time.Duration
		notify  bool
	}{
		{"immediately", 0, false},
		{"just before delay", 299 * time.Second, false},
		{"exactly at delay", 300 * time.Second, true},
		{"after delay", 301 * time.Second, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			now := start.Add(tt.elapsed)
			notify, st := alert.Evaluate(sample(10, false, now), policy, alerting(start))

			assert.Equal(t, tt.notify, notify)
			if tt.notify {
				assert.Equal(t, alerting(now), st)
			} else {
				assert.Equal(t, alerting(start), st, "state must not change while suppressed")
			}
		})
	}
}

func TestZeroRepeatDelayNotifiesEveryTick(t *testing.T) {
	p := alert.Policy{Threshold: 15}

	notify, st := alert.Evaluate(sample(10, false, start), p, alerting(start))
	assert.True(t, notify)
	assert.Equal(t, alerting(start), st)
}

func TestIdempotentWithoutElapsedTime(t *testing.T) {
	st := alert.State{}
	notifications := 0

	for i := 0; i < 10; i++ {
		var notify bool
		notify, st = alert.Evaluate(sample(10, false, start), policy, st)
		if notify {
			notifications++
		}
	}

	assert.Equal(t, 1, notifications)
	assert.True(t, st.Active)
}

func TestThresholdBoundaryIsNotLow(t *testing.T) {
	for _, threshold := range []int{1, 15, 50, 99} {
		p := alert.Policy{Threshold: threshold, RepeatDelay: time.Minute}
		s := sample(threshold, false, start)

		assert.False(t, p.Low(s))

		notify, st := alert.Evaluate(s, p, alerting(start.Add(-time.Hour)))
		assert.False(t, notify)
		assert.False(t, st.Active)
	}
}

func TestScenario(t *testing.T) {
	steps := []struct {
		percentage int
		at         time.Time
		notify     bool
	}{
		{20, start, false},
		{10, start.Add(10 * time.Second), true},
		{10, start.Add(110 * time.Second), false},
		{10, start.Add(360 * time.Second), true},
		{16, start.Add(370 * time.Second), false},
	}

	st := alert.State{}
	for i, step := range steps {
		var notify bool
		notify, st = alert.Evaluate(sample(step.percentage, false, step.at), policy, st)
		assert.Equal(t, step.notify, notify, "step %d", i)
	}

	assert.False(t, st.Active, "final state must be Clear")
}

func TestNoBatteryClearsAlert(t *testing.T) {
	noBattery := telemetry.Sample{Timestamp: start.Add(time.Hour)}

	notify, st := alert.Evaluate(noBattery, policy, alerting(start))
	assert.False(t, notify)
	assert.False(t, st.Active)

	notify, st = alert.Evaluate(noBattery, policy, alert.State{})
	assert.False(t, notify)
	assert.False(t, st.Active)
}

func TestRealertAfterClearing(t *testing.T) {
	_, st := alert.Evaluate(sample(10, false, start), policy, alert.State{})
	_, st = alert.Evaluate(sample(10, true, start.Add(time.Second)), policy, st)

	// Unplugging again re-alerts at once, without waiting out the repeat delay
	notify, st := alert.Evaluate(sample(10, false, start.Add(2*time.Second)), policy, st)
	assert.True(t, notify)
	assert.Equal(t, alerting(start.Add(2*time.Second)), st)
}

func TestRepeatDelayUsesWallClock(t *testing.T) {
	// LastNotifiedAt carries a monotonic reading; after a 20 minute suspend only the
	// wall clock has moved on.
	last := time.Now()
	resumed := last.Round(0).Add(20 * time.Minute)

	notify, st := alert.Evaluate(sample(10, false, resumed), policy, alerting(last))

	assert.True(t, notify, "Time spent suspended counts toward the repeat delay")
	assert.Equal(t, resumed, st.LastNotifiedAt)
	assert.NotContains(t, st.LastNotifiedAt.String(), "m=", "Stored time has no monotonic reading")
}
