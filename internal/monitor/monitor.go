// Package monitor runs the poll loop: sample the battery, decide, notify, sleep.
package monitor

import (
	"context"
	"fmt"
	"time"

	"codeberg.org/mutker/battmon/internal/alert"
	"codeberg.org/mutker/battmon/internal/config"
	"codeberg.org/mutker/battmon/internal/errors"
	"codeberg.org/mutker/battmon/internal/logger"
	"codeberg.org/mutker/battmon/internal/metrics"
	"codeberg.org/mutker/battmon/internal/notify"
	"codeberg.org/mutker/battmon/internal/telemetry"
)

const (
	alertTitle   = "Low Battery Alert"
	startupTitle = "Battery Monitor Started"
)

// Monitor owns the alert state and every call to the telemetry source,
// the notifier and the sample recorder. Run must be called from a single goroutine.
type Monitor struct {
	cfg      config.Config
	source   telemetry.Source
	notifier notify.Notifier
	rebuild  func(*config.Config) notify.Notifier
	recorder metrics.MetricsCollector
	updates  <-chan *config.Config
	log      logger.Logger
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithRecorder stores every sample and decision.
func WithRecorder(r metrics.MetricsCollector) Option {
	return func(m *Monitor) { m.recorder = r }
}

// WithUpdates delivers reloaded configurations between ticks.
func WithUpdates(updates <-chan *config.Config) Option {
	return func(m *Monitor) { m.updates = updates }
}

// WithNotifierFactory rebuilds the notifier when a reload changes notify_timeout.
func WithNotifierFactory(fn func(*config.Config) notify.Notifier) Option {
	return func(m *Monitor) { m.rebuild = fn }
}

func WithLogger(l logger.Logger) Option {
	return func(m *Monitor) { m.log = l }
}

func New(cfg *config.Config, source telemetry.Source, notifier notify.Notifier, opts ...Option) *Monitor {
	m := &Monitor{
		cfg:      *cfg,
		source:   source,
		notifier: notifier,
		log:      logger.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Run ticks immediately and then once per check interval until ctx is canceled.
// Cancellation is not an error; Run returns nil.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Info().
		Int("threshold", m.cfg.BatteryThreshold).
		Int("interval", m.cfg.CheckInterval).
		Int("repeat_delay", m.cfg.NotificationRepeatDelay).
		Str("notifier", m.notifier.Name()).
		Msg("Battery monitor started")

	if m.cfg.NotifyOnStart {
		m.send(ctx, notify.Message{
			Title:   startupTitle,
			Body:    fmt.Sprintf("Monitoring battery level. Alert threshold: %d%%", m.cfg.BatteryThreshold),
			Urgency: notify.UrgencyNormal,
		})
	}

	ticker := time.NewTicker(m.cfg.Interval())
	defer ticker.Stop()

	var state alert.State
	for {
		if ctx.Err() != nil {
			break
		}

		state = m.Tick(ctx, state)

		if !m.wait(ctx, ticker) {
			break
		}
	}

	m.log.Info().Msg("Battery monitor stopped")

	return nil
}

// wait blocks until the next tick is due. It returns false once ctx is canceled.
func (m *Monitor) wait(ctx context.Context, ticker *time.Ticker) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case cfg, ok := <-m.updates:
			if !ok {
				m.updates = nil
				continue
			}
			m.apply(cfg, ticker)
		case <-ticker.C:
			return ctx.Err() == nil
		}
	}
}

// apply switches to a reloaded configuration. The alert state is untouched.
func (m *Monitor) apply(cfg *config.Config, ticker *time.Ticker) {
	if cfg == nil {
		return
	}

	prev := m.cfg
	m.cfg = *cfg

	if m.cfg.CheckInterval != prev.CheckInterval {
		ticker.Reset(m.cfg.Interval())
	}
	if m.cfg.NotifyTimeout != prev.NotifyTimeout && m.rebuild != nil {
		m.notifier = m.rebuild(&m.cfg)
	}
	if m.cfg.LogFile != prev.LogFile {
		m.log.Warn().
			Str("log_file", m.cfg.LogFile).
			Msg("log_file is read at startup only, restart to apply")
	}
	if m.cfg.LogLevel != prev.LogLevel {
		if level, ok := logger.ParseLevel(m.cfg.LogLevel); ok {
			logger.SetLogLevel(level)
		}
	}

	m.log.Info().
		Int("threshold", m.cfg.BatteryThreshold).
		Int("interval", m.cfg.CheckInterval).
		Int("repeat_delay", m.cfg.NotificationRepeatDelay).
		Str("log_level", m.cfg.LogLevel).
		Msg("Configuration reloaded")
}

func (m *Monitor) policy() alert.Policy {
	return alert.Policy{
		Threshold:   m.cfg.BatteryThreshold,
		RepeatDelay: m.cfg.RepeatDelay(),
	}
}

// Tick runs one iteration against st and returns the state for the next one.
// Failures, panics included, are logged and leave the loop running.
func (m *Monitor) Tick(ctx context.Context, st alert.State) (next alert.State) {
	errFactory := errors.New()
	next = st

	defer func() {
		if r := recover(); r != nil {
			m.logError(errFactory.WithData(ErrTickPanic, fmt.Sprint(r)), "Recovered from panic during tick")
		}
	}()

	sample, err := m.source.Sample(ctx)
	if err != nil {
		m.logError(errFactory.Wrap(ErrTelemetry, err), "Failed to read battery state")
		return st
	}

	var fire bool
	fire, next = alert.Evaluate(sample, m.policy(), st)

	if !sample.Present {
		m.log.Debug().Bool("notified", false).Msg("No battery present")
	} else {
		m.log.Info().
			Int("battery", sample.Percentage).
			Bool("on_ac_power", sample.OnACPower).
			Bool("alert_active", next.Active).
			Bool("notified", fire).
			Msg("Battery checked")
	}

	if fire {
		m.send(ctx, notify.Message{
			Title:   alertTitle,
			Body:    fmt.Sprintf("Battery level is at %d%%. Please connect charger.", sample.Percentage),
			Urgency: notify.UrgencyCritical,
		})
	}

	m.record(ctx, sample, next, fire)

	return next
}

func (m *Monitor) send(ctx context.Context, msg notify.Message) {
	if err := m.notifier.Notify(ctx, msg); err != nil {
		m.logError(errors.New().Wrap(ErrNotification, err), "Failed to send notification")
		return
	}

	m.log.Debug().Str("title", msg.Title).Str("notifier", m.notifier.Name()).Msg("Notification sent")
}

func (m *Monitor) record(ctx context.Context, s telemetry.Sample, st alert.State, notified bool) {
	if m.recorder == nil {
		return
	}

	err := m.recorder.Record(ctx, &metrics.SampleSnapshot{
		Timestamp:   s.Timestamp,
		Percentage:  s.Percentage,
		OnACPower:   s.OnACPower,
		Present:     s.Present,
		AlertActive: st.Active,
		Notified:    notified,
	})
	if err != nil {
		m.logError(errors.New().Wrap(ErrRecord, err), "Failed to record sample")
	}
}

func (m *Monitor) logError(err errors.Error, msg string) {
	m.log.ErrorWithCode(err).Msg(msg)
}
