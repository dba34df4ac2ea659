package telemetry

import (
	"context"
	"time"

	"github.com/distatus/battery"
)

// Source reports the current battery state on demand.
// A host without a battery yields a Sample with Present == false and a nil error.
type Source interface {
	Sample(ctx context.Context) (Sample, error)
}

// Sample is one point-in-time reading.
type Sample struct {
	Percentage int
	OnACPower  bool
	Present    bool
	Timestamp  time.Time
}

// Reader lists the batteries known to the host.
type Reader func() ([]*battery.Battery, error)

// ACDetector reports whether external power is connected.
// known is false when the platform offers no direct answer.
type ACDetector func() (online, known bool)

// Option configures a Source.
type Option func(*source)

func WithReader(r Reader) Option {
	return func(s *source) { s.read = r }
}

func WithACDetector(d ACDetector) Option {
	return func(s *source) { s.ac = d }
}

func WithClock(now func() time.Time) Option {
	return func(s *source) { s.now = now }
}
