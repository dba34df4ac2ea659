package metrics

import (
	"context"
	"time"
)

// MetricsCollector stores one row per poll tick.
type MetricsCollector interface {
	Record(ctx context.Context, snapshot *SampleSnapshot) error
	Close() error
}

// MetricsRepository defines the interface for sample log storage
type MetricsRepository interface {
	Record(snapshot *SampleSnapshot) error
	RunID() string
	Close() error
}

// SampleSnapshot is what the poll loop observed and decided on a tick.
type SampleSnapshot struct {
	Timestamp   time.Time
	Percentage  int
	OnACPower   bool
	Present     bool
	AlertActive bool
	Notified    bool
}
