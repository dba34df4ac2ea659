// Package notify shows desktop notifications through the tools each platform ships with.
package notify

import (
	"context"
	"time"
)

// Urgency follows the freedesktop notification levels.
type Urgency int

const (
	UrgencyLow Urgency = iota
	UrgencyNormal
	UrgencyCritical
)

func (u Urgency) String() string {
	switch u {
	case UrgencyLow:
		return "low"
	case UrgencyCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Message is a single notification.
type Message struct {
	Title   string
	Body    string
	Urgency Urgency
}

// Notifier displays a message to the user. Delivery is best-effort:
// a non-nil error means the message was not shown.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
	Name() string
}

// Library delivers a message through an in-process notification library.
type Library func(msg Message) error

// Runner executes an external command.
type Runner func(ctx context.Context, name string, args ...string) error

// LookPath reports where an executable lives, like exec.LookPath.
type LookPath func(file string) (string, error)

// Option configures the notifier returned by New.
type Option func(*options)

type options struct {
	goos     string
	timeout  time.Duration
	library  Library
	run      Runner
	lookPath LookPath
}

// WithGOOS overrides platform detection.
func WithGOOS(goos string) Option {
	return func(o *options) { o.goos = goos }
}

// WithTimeout bounds each delivery attempt.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLibrary replaces the notification library tried before any tool.
// nil leaves only the platform tools.
func WithLibrary(l Library) Option {
	return func(o *options) { o.library = l }
}

func WithRunner(r Runner) Option {
	return func(o *options) { o.run = r }
}

func WithLookPath(l LookPath) Option {
	return func(o *options) { o.lookPath = l }
}
