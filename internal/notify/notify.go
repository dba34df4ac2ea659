package notify

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"codeberg.org/mutker/battmon/internal/errors"
	"codeberg.org/mutker/battmon/internal/logger"
	"github.com/gen2brain/beeep"
)

const (
	appName        = "battmon"
	defaultTimeout = 10 * time.Second
	popupSeconds   = "10"
)

// command builds the invocation of one notification tool for a message.
type command struct {
	name string
	args func(Message) []string
}

type commandNotifier struct {
	platform string
	library  Library
	commands []command
	timeout  time.Duration
	run      Runner
	lookPath LookPath
}

type unsupportedNotifier struct {
	goos string
}

// New picks the notifier for the current platform.
func New(opts ...Option) Notifier {
	o := options{
		goos:     runtime.GOOS,
		timeout:  defaultTimeout,
		library:  beeepNotify,
		run:      runCommand,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(&o)
	}

	var commands []command
	switch o.goos {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		commands = freedesktopCommands()
	case "darwin":
		commands = darwinCommands()
	case "windows":
		commands = windowsCommands()
	default:
		if o.library == nil {
			return &unsupportedNotifier{goos: o.goos}
		}
	}

	return &commandNotifier{
		platform: o.goos,
		library:  o.library,
		commands: commands,
		timeout:  o.timeout,
		run:      o.run,
		lookPath: o.lookPath,
	}
}

func (n *commandNotifier) Name() string {
	return n.platform
}

// Notify tries the notification library first, then each tool in order,
// and stops at the first one that succeeds.
func (n *commandNotifier) Notify(ctx context.Context, msg Message) error {
	errFactory := errors.New()

	var failures []string
	if n.library != nil {
		err := n.callLibrary(ctx, msg)
		if err == nil {
			logger.Debug().Str("backend", "beeep").Msg("Notification delivered")
			return nil
		}

		if ctx.Err() != nil {
			return errFactory.Wrap(ErrNotifyFailed, ctx.Err())
		}

		logger.Debug().Err(err).Str("backend", "beeep").Msg("Notification library failed")
		failures = append(failures, fmt.Sprintf("beeep: %v", err))
	}

	for _, cmd := range n.commands {
		if _, err := n.lookPath(cmd.name); err != nil {
			logger.Debug().Str("command", cmd.name).Msg("Notification tool not installed")
			continue
		}

		err := n.runWithTimeout(ctx, cmd.name, cmd.args(msg)...)
		if err == nil {
			logger.Debug().Str("command", cmd.name).Msg("Notification delivered")
			return nil
		}

		if ctx.Err() != nil {
			return errFactory.Wrap(ErrNotifyFailed, ctx.Err())
		}

		logger.Debug().Err(err).Str("command", cmd.name).Msg("Notification tool failed")
		failures = append(failures, fmt.Sprintf("%s: %v", cmd.name, err))
	}

	if len(failures) == 0 {
		return errFactory.WithData(ErrNoBackend, n.platform)
	}
	if len(n.commands) == 0 {
		return errFactory.WithData(ErrUnsupportedPlatform, strings.Join(failures, "; "))
	}

	return errFactory.WithData(ErrNotifyFailed, strings.Join(failures, "; "))
}

// callLibrary bounds a library call that takes no context.
func (n *commandNotifier) callLibrary(ctx context.Context, msg Message) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- n.library(msg) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *commandNotifier) runWithTimeout(ctx context.Context, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	return n.run(ctx, name, args...)
}

func (n *unsupportedNotifier) Name() string {
	return n.goos
}

func (n *unsupportedNotifier) Notify(_ context.Context, _ Message) error {
	return errors.New().WithData(ErrUnsupportedPlatform, n.goos)
}

// beeepNotify plays the alert sound along with critical messages.
func beeepNotify(msg Message) error {
	if msg.Urgency == UrgencyCritical {
		return beeep.Alert(msg.Title, msg.Body, "")
	}

	return beeep.Notify(msg.Title, msg.Body, "")
}

func runCommand(ctx context.Context, name string, args ...string) error {
	var out bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		if text := strings.TrimSpace(out.String()); text != "" {
			return fmt.Errorf("%w: %s", err, text)
		}
		return err
	}

	return nil
}
