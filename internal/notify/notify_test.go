package notify_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"codeberg.org/mutker/battmon/internal/errors"
	"codeberg.org/mutker/battmon/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type fakeExec struct {
	installed map[string]bool
	failing   map[string]bool
	calls     []call
	deadline  bool
}

func (f *fakeExec) lookPath(file string) (string, error) {
	if f.installed[file] {
		return "/usr/bin/" + file, nil
	}
	return "", stderrors.New("not found")
}

func (f *fakeExec) run(ctx context.Context, name string, args ...string) error {
	_, f.deadline = ctx.Deadline()
	f.calls = append(f.calls, call{name: name, args: args})
	if f.failing[name] {
		return stderrors.New("exit status 1")
	}
	return nil
}

func (f *fakeExec) notifier(goos string) notify.Notifier {
	return notify.New(
		notify.WithGOOS(goos),
		notify.WithLibrary(nil),
		notify.WithRunner(f.run),
		notify.WithLookPath(f.lookPath),
		notify.WithTimeout(time.Second),
	)
}

var lowBattery = notify.Message{
	Title:   "Low Battery Alert",
	Body:    "Battery level is at 9%. Please connect charger.",
	Urgency: notify.UrgencyCritical,
}

func TestLinuxNotifySend(t *testing.T) {
	f := &fakeExec{installed: map[string]bool{"notify-send": true, "zenity": true}}

	require.NoError(t, f.notifier("linux").Notify(context.Background(), lowBattery))

	require.Len(t, f.calls, 1)
	assert.Equal(t, "notify-send", f.calls[0].name)
	assert.Equal(t, []string{
		"--app-name", "battmon", "--urgency", "critical",
		"Low Battery Alert", "Battery level is at 9%. Please connect charger.",
	}, f.calls[0].args)
	assert.True(t, f.deadline, "each attempt must carry a deadline")
}

func TestLinuxFallbackChain(t *testing.T) {
	f := &fakeExec{
		installed: map[string]bool{"notify-send": true, "kdialog": true},
		failing:   map[string]bool{"notify-send": true},
	}

	require.NoError(t, f.notifier("linux").Notify(context.Background(), lowBattery))

	require.Len(t, f.calls, 2)
	assert.Equal(t, "notify-send", f.calls[0].name)
	assert.Equal(t, "kdialog", f.calls[1].name)
	assert.Equal(t, []string{"--passivepopup", lowBattery.Body, "10", "--title", lowBattery.Title}, f.calls[1].args)
}

func TestLinuxAllToolsFail(t *testing.T) {
	f := &fakeExec{
		installed: map[string]bool{"notify-send": true, "zenity": true},
		failing:   map[string]bool{"notify-send": true, "zenity": true},
	}

	err := f.notifier("linux").Notify(context.Background(), lowBattery)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, notify.ErrNotifyFailed))
	assert.Contains(t, err.Error(), "zenity")
}

func TestLinuxNoToolInstalled(t *testing.T) {
	f := &fakeExec{}

	err := f.notifier("linux").Notify(context.Background(), lowBattery)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, notify.ErrNoBackend))
	assert.Empty(t, f.calls)
}

func TestDarwinEscapesAppleScript(t *testing.T) {
	f := &fakeExec{installed: map[string]bool{"osascript": true}}
	msg := notify.Message{Title: `Say "hi"`, Body: `C:\path`}

	require.NoError(t, f.notifier("darwin").Notify(context.Background(), msg))

	require.Len(t, f.calls, 1)
	assert.Equal(t, []string{"-e", `display notification "C:\\path" with title "Say \"hi\""`}, f.calls[0].args)
}

func TestWindowsBurntToastThenWinRT(t *testing.T) {
	f := &fakeExec{installed: map[string]bool{"powershell": true}}
	msg := notify.Message{Title: "Low Battery", Body: "It's at 5%"}

	require.NoError(t, f.notifier("windows").Notify(context.Background(), msg))

	require.Len(t, f.calls, 1)
	assert.Equal(t, "powershell", f.calls[0].name)
	assert.Contains(t, f.calls[0].args[3], `New-BurntToastNotification -Text 'Low Battery', 'It''s at 5%'`)
}

func TestUnsupportedPlatform(t *testing.T) {
	f := &fakeExec{}
	n := f.notifier("plan9")

	assert.Equal(t, "plan9", n.Name())

	err := n.Notify(context.Background(), lowBattery)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, notify.ErrUnsupportedPlatform))
}

func TestCanceledContextStopsChain(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeExec{installed: map[string]bool{"notify-send": true, "zenity": true}}
	run := func(_ context.Context, name string, args ...string) error {
		f.calls = append(f.calls, call{name: name, args: args})
		cancel()
		return stderrors.New("killed")
	}

	n := notify.New(
		notify.WithGOOS("linux"),
		notify.WithLibrary(nil),
		notify.WithRunner(run),
		notify.WithLookPath(f.lookPath),
	)
	err := n.Notify(ctx, lowBattery)

	require.Error(t, err)
	assert.Len(t, f.calls, 1)
}

type fakeLibrary struct {
	sent  []notify.Message
	err   error
	block chan struct{}
}

func (l *fakeLibrary) notify(msg notify.Message) error {
	l.sent = append(l.sent, msg)
	if l.block != nil {
		<-l.block
	}
	return l.err
}

func TestLibraryFirst(t *testing.T) {
	lib := &fakeLibrary{}
	f := &fakeExec{installed: map[string]bool{"notify-send": true}}
	n := notify.New(
		notify.WithGOOS("linux"),
		notify.WithLibrary(lib.notify),
		notify.WithRunner(f.run),
		notify.WithLookPath(f.lookPath),
	)

	require.NoError(t, n.Notify(context.Background(), lowBattery))

	require.Len(t, lib.sent, 1)
	assert.Equal(t, lowBattery, lib.sent[0])
	assert.Empty(t, f.calls, "Tools are only a fallback")
}

func TestLibraryFailureFallsBackToTools(t *testing.T) {
	lib := &fakeLibrary{err: stderrors.New("no dbus session")}
	f := &fakeExec{installed: map[string]bool{"notify-send": true}}
	n := notify.New(
		notify.WithGOOS("linux"),
		notify.WithLibrary(lib.notify),
		notify.WithRunner(f.run),
		notify.WithLookPath(f.lookPath),
	)

	require.NoError(t, n.Notify(context.Background(), lowBattery))

	assert.Len(t, lib.sent, 1)
	require.Len(t, f.calls, 1)
	assert.Equal(t, "notify-send", f.calls[0].name)
}

func TestLibraryAndToolsFail(t *testing.T) {
	lib := &fakeLibrary{err: stderrors.New("no dbus session")}
	f := &fakeExec{
		installed: map[string]bool{"notify-send": true},
		failing:   map[string]bool{"notify-send": true},
	}
	n := notify.New(
		notify.WithGOOS("linux"),
		notify.WithLibrary(lib.notify),
		notify.WithRunner(f.run),
		notify.WithLookPath(f.lookPath),
	)

	err := n.Notify(context.Background(), lowBattery)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, notify.ErrNotifyFailed))
	assert.Contains(t, err.Error(), "beeep: no dbus session")
	assert.Contains(t, err.Error(), "notify-send")
}

func TestLibraryTimeout(t *testing.T) {
	lib := &fakeLibrary{block: make(chan struct{})}
	defer close(lib.block)

	f := &fakeExec{installed: map[string]bool{"notify-send": true}}
	n := notify.New(
		notify.WithGOOS("linux"),
		notify.WithLibrary(lib.notify),
		notify.WithRunner(f.run),
		notify.WithLookPath(f.lookPath),
		notify.WithTimeout(20*time.Millisecond),
	)

	require.NoError(t, n.Notify(context.Background(), lowBattery))
	assert.Len(t, f.calls, 1, "A hung library call gives way to the tools")
}

func TestLibraryOnlyPlatform(t *testing.T) {
	lib := &fakeLibrary{}
	n := notify.New(notify.WithGOOS("plan9"), notify.WithLibrary(lib.notify))

	require.NoError(t, n.Notify(context.Background(), lowBattery))
	assert.Len(t, lib.sent, 1)

	lib.err = stderrors.New("unsupported")
	err := n.Notify(context.Background(), lowBattery)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, notify.ErrUnsupportedPlatform))
}

func TestUrgencyString(t *testing.T) {
	assert.Equal(t, "low", notify.UrgencyLow.String())
	assert.Equal(t, "normal", notify.UrgencyNormal.String())
	assert.Equal(t, "critical", notify.UrgencyCritical.String())
}
