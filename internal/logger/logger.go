package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/battmon/internal/errors"
	"github.com/rs/zerolog"
)

const (
	logDirPerm  = 0o755
	logFilePerm = 0o644
)

var (
	log     = defaultLogger(os.Stdout)
	logFile *os.File
)

type LogLevel int8

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

type LogEvent struct {
	*zerolog.Event
}

func (e *LogEvent) Msg(msg string) {
	e.Event.Msg(msg)
}

func (e *LogEvent) Send() {
	e.Event.Send()
}

// Options controls where log records go.
type Options struct {
	Level     LogLevel
	IsService bool
	// File, when set, receives a copy of every record.
	File string
}

// Init initializes the logger based on the given configuration
func Init(opts Options) error {
	output := consoleWriter(os.Stdout, opts.IsService)

	var w io.Writer = output
	if opts.File != "" {
		f, err := openLogFile(opts.File)
		if err != nil {
			return err
		}
		logFile = f
		w = zerolog.MultiLevelWriter(output, f)
	}

	log = zerolog.New(w).With().Timestamp().Logger()
	SetLogLevel(opts.Level)

	return nil
}

// defaultLogger serves records logged before Init, such as config loading.
// It stays at info level whatever the global level is.
func defaultLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(consoleWriter(w, false)).Level(zerolog.InfoLevel).With().Timestamp().Logger()
}

func consoleWriter(w io.Writer, isService bool) zerolog.ConsoleWriter {
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}

	if isService {
		output.TimeFormat = ""
		output.FormatTimestamp = func(_ interface{}) string {
			return ""
		}
	}

	return output
}

// InitWithWriter points the logger at w, for tests and tools.
func InitWithWriter(w io.Writer, level LogLevel) {
	log = zerolog.New(w).With().Timestamp().Logger()
	SetLogLevel(level)
}

func openLogFile(path string) (*os.File, error) {
	errFactory := errors.New()

	if err := os.MkdirAll(filepath.Dir(path), logDirPerm); err != nil {
		return nil, errFactory.Wrap(errors.ErrOpenLogFile, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePerm)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrOpenLogFile, err)
	}

	return f, nil
}

// Close releases the log file, if any. Console output keeps working.
func Close() error {
	if logFile == nil {
		return nil
	}

	err := logFile.Close()
	logFile = nil
	log = log.Output(consoleWriter(os.Stdout, false))

	if err != nil {
		return errors.New().Wrap(errors.ErrShutdownFailed, err)
	}

	return nil
}

// SetLogLevel sets the global log level
func SetLogLevel(level LogLevel) {
	zerolog.SetGlobalLevel(level.zerolog())
}

func (l LogLevel) zerolog() zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	default:
		return zerolog.FatalLevel
	}
}

// ParseLevel maps a configured level name to a LogLevel.
// "warn" and "warning" are equivalent; "critical" only lets fatal records through.
func ParseLevel(s string) (LogLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, true
	case "info":
		return InfoLevel, true
	case "warn", "warning":
		return WarnLevel, true
	case "error":
		return ErrorLevel, true
	case "critical", "fatal":
		return FatalLevel, true
	default:
		return InfoLevel, false
	}
}

// IsService checks if the application is running as a service
func IsService() bool {
	if _, err := os.Stdin.Stat(); err != nil {
		return true
	}
	if os.Getenv("SERVICE_NAME") != "" || os.Getenv("INVOCATION_ID") != "" {
		return true
	}

	return os.Getppid() == 1
}

// Debug logs a debug message
func Debug() *LogEvent {
	return &LogEvent{log.Debug()}
}

// Info logs an info message
func Info() *LogEvent {
	return &LogEvent{log.Info()}
}

// Warn logs a warning message
func Warn() *LogEvent {
	return &LogEvent{log.Warn()}
}

// Error logs an error message
func Error() *LogEvent {
	return &LogEvent{log.Error()}
}

// ErrorWithCode logs an error message with a specific error code
func ErrorWithCode(err errors.Error) *LogEvent {
	return &LogEvent{log.Error().
		Str("error_code", string(err.Code())).
		Str("error_message", err.Error()).
		AnErr("error", err.Unwrap())}
}
