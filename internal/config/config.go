package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/battmon/internal/errors"
	"codeberg.org/mutker/battmon/internal/logger"
	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	appName          = "battmon"
	configFileName   = "battmon.toml"
	sampleLogName    = "samples.db"
	defaultEnvPrefix = "BATTMON"
	defaultDirPerm   = 0o755
	defaultFilePerm  = 0o644

	// TestInterval is the poll interval used by --test.
	TestInterval = 10
)

// Configuration keys, as they appear in the config file.
const (
	KeyThreshold          = "battery_threshold"
	KeyInterval           = "check_interval"
	KeyRepeatDelay        = "notification_repeat_delay"
	KeyLogLevel           = "log_level"
	KeyLogFile            = "log_file"
	KeyNotifyOnStart      = "notify_on_start"
	KeyNotifyTimeout      = "notify_timeout"
	KeySampleLog          = "sample_log"
	KeySampleLogPath      = "sample_log_path"
	KeySampleLogBatchSize = "sample_log_batch_size"
)

// Command line flag names.
const (
	FlagConfig    = "config"
	FlagThreshold = "threshold"
	FlagInterval  = "interval"
	FlagDebug     = "debug"
	FlagTest      = "test"
)

const (
	DefaultThreshold          = 15
	DefaultInterval           = 60
	DefaultRepeatDelay        = 300
	DefaultLogLevel           = "INFO"
	DefaultNotifyTimeout      = 10
	DefaultSampleLogBatchSize = 1
)

type Config struct {
	BatteryThreshold        int    `mapstructure:"battery_threshold" toml:"battery_threshold"`
	CheckInterval           int    `mapstructure:"check_interval" toml:"check_interval"`
	NotificationRepeatDelay int    `mapstructure:"notification_repeat_delay" toml:"notification_repeat_delay"`
	LogLevel                string `mapstructure:"log_level" toml:"log_level"`
	LogFile                 string `mapstructure:"log_file" toml:"log_file"`
	NotifyOnStart           bool   `mapstructure:"notify_on_start" toml:"notify_on_start"`
	NotifyTimeout           int    `mapstructure:"notify_timeout" toml:"notify_timeout"`
	SampleLog               bool   `mapstructure:"sample_log" toml:"sample_log"`
	SampleLogPath           string `mapstructure:"sample_log_path" toml:"sample_log_path"`
	SampleLogBatchSize      int    `mapstructure:"sample_log_batch_size" toml:"sample_log_batch_size"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		BatteryThreshold:        DefaultThreshold,
		CheckInterval:           DefaultInterval,
		NotificationRepeatDelay: DefaultRepeatDelay,
		LogLevel:                DefaultLogLevel,
		NotifyTimeout:           DefaultNotifyTimeout,
		SampleLogPath:           filepath.Join(appDir(), sampleLogName),
		SampleLogBatchSize:      DefaultSampleLogBatchSize,
	}
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.CheckInterval) * time.Second
}

func (c *Config) RepeatDelay() time.Duration {
	return time.Duration(c.NotificationRepeatDelay) * time.Second
}

func (c *Config) NotifyTimeoutDuration() time.Duration {
	return time.Duration(c.NotifyTimeout) * time.Second
}

// Validate checks every field and returns the first violation as a ValidationError
// wrapped in a coded error.
func (c *Config) Validate() error {
	errFactory := errors.New()

	switch {
	case c.BatteryThreshold < 1 || c.BatteryThreshold > 99:
		return errFactory.Wrap(errors.ErrInvalidConfig,
			&fieldError{KeyThreshold, c.BatteryThreshold, "must be between 1 and 99"})
	case c.CheckInterval < 1:
		return errFactory.Wrap(errors.ErrInvalidInterval,
			&fieldError{KeyInterval, c.CheckInterval, "must be a positive number of seconds"})
	case c.NotificationRepeatDelay < 0:
		return errFactory.Wrap(errors.ErrInvalidConfig,
			&fieldError{KeyRepeatDelay, c.NotificationRepeatDelay, "must not be negative"})
	case !LogLevel(c.LogLevel).IsValid():
		return errFactory.Wrap(errors.ErrInvalidLogLevel,
			&fieldError{KeyLogLevel, c.LogLevel, "must be one of DEBUG, INFO, WARNING, ERROR, CRITICAL"})
	case c.NotifyTimeout < 1:
		return errFactory.Wrap(errors.ErrInvalidConfig,
			&fieldError{KeyNotifyTimeout, c.NotifyTimeout, "must be a positive number of seconds"})
	case c.SampleLogBatchSize < 1:
		return errFactory.Wrap(errors.ErrInvalidConfig,
			&fieldError{KeySampleLogBatchSize, c.SampleLogBatchSize, "must be at least 1"})
	case c.SampleLog && strings.TrimSpace(c.SampleLogPath) == "":
		return errFactory.Wrap(errors.ErrInvalidConfig,
			&fieldError{KeySampleLogPath, c.SampleLogPath, "required when sample_log is enabled"})
	}

	return nil
}

// RegisterFlags adds the flags understood by WithFlags.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.StringP(FlagConfig, "c", "", "Path to the configuration file")
	fs.IntP(FlagThreshold, "t", DefaultThreshold, "Battery threshold percentage (1-99)")
	fs.IntP(FlagInterval, "i", DefaultInterval, "Check interval in seconds")
	fs.BoolP(FlagDebug, "d", false, "Enable debug logging")
	fs.Bool(FlagTest, false, "Run in test mode (10s interval)")
}

// Loader resolves the configuration from defaults, the config file, the environment
// and command line flags, in increasing order of precedence.
type Loader struct {
	v    *viper.Viper
	opts options
}

func NewLoader(opts ...Option) (*Loader, error) {
	o := options{envPrefix: defaultEnvPrefix}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, err
		}
	}

	if o.configPath == "" && o.flags != nil {
		if path, err := o.flags.GetString(FlagConfig); err == nil {
			o.configPath = path
		}
	}

	v := viper.New()
	def := Default()
	v.SetDefault(KeyThreshold, def.BatteryThreshold)
	v.SetDefault(KeyInterval, def.CheckInterval)
	v.SetDefault(KeyRepeatDelay, def.NotificationRepeatDelay)
	v.SetDefault(KeyLogLevel, def.LogLevel)
	v.SetDefault(KeyLogFile, def.LogFile)
	v.SetDefault(KeyNotifyOnStart, def.NotifyOnStart)
	v.SetDefault(KeyNotifyTimeout, def.NotifyTimeout)
	v.SetDefault(KeySampleLog, def.SampleLog)
	v.SetDefault(KeySampleLogPath, def.SampleLogPath)
	v.SetDefault(KeySampleLogBatchSize, def.SampleLogBatchSize)

	v.SetEnvPrefix(o.envPrefix)
	v.AutomaticEnv()

	return &Loader{v: v, opts: o}, nil
}

// Load loads configuration from all sources and validates it.
func Load(opts ...Option) (*Config, error) {
	l, err := NewLoader(opts...)
	if err != nil {
		return nil, err
	}

	return l.Load()
}

func (l *Loader) Load() (*Config, error) {
	if err := l.readFile(); err != nil {
		return nil, err
	}

	return l.decode()
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// Path returns the config file the loader reads: --config, then <PREFIX>_CONFIG,
// then DefaultPath. explicit is false for the default location.
func (l *Loader) Path() (path string, explicit bool) {
	if l.opts.configPath != "" {
		return l.opts.configPath, true
	}
	if path = os.Getenv(l.opts.envPrefix + "_CONFIG"); path != "" {
		return path, true
	}

	return DefaultPath(), false
}

func (l *Loader) readFile() error {
	errFactory := errors.New()

	path, explicit := l.Path()

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			logger.Debug().Str("path", path).Msg("No config file, using defaults")
			return nil
		}
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	l.v.SetConfigFile(path)
	if !supportedExt(filepath.Ext(path)) {
		l.v.SetConfigType("toml")
	}

	if err := l.v.ReadInConfig(); err != nil {
		return errFactory.Wrap(errors.ErrReadConfig, err)
	}

	logger.Debug().Str("path", path).Msg("Config file loaded")

	return nil
}

func (l *Loader) decode() (*Config, error) {
	l.applyFlags()

	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, errors.New().Wrap(errors.ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyFlags copies changed flags into viper as overrides, so they also survive reloads.
func (l *Loader) applyFlags() {
	fs := l.opts.flags
	if fs == nil {
		return
	}

	intervalSet := false
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case FlagThreshold:
			if n, err := fs.GetInt(f.Name); err == nil {
				l.v.Set(KeyThreshold, n)
			}
		case FlagInterval:
			if n, err := fs.GetInt(f.Name); err == nil {
				l.v.Set(KeyInterval, n)
				intervalSet = true
			}
		case FlagDebug:
			if on, err := fs.GetBool(f.Name); err == nil && on {
				l.v.Set(KeyLogLevel, string(LogLevelDebug))
			}
		}
	})

	if on, err := fs.GetBool(FlagTest); err == nil && on && !intervalSet {
		l.v.Set(KeyInterval, TestInterval)
	}
}

// Watch calls fn with every valid configuration read after the file changes.
// Invalid files are logged and skipped. Without a config file there is nothing to watch.
func (l *Loader) Watch(ctx context.Context, fn func(*Config)) {
	if l.v.ConfigFileUsed() == "" {
		logger.Debug().Msg("No config file in use, reload disabled")
		return
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if ctx.Err() != nil {
			return
		}

		cfg, err := l.decode()
		if err != nil {
			logger.Error().Err(err).Str("path", e.Name).Msg("Ignoring invalid configuration change")
			return
		}

		logger.Info().Str("path", e.Name).Msg("Configuration reloaded")
		fn(cfg)
	})
	l.v.WatchConfig()
}

// Subscribe is Watch delivered over a channel. Only the latest pending configuration is kept.
func (l *Loader) Subscribe(ctx context.Context) <-chan *Config {
	ch := make(chan *Config, 1)

	l.Watch(ctx, func(cfg *Config) {
		for {
			select {
			case ch <- cfg:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	})

	return ch
}

// DefaultPath returns the config file used when neither --config nor BATTMON_CONFIG is set.
func DefaultPath() string {
	return filepath.Join(appDir(), configFileName)
}

// WriteDefault writes the default configuration to path, replacing any existing file.
func WriteDefault(path string) error {
	errFactory := errors.New()

	if err := os.MkdirAll(filepath.Dir(path), defaultDirPerm); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, defaultFilePerm)
	if err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}
	defer f.Close()

	if _, err := f.WriteString("# battmon configuration\n\n"); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	if err := toml.NewEncoder(f).Encode(Default()); err != nil {
		return errFactory.Wrap(errors.ErrWriteConfig, err)
	}

	return nil
}

func appDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}

	return filepath.Join(dir, appName)
}

func supportedExt(ext string) bool {
	ext = strings.TrimPrefix(ext, ".")
	for _, e := range viper.SupportedExts {
		if e == ext {
			return true
		}
	}

	return false
}
