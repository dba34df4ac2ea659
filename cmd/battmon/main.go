package main

import (
	"context"
	"fmt"
	"os"

	"codeberg.org/mutker/battmon/internal/config"
	"codeberg.org/mutker/battmon/internal/errors"
	"codeberg.org/mutker/battmon/internal/logger"
	"codeberg.org/mutker/battmon/internal/metrics"
	"codeberg.org/mutker/battmon/internal/monitor"
	"codeberg.org/mutker/battmon/internal/notify"
	"codeberg.org/mutker/battmon/internal/pid"
	"codeberg.org/mutker/battmon/internal/telemetry"
	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.version=..."
var version = "dev"

const flagCreateConfig = "create-config"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "battmon",
		Short: "Warn when the battery runs low.",
		Long: `Polls the battery at a fixed interval and shows a desktop notification
when the charge drops below the threshold while running on battery power.
Notifications repeat after the repeat delay until the charger is connected
or the charge recovers.`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := run(cmd); err != nil {
				fmt.Fprintf(os.Stderr, "battmon: %v\n", err)
				return err
			}
			return nil
		},
	}

	config.RegisterFlags(cmd.Flags())
	cmd.Flags().Bool(flagCreateConfig, false, "Write the default configuration file and exit")

	return cmd
}

func run(cmd *cobra.Command) error {
	loader, err := config.NewLoader(config.WithFlags(cmd.Flags()))
	if err != nil {
		return err
	}

	if create, _ := cmd.Flags().GetBool(flagCreateConfig); create {
		return createConfig(cmd, loader)
	}

	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := newSignalContext(context.Background())
	defer stop()

	collector, err := initApp(cfg)
	if err != nil {
		return err
	}
	defer cleanup(collector)

	m := monitor.New(cfg,
		telemetry.NewSource(),
		newNotifier(cfg),
		monitor.WithNotifierFactory(newNotifier),
		monitor.WithRecorder(collector),
		monitor.WithUpdates(loader.Subscribe(ctx)),
	)

	if err := m.Run(ctx); err != nil {
		wrapped := errors.New().Wrap(errors.ErrMainLoop, err)
		logger.ErrorWithCode(wrapped).Msg("Error in main loop")
		return wrapped
	}

	logger.Info().Msg("Received termination signal.")

	return nil
}

func newNotifier(cfg *config.Config) notify.Notifier {
	return notify.New(notify.WithTimeout(cfg.NotifyTimeoutDuration()))
}

func createConfig(cmd *cobra.Command, loader *config.Loader) error {
	path, _ := loader.Path()
	if err := config.WriteDefault(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Default configuration written to %s\n", path)

	return nil
}

// initApp sets up logging, the pid file and the sample log.
func initApp(cfg *config.Config) (metrics.MetricsCollector, error) {
	errFactory := errors.New()

	level, _ := logger.ParseLevel(cfg.LogLevel)
	if err := logger.Init(logger.Options{
		Level:     level,
		IsService: logger.IsService(),
		File:      cfg.LogFile,
	}); err != nil {
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}
	logger.Debug().Msg("Config loaded")

	if err := pid.Write(pid.DefaultPath()); err != nil {
		logger.Close()
		return nil, err
	}

	metricsCfg := metrics.DefaultConfig()
	metricsCfg.Enabled = cfg.SampleLog
	metricsCfg.DBPath = cfg.SampleLogPath
	if cfg.SampleLogBatchSize > 0 {
		metricsCfg.BatchSize = cfg.SampleLogBatchSize
	}

	collector, err := metrics.NewService(metricsCfg)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize sample log")
		removePID()
		logger.Close()
		return nil, errFactory.Wrap(errors.ErrInitApp, err)
	}

	return collector, nil
}

func cleanup(collector metrics.MetricsCollector) {
	if err := collector.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close sample log")
	}
	removePID()
	logger.Info().Msg("Exiting...")
	if err := logger.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "battmon: failed to close log file: %v\n", err)
	}
}

func removePID() {
	if err := pid.Remove(pid.DefaultPath()); err != nil {
		logger.Error().Err(err).Msg("Failed to remove pid file")
	}
}
