package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Aurel1407/Shu-no-sub002/config"
	"github.com/Aurel1407/Shu-no-sub002/envutil"
	"github.com/Aurel1407/Shu-no-sub002/logger"
	"github.com/Aurel1407/Shu-no-sub002/shutdown"
	"github.com/Aurel1407/Shu-no-sub002/telemetry"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	appName              = "asyncop"
	telemetryFlushPeriod = 5 * time.Second
)

var shutdownTelemetry = telemetry.Shutdown

func newRootCommand(handler *shutdown.Handler) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Run HTTP calls through a retrying async-operation controller",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().String("config",
		envutil.String("ASYNCOP_CONFIG").ValueOrElse(""),
		"path to a YAML configuration file (env ASYNCOP_CONFIG)")

	root.AddCommand(newFetchCommand(handler), newConfigCommand())

	return root
}

// loadConfig reads the file named by --config and applies the environment.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}

	return config.Load(path)
}

// setup configures logging and telemetry. The returned function flushes
// telemetry and must be called before exiting.
func setup(ctx context.Context, cmd *cobra.Command, cfg config.Config, handler *shutdown.Handler) (func(), error) {
	logOpts, err := cfg.Logging.Options(appName)
	if err != nil {
		return nil, err
	}

	// stdout carries the response body.
	logOpts.Output = cmd.ErrOrStderr()

	logger.ConfigureLoggingWithOptions(logOpts)

	if err := telemetry.Initialize(ctx, cfg.Telemetry); err != nil {
		return nil, fmt.Errorf("initializing telemetry: %w", err)
	}

	// Both the signal hook and the caller's defer may call flush.
	var once sync.Once

	flush := func() {
		once.Do(func() {
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), telemetryFlushPeriod)
			defer cancel()

			if err := shutdownTelemetry(flushCtx); err != nil {
				logger.Get(ctx).Warn("telemetry shutdown failed", "error", err)
			}
		})
	}

	if handler != nil {
		handler.BeforeShutdown(flush)
	}

	return flush, nil
}

func newConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)

			if err := enc.Encode(cfg); err != nil {
				return err
			}

			return enc.Close()
		},
	}
}
