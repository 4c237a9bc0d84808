package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/multiverse-hub/inference-gateway/pkg/cli"
	"github.com/multiverse-hub/inference-gateway/pkg/config"
	"github.com/multiverse-hub/inference-gateway/pkg/server"
	"github.com/multiverse-hub/inference-gateway/pkg/telemetry/logging"
)

var runFlags struct {
	dryRun bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the inference gateway",
	Long: `Start the inference gateway, listening for client requests and backend
registrations.

Configuration is read from the environment (see pkg/config); set CONFIG_FILE
to a YAML file to provide fallback values for anything not set in the real
environment.`,
	RunE: runGateway,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate configuration without starting the server")
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	config.Initialize(cfg)

	if err := setupLogging(cfg.LogLevel, cfg.LogFormat); err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	server.Version = Version

	srv, err := server.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize gateway: %w", err)
	}

	ctx := cli.SetupSignalHandler()

	return srv.Start(ctx)
}

// setupLogging installs the process-wide slog default. The handler is
// built by pkg/telemetry/logging, with PII redaction enabled, so every
// log call anywhere in the gateway (not just calls made through that
// package's own Logger type) redacts backend API keys and other sensitive
// values the same way before they reach stdout.
func setupLogging(level, format string) error {
	handler, err := logging.NewHandler(logging.Config{
		Level:     level,
		Format:    format,
		RedactPII: true,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(handler))
	return nil
}
