package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aidisdev/aidis/internal/config"
	"github.com/aidisdev/aidis/internal/lifecycle"
	"github.com/aidisdev/aidis/internal/observability"
)

// buildServeCmd creates the "serve" command that runs the daemon.
func buildServeCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon",
		Long: `Start the daemon with both transports attached.

The daemon will:
1. Acquire the singleton PID-file lock
2. Connect to Postgres with retry and apply migrations
3. Bootstrap an active session
4. Start background workers
5. Assign a port, start the HTTP server and register it
6. Serve JSON-RPC on stdin/stdout until stdin closes

Graceful shutdown is handled on SIGINT/SIGTERM signals.`,
		Example: `  # Start with defaults
  aidis serve

  # Start with a config file
  aidis serve --config /etc/aidis/aidis.yaml

  # HTTP only, no stdio transport
  AIDIS_SKIP_STDIO=true aidis serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath, debug)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to YAML configuration file")
	cmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	return cmd
}

func runServe(ctx context.Context, configPath string, debug bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if debug {
		cfg.Debug = true
		cfg.Logging.Level = "debug"
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})

	return lifecycle.New(cfg, logger, version).Run(ctx)
}
