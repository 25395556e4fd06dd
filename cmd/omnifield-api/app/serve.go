package app

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/stacklok/omnifield-ingest/internal/app"
	"github.com/stacklok/omnifield-ingest/internal/config"
)

const defaultGracefulTimeout = 30 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ingestion API server",
		Long: `Start the ingestion API server.

The server requires a configuration file (--config) that declares:
- The named sources (file, http, or git) and their formats
- Cache TTL, parallelism, timeouts, and background refresh
- Dashboard module bindings and telemetry settings

See examples/ directory for sample configurations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v.GetString("config"), v.GetString("address"))
		},
	}

	cmd.Flags().String("address", ":8080", "Address to listen on")
	cmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	mustBind(v, "address", cmd.Flags().Lookup("address"))
	mustBind(v, "config", cmd.Flags().Lookup("config"))

	if err := cmd.MarkFlagRequired("config"); err != nil {
		panic(fmt.Sprintf("failed to mark config flag as required: %v", err))
	}
	return cmd
}

func runServe(ctx context.Context, configPath, address string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.LoadConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	slog.Info("Loaded configuration",
		"path", configPath,
		"registry", cfg.GetRegistryName(),
		"sources", len(cfg.Sources))

	registryApp, err := app.NewRegistryApp(ctx,
		app.WithConfig(cfg),
		app.WithAddress(address),
	)
	if err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- registryApp.Start()
	}()

	select {
	case err := <-serveErr:
		// The server stopped on its own; release everything else it owns
		if stopErr := registryApp.Stop(defaultGracefulTimeout); stopErr != nil {
			slog.Error("Failed to stop application", "error", stopErr)
		}
		return err
	case <-sigCtx.Done():
	}

	if err := registryApp.Stop(defaultGracefulTimeout); err != nil {
		return err
	}
	return <-serveErr
}
