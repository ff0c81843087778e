package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kennelworks/kennel-api/config"
	"github.com/kennelworks/kennel-api/domain"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := log.NewLoggerWithJSONOutput()

	if err := newServerCommand(logger).Execute(); err != nil {
		os.Exit(1)
	}
}

func newServerCommand(logger *log.Logger) *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:           "kennel-api",
		Short:         "Serve the kennel waitlist API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, logger, autoMigrate)
		},
	}
	cmd.Flags().BoolVarP(&autoMigrate, "auto-migrate", "m", false, "run gorm AutoMigrate before serving (development only)")

	return cmd
}

func serve(ctx context.Context, logger *log.Logger, autoMigrate bool) error {
	appConfig, err := config.LoadApplicationConfiguration(logger, autoMigrate)
	if err != nil {
		logger.Error("Failed to load application configuration", "error", err.Error())
		return err
	}
	defer appConfig.Cleanup()

	domain.SetupCoreDomain(appConfig)
	logger.Info("Kennel API initialized", "env", appConfig.Config.AppEnv, "port", appConfig.Config.Port)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- appConfig.RouterService.RunHTTPServer()
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			logger.Error("Server error", "error", err)
		}
		return err
	case <-ctx.Done():
		logger.Info("Shutdown signal received, shutting down gracefully")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := appConfig.RouterService.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	if err := <-serverErr; err != nil {
		logger.Warn("HTTP server stopped with error", "error", err)
	}

	logger.Info("Graceful shutdown completed")
	return nil
}
