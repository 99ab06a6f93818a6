package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/paybridge/internal/infrastructure/database"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/version"
)

const shutdownTimeout = 30 * time.Second

var (
	env         string
	configPath  string
	autoMigrate bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Serve gateway webhooks and the admin API. With server.run_scheduler set, due charges and event sweeps also run in this process.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Migrate the schema on startup (not recommended for production)")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	environment := resolveEnv(env)

	rt, err := bootstrap(environment, configPath, autoMigrate)
	if err != nil {
		return err
	}
	defer logger.Sync()
	defer database.Close()

	rt.log.Infow("starting server",
		"environment", environment,
		"version", version.Current(),
		"run_scheduler", rt.cfg.Server.RunScheduler)

	rt.container.SetupRoutes()

	if rt.cfg.Server.RunScheduler {
		if err := rt.container.StartScheduler(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         rt.cfg.Server.GetAddr(),
		Handler:      rt.container.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		rt.log.Infow("server listening", "address", srv.Addr, "mode", rt.cfg.Server.Mode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serveErr:
		rt.container.Shutdown(context.Background())
		return fmt.Errorf("failed to start server: %w", err)
	case sig := <-quit:
		rt.log.Infow("shutting down server", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		rt.log.Errorw("server forced to shutdown", "error", err)
	}
	rt.container.Shutdown(ctx)

	rt.log.Infow("server exited gracefully")
	return nil
}
