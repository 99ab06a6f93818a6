package server

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orris-inc/paybridge/internal/infrastructure/database"
	"github.com/orris-inc/paybridge/internal/shared/logger"
	"github.com/orris-inc/paybridge/internal/shared/version"
)

// NewWorkerCommand runs the due-charge and sweep jobs without the HTTP
// listener, for deployments that scale the two separately.
func NewWorkerCommand() *cobra.Command {
	var (
		workerEnv    string
		workerConfig string
	)

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run scheduled charges and event sweeps",
		RunE: func(cmd *cobra.Command, args []string) error {
			environment := resolveEnv(workerEnv)

			rt, err := bootstrap(environment, workerConfig, false)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer database.Close()

			rt.log.Infow("starting billing worker",
				"environment", environment,
				"version", version.Current(),
				"charge_interval", rt.cfg.Billing.ChargeInterval)

			if err := rt.container.StartScheduler(); err != nil {
				return fmt.Errorf("failed to start scheduler: %w", err)
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			sig := <-quit
			rt.log.Infow("received signal, shutting down", "signal", sig.String())

			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			rt.container.Shutdown(ctx)

			rt.log.Infow("billing worker stopped")
			return nil
		},
	}

	cmd.Flags().StringVarP(&workerEnv, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&workerConfig, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")

	return cmd
}
