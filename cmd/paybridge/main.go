package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/orris-inc/paybridge/internal/interfaces/cli/migrate"
	"github.com/orris-inc/paybridge/internal/interfaces/cli/server"
	"github.com/orris-inc/paybridge/internal/interfaces/cli/token"
	"github.com/orris-inc/paybridge/internal/shared/version"
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "paybridge",
		Short:   "Paybridge - payment gateway webhooks and subscription billing",
		Long:    `Paybridge ingests MercadoPago and Stripe webhooks, keeps subscription state per tenant and charges due subscriptions.`,
		Version: version.String(),
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		server.NewWorkerCommand(),
		migrate.NewCommand(),
		token.NewCommand(),
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
