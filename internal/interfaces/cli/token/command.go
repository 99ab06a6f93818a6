package token

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/orris-inc/paybridge/internal/infrastructure/auth"
	"github.com/orris-inc/paybridge/internal/infrastructure/config"
	"github.com/orris-inc/paybridge/internal/shared/authorization"
)

type options struct {
	env        string
	configPath string
	subject    string
	role       string
	tenantID   string
}

// NewCommand mints admin API tokens from the configured JWT secret.
func NewCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin API token",
		Long:  `Sign a bearer token for the admin API. Admin tokens reach every tenant; operator tokens are bound to --tenant.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.env, opts.configPath)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			svc, err := auth.NewJWTService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpMinutes)
			if err != nil {
				return err
			}
			return mint(cmd.OutOrStdout(), svc, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: ./configs/config.yaml)")
	cmd.Flags().StringVar(&opts.subject, "subject", "", "Who the token is issued to (required)")
	cmd.Flags().StringVar(&opts.role, "role", string(authorization.RoleOperator), "Token role: admin or operator")
	cmd.Flags().StringVar(&opts.tenantID, "tenant", "", "Tenant an operator token is bound to")
	_ = cmd.MarkFlagRequired("subject")

	return cmd
}

func mint(out io.Writer, svc *auth.JWTService, opts *options) error {
	role := authorization.Role(opts.role)
	if !role.IsValid() {
		return fmt.Errorf("invalid role %q: want admin or operator", opts.role)
	}

	signed, exp, err := svc.Generate(opts.subject, role, opts.tenantID)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, signed)
	fmt.Fprintf(out, "# expires %s\n", exp.Format(time.RFC3339))
	return nil
}
