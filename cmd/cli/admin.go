package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kennelworks/kennel-api/config"
	"github.com/kennelworks/kennel-api/domain/auth"
	"github.com/kennelworks/kennel-api/pkg/utils"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// AdminPasswordEnvKey lets scripts avoid putting the password on the command line.
const AdminPasswordEnvKey = "KENNEL_ADMIN_PASSWORD"

func (cli *cliContext) authService(db *gorm.DB) auth.AuthService {
	return auth.NewAuthService(cli.logger, auth.NewAuthRepository(db), auth.Config{
		BcryptCost: utils.GetEnvPositiveInt("BCRYPT_COST", config.DefaultBcryptCost),
	})
}

func newCreateAdminCommand(cli *cliContext) *cobra.Command {
	var req auth.CreateAdminRequest

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account that can moderate the waitlist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Password == "" {
				req.Password = utils.GetEnvTrimmed(AdminPasswordEnvKey)
			}
			if strings.TrimSpace(req.Password) == "" {
				return errors.New("password required: pass --password or set " + AdminPasswordEnvKey)
			}

			return cli.withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				admin, err := cli.authService(db).CreateAdmin(ctx, &req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", admin.Email, admin.ID)
				return nil
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&req.Email, "email", "", "admin email address")
	flags.StringVar(&req.FirstName, "first-name", "", "admin first name")
	flags.StringVar(&req.LastName, "last-name", "", "admin last name")
	flags.StringVar(&req.Password, "password", "", "admin password (defaults to $"+AdminPasswordEnvKey+")")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")

	return cmd
}

func newPurgeSessionsCommand(cli *cliContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge-sessions",
		Short: "Delete expired admin sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.withDB(cmd.Context(), func(ctx context.Context, db *gorm.DB) error {
				removed, err := cli.authService(db).PurgeExpiredSessions(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired sessions\n", removed)
				return nil
			})
		},
	}
}
