package main

import (
	"context"
	"fmt"

	"github.com/kennelworks/kennel-api/pkg/migrations"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

func newMigrateCommand(cli *cliContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the SQL schema",
	}

	up := &cobra.Command{
		Use:   "up",
		Short: "Apply every pending migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.migrate(cmd.Context(), func(ctx context.Context, db *gorm.DB, cfg migrations.Config) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return migrations.Up(ctx, sqlDB, cfg)
			})
		},
	}

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations (all of them unless --steps is set)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.migrate(cmd.Context(), func(ctx context.Context, db *gorm.DB, cfg migrations.Config) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return migrations.Down(ctx, sqlDB, cfg, steps)
			})
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back; 0 rolls back everything")

	version := &cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cli.migrate(cmd.Context(), func(ctx context.Context, db *gorm.DB, cfg migrations.Config) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				info, err := migrations.Version(ctx, sqlDB, cfg)
				if err != nil {
					return err
				}
				if !info.Applied {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", info.Version, info.Dirty)
				return nil
			})
		},
	}

	cmd.AddCommand(up, down, version)
	return cmd
}

func (cli *cliContext) migrate(ctx context.Context, fn func(ctx context.Context, db *gorm.DB, cfg migrations.Config) error) error {
	return cli.withDB(ctx, func(ctx context.Context, db *gorm.DB) error {
		return fn(ctx, db, migrations.Config{Driver: cli.dbConfig.Driver, Logger: cli.logger})
	})
}
