package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kennelworks/kennel-api/config"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const commandTimeout = 5 * time.Minute

// cliContext carries what every subcommand needs once the env file is loaded.
type cliContext struct {
	logger   *log.Logger
	dbConfig *config.DBConfig
	// openDB is swapped in tests.
	openDB func(logger *log.Logger, cfg *config.DBConfig) (*gorm.DB, error)
}

func main() {
	logger := log.NewLoggerWithJSONOutput()
	config.InitializeEnvFile(logger)

	cli := &cliContext{
		logger:   logger,
		dbConfig: config.NewDBConfig(),
		openDB:   config.NewDatabase,
	}

	if err := newRootCommand(cli).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand(cli *cliContext) *cobra.Command {
	root := &cobra.Command{
		Use:           "kennel",
		Short:         "Operational commands for the kennel API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newMigrateCommand(cli),
		newCreateAdminCommand(cli),
		newPurgeSessionsCommand(cli),
	)
	return root
}

// withDB opens the configured database for the duration of fn.
func (cli *cliContext) withDB(ctx context.Context, fn func(ctx context.Context, db *gorm.DB) error) error {
	db, err := cli.openDB(cli.logger, cli.dbConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer config.CloseDatabase(db, cli.logger)

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	return fn(ctx, db)
}
