package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"sync"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	schema "github.com/kennelworks/kennel-api/migrations"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	DefaultMigrationsTable = "schema_migrations"
)

type migrator interface {
	Up() error
	Down() error
	Steps(n int) error
	Version() (version uint, dirty bool, err error)
	Close() (sourceErr error, databaseErr error)
}

var driverFactory = func(db *sql.DB, cfg Config) (database.Driver, error) {
	switch cfg.Driver {
	case DriverSQLite:
		return sqlite3.WithInstance(db, &sqlite3.Config{MigrationsTable: cfg.MigrationsTable})
	default:
		return postgres.WithInstance(db, &postgres.Config{MigrationsTable: cfg.MigrationsTable})
	}
}

var sourceFactory = func(fsys fs.FS) (source.Driver, error) {
	return iofs.New(fsys, ".")
}

var migratorFactory = func(src source.Driver, databaseName string, driver database.Driver) (migrator, error) {
	return migrate.NewWithInstance("iofs", src, databaseName, driver)
}

type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type Config struct {
	// Driver is DriverPostgres (default) or DriverSQLite.
	Driver          string
	MigrationsTable string
	// Source defaults to the embedded schema files.
	Source fs.FS
	Logger Logger
}

// VersionInfo describes the schema state recorded in the migrations table.
type VersionInfo struct {
	Version uint
	Dirty   bool
	// Applied is false on a database no migration has touched yet.
	Applied bool
}

func (c Config) withDefaults() Config {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverPostgres
	}
	if strings.TrimSpace(c.MigrationsTable) == "" {
		c.MigrationsTable = DefaultMigrationsTable
	}
	if c.Source == nil {
		c.Source = schema.Files
	}
	return c
}

func (c Config) info(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Info(msg, args...)
	}
}

// Up applies every pending migration. Like Down and Version it closes db
// once the migrator is done with it.
func Up(ctx context.Context, db *sql.DB, cfg Config) error {
	return run(ctx, db, cfg, "up", func(m migrator, cfg Config) error {
		cfg.info("Running SQL migrations", "driver", cfg.Driver, "table", cfg.MigrationsTable)
		if err := ignoreNoChange(m.Up(), cfg); err != nil {
			return err
		}
		cfg.info("Migrations applied successfully")
		return nil
	})
}

// Down rolls back the given number of migrations, or all of them when steps <= 0.
func Down(ctx context.Context, db *sql.DB, cfg Config, steps int) error {
	return run(ctx, db, cfg, "down", func(m migrator, cfg Config) error {
		cfg.info("Rolling back SQL migrations", "driver", cfg.Driver, "steps", steps)
		var err error
		if steps > 0 {
			err = m.Steps(-steps)
		} else {
			err = m.Down()
		}
		if err := ignoreNoChange(err, cfg); err != nil {
			return err
		}
		cfg.info("Migrations rolled back successfully")
		return nil
	})
}

// Version reports the current schema version.
func Version(ctx context.Context, db *sql.DB, cfg Config) (VersionInfo, error) {
	var out VersionInfo
	err := run(ctx, db, cfg, "version", func(m migrator, _ Config) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return err
		}
		out = VersionInfo{Version: version, Dirty: dirty, Applied: true}
		return nil
	})
	return out, err
}

func ignoreNoChange(err error, cfg Config) error {
	if errors.Is(err, migrate.ErrNoChange) {
		cfg.info("No migrations to apply")
		return nil
	}
	return err
}

func run(ctx context.Context, db *sql.DB, cfg Config, op string, fn func(migrator, Config) error) error {
	if db == nil {
		return fmt.Errorf("migrations: db is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg = cfg.withDefaults()

	src, err := sourceFactory(cfg.Source)
	if err != nil {
		return fmt.Errorf("migrations: source: %w", err)
	}

	driver, err := driverFactory(db, cfg)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("migrations: %s driver: %w", cfg.Driver, err)
	}

	m, err := migratorFactory(src, cfg.Driver, driver)
	if err != nil {
		_ = src.Close()
		return fmt.Errorf("migrations: init: %w", err)
	}

	var closeOnce sync.Once
	closeMigrator := func() {
		closeOnce.Do(func() {
			srcErr, dbErr := m.Close()
			if cfg.Logger == nil {
				return
			}
			if srcErr != nil {
				cfg.Logger.Warn("Migrations source close error", "error", srcErr)
			}
			if dbErr != nil {
				cfg.Logger.Warn("Migrations db close error", "error", dbErr)
			}
		})
	}
	defer closeMigrator()

	errCh := make(chan error, 1)
	go func() {
		errCh <- fn(m, cfg)
	}()

	select {
	case <-ctx.Done():
		// migrate takes no context; closing the migrator is the only interrupt.
		closeMigrator()
		return ctx.Err()
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("migrations: %s: %w", op, err)
		}
		return nil
	}
}
