package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/kennelworks/kennel-api/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DBConfig struct {
	Driver string
	// SQLitePath is used when Driver is sqlite.
	SQLitePath      string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SSLMode         string
	SlowQuery       time.Duration
}

func NewDBConfig() *DBConfig {
	return &DBConfig{
		Driver:          strings.ToLower(utils.GetEnvTrimmedOrDefault("DB_DRIVER", DriverPostgres)),
		SQLitePath:      utils.GetEnvTrimmedOrDefault("SQLITE_PATH", "kennel.db"),
		MaxIdleConns:    utils.GetEnvPositiveInt("DB_MAX_IDLE_CONNS", 10),
		MaxOpenConns:    utils.GetEnvPositiveInt("DB_MAX_OPEN_CONNS", 50),
		ConnMaxLifetime: utils.GetEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		SSLMode:         "require",
		SlowQuery:       utils.GetEnvDuration("DB_SLOW_QUERY_THRESHOLD", 200*time.Millisecond),
	}
}

func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		cfg = NewDBConfig()
	}

	dialector, err := buildDialector(logger, cfg)
	if err != nil {
		return nil, err
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(slogWriter{logger}, gormlogger.Config{
			SlowThreshold:             cfg.SlowQuery,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		logger.Error("Failed to connect to database", "driver", cfg.Driver, "error", err)
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Error("Failed to get database instance", "error", err)
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite has one writer; a single connection serializes transactions.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		logger.Error("Database ping failed", "error", err)
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	logger.Info("Database connection established successfully", "driver", cfg.Driver)
	return gdb, nil
}

func buildDialector(logger *log.Logger, cfg *DBConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case DriverSQLite:
		logger.Warn("Using SQLite database; intended for local development only", "path", cfg.SQLitePath)
		return sqlite.Open(cfg.SQLitePath + "?_busy_timeout=10000&_foreign_keys=on"), nil
	case DriverPostgres:
		dsn, err := buildPostgresDSN(logger, cfg)
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q (supported: %s, %s)", cfg.Driver, DriverPostgres, DriverSQLite)
	}
}

func buildPostgresDSN(logger *log.Logger, cfg *DBConfig) (string, error) {
	if appDatabaseURL := sanitizeEnv(GetValueFromEnvironmentVariable("APP_DATABASE_URL", "")); appDatabaseURL != "" {
		logger.Info("Using APP_DATABASE_URL for database connection")
		return appDatabaseURL, nil
	}

	params := readPostgresEnv()
	if params.sslMode == "" {
		params.sslMode = cfg.SSLMode
	}

	if missing := params.missing(); len(missing) > 0 {
		logger.Error("Missing required database environment variables", "missing_vars", strings.Join(missing, ", "))
		return "", fmt.Errorf("missing required database env vars: %s", strings.Join(missing, ", "))
	}

	port, err := strconv.Atoi(params.port)
	if err != nil {
		logger.Error("Invalid POSTGRES_PORT", "error", err)
		return "", fmt.Errorf("invalid POSTGRES_PORT %q: %w", params.port, err)
	}

	logger.Info("Connecting to database",
		"host", params.host,
		"port", port,
		"user", params.user,
		"dbname", params.dbName,
		"sslmode", params.sslMode,
	)

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		params.host, port, params.user, params.password, params.dbName, params.sslMode,
	), nil
}

type postgresParams struct {
	host, port, user, password, dbName, sslMode string
}

func readPostgresEnv() postgresParams {
	return postgresParams{
		host:     sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_HOST", "")),
		port:     sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_PORT", "5432")),
		user:     sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_USER", "")),
		password: sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_PASSWORD", "")),
		dbName:   sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_DB_NAME", "")),
		sslMode:  sanitizeEnv(GetValueFromEnvironmentVariable("POSTGRES_SSLMODE", "")),
	}
}

func (p postgresParams) missing() []string {
	var missing []string
	for name, value := range map[string]string{
		"POSTGRES_HOST":    p.host,
		"POSTGRES_PORT":    p.port,
		"POSTGRES_USER":    p.user,
		"POSTGRES_DB_NAME": p.dbName,
	} {
		if value == "" {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func sanitizeEnv(v string) string {
	s := strings.TrimSpace(v)

	if len(s) >= 2 && ((s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'')) {
		s = s[1 : len(s)-1]
	}

	return s
}

// slogWriter routes gorm's slow-query and error lines into the JSON logger.
type slogWriter struct {
	logger *log.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn("gorm", "detail", fmt.Sprintf(format, args...))
}

func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...interface{}) error {
	if db == nil {
		logger.Error("Cannot migrate: db is empty")
		return fmt.Errorf("cannot migrate: db is empty")
	}

	if err := db.AutoMigrate(models...); err != nil {
		logger.Error("Database migration failed", "error", err)
		return fmt.Errorf("auto-migrate failed: %w", err)
	}

	logger.Info("Database migration completed successfully")

	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Error("Failed to get SQL DB instance", "error", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("Failed to close database", "error", err)
	} else {
		logger.Info("Database closed successfully")
	}
}
