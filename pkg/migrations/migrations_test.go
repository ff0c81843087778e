package migrations

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testLogger struct {
	mu    sync.Mutex
	infos []string
	warns []string
}

func (l *testLogger) Info(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.infos = append(l.infos, msg)
}

func (l *testLogger) Warn(msg string, _ ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *testLogger) Error(string, ...any) {}

type fakeMigrator struct {
	upErr    error
	downErr  error
	steps    []int
	version  uint
	dirty    bool
	verErr   error
	downCall bool
}

func (m *fakeMigrator) Up() error { return m.upErr }
func (m *fakeMigrator) Down() error {
	m.downCall = true
	return m.downErr
}
func (m *fakeMigrator) Steps(n int) error {
	m.steps = append(m.steps, n)
	return m.downErr
}
func (m *fakeMigrator) Version() (uint, bool, error) { return m.version, m.dirty, m.verErr }
func (m *fakeMigrator) Close() (error, error)        { return nil, nil }

type blockingMigrator struct {
	fakeMigrator
	closeCh   chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool
}

func (m *blockingMigrator) Up() error {
	<-m.closeCh
	return nil
}

func (m *blockingMigrator) Close() (error, error) {
	m.closeOnce.Do(func() {
		m.closed.Store(true)
		close(m.closeCh)
	})
	return nil, nil
}

// stubFactories swaps the driver and migrator for the duration of the test.
func stubFactories(t *testing.T, m migrator) *Config {
	t.Helper()

	origDriver, origMigrator := driverFactory, migratorFactory
	t.Cleanup(func() {
		driverFactory = origDriver
		migratorFactory = origMigrator
	})

	seen := &Config{}
	driverFactory = func(_ *sql.DB, cfg Config) (database.Driver, error) {
		*seen = cfg
		return nil, nil
	}
	migratorFactory = func(_ source.Driver, _ string, _ database.Driver) (migrator, error) {
		return m, nil
	}
	return seen
}

func TestUp_NilDB(t *testing.T) {
	assert.Error(t, Up(context.Background(), nil, Config{}))
}

func TestUp_DefaultsConfig(t *testing.T) {
	seen := stubFactories(t, &fakeMigrator{})

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Driver: " SQLite "}))
	assert.Equal(t, DriverSQLite, seen.Driver)
	assert.Equal(t, DefaultMigrationsTable, seen.MigrationsTable)
	assert.NotNil(t, seen.Source)

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{}))
	assert.Equal(t, DriverPostgres, seen.Driver)
}

func TestUp_ContextAlreadyCancelled(t *testing.T) {
	var called atomic.Bool
	origDriver := driverFactory
	t.Cleanup(func() { driverFactory = origDriver })
	driverFactory = func(*sql.DB, Config) (database.Driver, error) {
		called.Store(true)
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Up(ctx, &sql.DB{}, Config{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called.Load())
}

func TestUp_DeadlineClosesMigrator(t *testing.T) {
	block := &blockingMigrator{closeCh: make(chan struct{})}
	stubFactories(t, block)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := Up(ctx, &sql.DB{}, Config{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, block.closed.Load())
}

func TestUp_NoChangeIsSuccess(t *testing.T) {
	stubFactories(t, &fakeMigrator{upErr: migrate.ErrNoChange})
	logger := &testLogger{}

	require.NoError(t, Up(context.Background(), &sql.DB{}, Config{Logger: logger}))
	assert.Contains(t, logger.infos, "No migrations to apply")
}

func TestUp_WrapsFailure(t *testing.T) {
	stubFactories(t, &fakeMigrator{upErr: errors.New("syntax error")})

	err := Up(context.Background(), &sql.DB{}, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations: up")
}

func TestUp_MigratorInitError(t *testing.T) {
	stubFactories(t, nil)
	migratorFactory = func(source.Driver, string, database.Driver) (migrator, error) {
		return nil, errors.New("boom")
	}

	err := Up(context.Background(), &sql.DB{}, Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations: init")
}

func TestDown_StepsAndAll(t *testing.T) {
	m := &fakeMigrator{}
	stubFactories(t, m)

	require.NoError(t, Down(context.Background(), &sql.DB{}, Config{}, 2))
	assert.Equal(t, []int{-2}, m.steps)
	assert.False(t, m.downCall)

	require.NoError(t, Down(context.Background(), &sql.DB{}, Config{}, 0))
	assert.True(t, m.downCall)
}

func TestVersion_NilVersionIsNotApplied(t *testing.T) {
	stubFactories(t, &fakeMigrator{verErr: migrate.ErrNilVersion})

	info, err := Version(context.Background(), &sql.DB{}, Config{})
	require.NoError(t, err)
	assert.False(t, info.Applied)
}

func TestVersion_ReportsDirty(t *testing.T) {
	stubFactories(t, &fakeMigrator{version: 1, dirty: true})

	info, err := Version(context.Background(), &sql.DB{}, Config{})
	require.NoError(t, err)
	assert.Equal(t, VersionInfo{Version: 1, Dirty: true, Applied: true}, info)
}

func openSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	return db
}

func TestEmbeddedSchema_UpAndDownOnSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kennel.db")
	cfg := Config{Driver: DriverSQLite}
	ctx := context.Background()

	require.NoError(t, Up(ctx, openSQLite(t, path), cfg))

	info, err := Version(ctx, openSQLite(t, path), cfg)
	require.NoError(t, err)
	assert.Equal(t, VersionInfo{Version: 1, Applied: true}, info)

	check := openSQLite(t, path)
	var enabled bool
	require.NoError(t, check.QueryRow("SELECT waitlist_enabled FROM settings WHERE id = 1").Scan(&enabled))
	assert.True(t, enabled)

	_, err = check.Exec(`INSERT INTO waitlist_entries (id, first_name, last_name, phone_number, position, created_at, updated_at)
		VALUES ('a', 'A', 'B', '(555) 123-4567', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	require.NoError(t, err)
	_, err = check.Exec(`INSERT INTO waitlist_entries (id, first_name, last_name, phone_number, position, created_at, updated_at)
		VALUES ('b', 'A', 'B', '(555) 123-4567', 1, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`)
	assert.Error(t, err, "position must be unique")
	require.NoError(t, check.Close())

	require.NoError(t, Down(ctx, openSQLite(t, path), cfg, 1))

	info, err = Version(ctx, openSQLite(t, path), cfg)
	require.NoError(t, err)
	assert.False(t, info.Applied)
}
