package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/kennelworks/kennel-api/config"
	"github.com/kennelworks/kennel-api/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCLI(t *testing.T) *cliContext {
	t.Helper()
	t.Setenv("BCRYPT_COST", "4")

	return &cliContext{
		logger: log.NewLoggerWithJSONOutput(),
		dbConfig: &config.DBConfig{
			Driver:     config.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "kennel.db"),
		},
		openDB: config.NewDatabase,
	}
}

func run(t *testing.T, cli *cliContext, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := newRootCommand(cli)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_MigrateLifecycle(t *testing.T) {
	cli := newTestCLI(t)

	out, err := run(t, cli, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "no migrations applied")

	_, err = run(t, cli, "migrate", "up")
	require.NoError(t, err)

	out, err = run(t, cli, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 (dirty: false)")

	_, err = run(t, cli, "migrate", "down", "--steps", "1")
	require.NoError(t, err)

	out, err = run(t, cli, "migrate", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "no migrations applied")
}

func TestCLI_CreateAdminAndPurgeSessions(t *testing.T) {
	cli := newTestCLI(t)

	_, err := run(t, cli, "migrate", "up")
	require.NoError(t, err)

	out, err := run(t, cli, "create-admin",
		"--email", "Breeder@Example.com",
		"--first-name", "Ada",
		"--last-name", "Lovelace",
		"--password", "correct horse battery",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "created admin breeder@example.com")

	_, err = run(t, cli, "create-admin",
		"--email", "breeder@example.com",
		"--first-name", "Ada",
		"--last-name", "Lovelace",
		"--password", "correct horse battery",
	)
	assert.Error(t, err, "duplicate email")

	out, err = run(t, cli, "purge-sessions")
	require.NoError(t, err)
	assert.Contains(t, out, "removed 0 expired sessions")
}

func TestCLI_CreateAdminPasswordFromEnv(t *testing.T) {
	cli := newTestCLI(t)
	_, err := run(t, cli, "migrate", "up")
	require.NoError(t, err)

	_, err = run(t, cli, "create-admin", "--email", "a@example.com", "--first-name", "A", "--last-name", "B")
	require.Error(t, err)
	assert.Contains(t, err.Error(), AdminPasswordEnvKey)

	t.Setenv(AdminPasswordEnvKey, "a long enough secret")
	out, err := run(t, cli, "create-admin", "--email", "a@example.com", "--first-name", "A", "--last-name", "B")
	require.NoError(t, err)
	assert.Contains(t, out, "created admin a@example.com")
}

func TestCLI_CreateAdminRequiresFlags(t *testing.T) {
	_, err := run(t, newTestCLI(t), "create-admin", "--password", "a long enough secret")
	assert.Error(t, err)
}
