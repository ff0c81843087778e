package settings

import (
	"context"
	"testing"

	"github.com/kennelworks/kennel-api/internal/testutil"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRepository_DefaultsOnFirstRead(t *testing.T) {
	repo := NewSettingsRepository(testutil.NewSQLiteDB(t))

	settings, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.True(t, settings.WaitlistEnabled)
	assert.False(t, settings.StreamEnabled)
}

func TestSettingsRepository_UpdateWritesFalse(t *testing.T) {
	repo := NewSettingsRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	updated, err := repo.Update(ctx, map[string]interface{}{ColumnWaitlistEnabled: false})
	require.NoError(t, err)
	assert.False(t, updated.WaitlistEnabled)

	reread, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.False(t, reread.WaitlistEnabled)
}

func TestSettingsRepository_Toggle(t *testing.T) {
	repo := NewSettingsRepository(testutil.NewSQLiteDB(t))
	ctx := context.Background()

	toggled, err := repo.Toggle(ctx, ColumnStreamEnabled)
	require.NoError(t, err)
	assert.True(t, toggled.StreamEnabled)

	toggled, err = repo.Toggle(ctx, ColumnStreamEnabled)
	require.NoError(t, err)
	assert.False(t, toggled.StreamEnabled)
	assert.True(t, toggled.WaitlistEnabled)
}

func TestSettingsRepository_ToggleRejectsUnknownColumn(t *testing.T) {
	repo := NewSettingsRepository(testutil.NewSQLiteDB(t))

	_, err := repo.Toggle(context.Background(), "id; DROP TABLE settings")
	assert.Equal(t, apperrors.ErrorTypeInvalidRequest, apperrors.GetErrorType(err))
}
