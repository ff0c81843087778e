package settings

import (
	"context"
	"errors"
	"time"

	"github.com/kennelworks/kennel-api/internal/models"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Toggleable columns on the settings row.
const (
	ColumnWaitlistEnabled = "waitlist_enabled"
	ColumnStreamEnabled   = "stream_enabled"
)

type SettingsRepository interface {
	// Get returns the settings row, creating it with defaults on first use.
	Get(ctx context.Context) (*models.Settings, error)
	// Update writes the given columns and returns the stored row.
	Update(ctx context.Context, updates map[string]interface{}) (*models.Settings, error)
	// Toggle flips a boolean column in a single statement.
	Toggle(ctx context.Context, column string) (*models.Settings, error)
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context) (*models.Settings, error) {
	var settings models.Settings

	err := r.db.WithContext(ctx).Where("id = ?", models.SettingsID).First(&settings).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := seedDefaults(r.db.WithContext(ctx)); err != nil {
			return nil, apperrors.NewStorageError("unable to initialise settings", err)
		}
		err = r.db.WithContext(ctx).Where("id = ?", models.SettingsID).First(&settings).Error
	}
	if err != nil {
		return nil, apperrors.NewStorageError("unable to fetch settings", err)
	}

	return &settings, nil
}

func (r *settingsRepository) Update(ctx context.Context, updates map[string]interface{}) (*models.Settings, error) {
	if len(updates) == 0 {
		return nil, apperrors.NewValidationError("no settings to update", nil)
	}

	return r.write(ctx, "unable to update settings", func(tx *gorm.DB) error {
		return tx.Model(&models.Settings{}).Where("id = ?", models.SettingsID).Updates(updates).Error
	})
}

func (r *settingsRepository) Toggle(ctx context.Context, column string) (*models.Settings, error) {
	if column != ColumnWaitlistEnabled && column != ColumnStreamEnabled {
		return nil, apperrors.NewInvalidRequestError("unknown setting", nil)
	}

	return r.write(ctx, "unable to toggle setting", func(tx *gorm.DB) error {
		return tx.Model(&models.Settings{}).Where("id = ?", models.SettingsID).Updates(map[string]interface{}{
			column:       gorm.Expr("NOT " + column),
			"updated_at": time.Now(),
		}).Error
	})
}

func (r *settingsRepository) write(ctx context.Context, message string, apply func(tx *gorm.DB) error) (*models.Settings, error) {
	var settings models.Settings

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := seedDefaults(tx); err != nil {
			return err
		}
		if err := apply(tx); err != nil {
			return err
		}
		return tx.Where("id = ?", models.SettingsID).First(&settings).Error
	})
	if err != nil {
		return nil, apperrors.NewStorageError(message, err)
	}

	return &settings, nil
}

func seedDefaults(tx *gorm.DB) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.Settings{
		ID:              models.SettingsID,
		WaitlistEnabled: true,
	}).Error
}
