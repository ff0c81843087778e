package waitlist

import (
	"context"
	"errors"
	"time"

	"github.com/kennelworks/kennel-api/internal/models"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"github.com/kennelworks/kennel-api/pkg/retry"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WaitlistRepository interface {
	// ListEntries returns every entry ordered by ascending position.
	ListEntries(ctx context.Context) ([]*models.WaitlistEntry, error)
	// FindEntryByID retrieves a waitlist entry by its unique ID.
	FindEntryByID(ctx context.Context, id string) (*models.WaitlistEntry, error)
	// CreateEntry appends entry at max(position)+1 and persists it.
	CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error)
	// UpdateEntry applies updates to the entry and returns the stored result.
	UpdateEntry(ctx context.Context, id string, updates map[string]interface{}) (*models.WaitlistEntry, error)
	// DeleteEntry removes the entry, closes the gap it leaves and returns the removed row.
	DeleteEntry(ctx context.Context, id string) (*models.WaitlistEntry, error)
}

type waitlistRepository struct {
	db    *gorm.DB
	retry retry.Policy
}

// DefaultRetryConfig bounds how often a create or delete is replayed after
// losing a position conflict to a concurrent writer.
func DefaultRetryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: 5,
		BaseDelay:   20 * time.Millisecond,
		MaxDelay:    500 * time.Millisecond,
		Retryable:   isPositionConflict,
	}
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return NewWaitlistRepositoryWithRetry(db, retry.NewBackoff(DefaultRetryConfig()))
}

func NewWaitlistRepositoryWithRetry(db *gorm.DB, policy retry.Policy) WaitlistRepository {
	return &waitlistRepository{db: db, retry: policy}
}

func (wr *waitlistRepository) ListEntries(ctx context.Context) ([]*models.WaitlistEntry, error) {
	entries := make([]*models.WaitlistEntry, 0)

	if err := wr.db.WithContext(ctx).Order("position ASC").Find(&entries).Error; err != nil {
		return nil, apperrors.NewStorageError("unable to fetch waitlist entries", err)
	}

	return entries, nil
}

func (wr *waitlistRepository) FindEntryByID(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	var entry models.WaitlistEntry

	if err := wr.db.WithContext(ctx).Where("id = ?", id).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("waitlist entry not found", err)
		}
		return nil, apperrors.NewStorageError("failed to fetch waitlist entry", err)
	}

	return &entry, nil
}

func (wr *waitlistRepository) CreateEntry(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, error) {
	err := wr.retry.Execute(ctx, func() error {
		return wr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockSequence(tx); err != nil {
				return err
			}

			var maxPosition int
			if err := tx.Model(&models.WaitlistEntry{}).
				Select("COALESCE(MAX(position), 0)").
				Scan(&maxPosition).Error; err != nil {
				return err
			}

			entry.Position = maxPosition + 1
			return tx.Create(entry).Error
		})
	})
	if err != nil {
		return nil, asStorageError("unable to create waitlist entry", err)
	}

	return entry, nil
}

func (wr *waitlistRepository) UpdateEntry(ctx context.Context, id string, updates map[string]interface{}) (*models.WaitlistEntry, error) {
	if len(updates) == 0 {
		return nil, apperrors.NewValidationError("at least one of status or notes must be provided", nil)
	}

	var entry models.WaitlistEntry

	err := wr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.WaitlistEntry{}).Where("id = ?", id).Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return apperrors.NewNotFoundError("waitlist entry not found", nil)
		}

		return tx.Where("id = ?", id).First(&entry).Error
	})
	if err != nil {
		return nil, asStorageError("unable to update waitlist entry", err)
	}

	return &entry, nil
}

func (wr *waitlistRepository) DeleteEntry(ctx context.Context, id string) (*models.WaitlistEntry, error) {
	var deleted models.WaitlistEntry

	err := wr.retry.Execute(ctx, func() error {
		return wr.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := lockSequence(tx); err != nil {
				return err
			}

			if err := tx.Where("id = ?", id).First(&deleted).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperrors.NewNotFoundError("waitlist entry not found", err)
				}
				return err
			}

			if err := tx.Delete(&models.WaitlistEntry{}, "id = ?", id).Error; err != nil {
				return err
			}

			return closeGap(tx, deleted.Position)
		})
	})
	if err != nil {
		return nil, asStorageError("unable to delete waitlist entry", err)
	}

	return &deleted, nil
}

// lockSequence seeds the guard row if needed, takes its row lock and bumps its version.
// On SQLite the write itself takes the database lock.
func lockSequence(tx *gorm.DB) error {
	seq := models.WaitlistSequence{ID: models.WaitlistSequenceID}

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seq).Error; err != nil {
		return err
	}

	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", models.WaitlistSequenceID).
		First(&seq).Error; err != nil {
		return err
	}

	return tx.Model(&models.WaitlistSequence{}).
		Where("id = ?", models.WaitlistSequenceID).
		Updates(map[string]interface{}{
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now(),
		}).Error
}

// closeGap shifts every position above removed down by one. The tail is
// negated first so the unique index never sees two rows on the same position.
func closeGap(tx *gorm.DB, removed int) error {
	if err := tx.Model(&models.WaitlistEntry{}).
		Where("position > ?", removed).
		UpdateColumn("position", gorm.Expr("-position")).Error; err != nil {
		return err
	}

	return tx.Model(&models.WaitlistEntry{}).
		Where("position < 0").
		UpdateColumn("position", gorm.Expr("-position - 1")).Error
}

func isPositionConflict(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return false
	}
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		apperrors.IsDuplicateKeyError(err) ||
		apperrors.IsSerializationError(err)
}

// asStorageError keeps domain errors raised inside a transaction and wraps anything else.
func asStorageError(message string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return apperrors.NewStorageError(message, err)
}
