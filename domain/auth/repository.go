package auth

import (
	"context"
	"errors"
	"time"

	"github.com/kennelworks/kennel-api/internal/models"
	apperrors "github.com/kennelworks/kennel-api/pkg/errors"
	"gorm.io/gorm"
)

type AuthRepository interface {
	FindAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error)
	CreateAdmin(ctx context.Context, admin *models.AdminUser) (*models.AdminUser, error)
	CreateSession(ctx context.Context, session *models.AdminSession) (*models.AdminSession, error)
	// FindActiveSession returns the session with its admin when it has not expired at now.
	FindActiveSession(ctx context.Context, id string, now time.Time) (*models.AdminSession, error)
	DeleteSession(ctx context.Context, id string) error
	// DeleteExpiredSessions removes sessions that expired before now.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type authRepository struct {
	db *gorm.DB
}

func NewAuthRepository(db *gorm.DB) AuthRepository {
	return &authRepository{db: db}
}

func (r *authRepository) FindAdminByEmail(ctx context.Context, email string) (*models.AdminUser, error) {
	var admin models.AdminUser

	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewNotFoundError("admin not found", err)
		}
		return nil, apperrors.NewStorageError("failed to fetch admin", err)
	}

	return &admin, nil
}

func (r *authRepository) CreateAdmin(ctx context.Context, admin *models.AdminUser) (*models.AdminUser, error) {
	if err := r.db.WithContext(ctx).Create(admin).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || apperrors.IsDuplicateKeyError(err) {
			return nil, apperrors.NewConflictError("an admin with this email already exists", err)
		}
		return nil, apperrors.NewStorageError("unable to create admin", err)
	}

	return admin, nil
}

func (r *authRepository) CreateSession(ctx context.Context, session *models.AdminSession) (*models.AdminSession, error) {
	if err := r.db.WithContext(ctx).Omit("AdminUser").Create(session).Error; err != nil {
		return nil, apperrors.NewStorageError("unable to create session", err)
	}

	return session, nil
}

func (r *authRepository) FindActiveSession(ctx context.Context, id string, now time.Time) (*models.AdminSession, error) {
	var session models.AdminSession

	err := r.db.WithContext(ctx).
		Preload("AdminUser").
		Where("id = ? AND expires_at > ?", id, now).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NewUnauthorizedError("session expired or invalid", err)
		}
		return nil, apperrors.NewStorageError("failed to fetch session", err)
	}

	return &session, nil
}

func (r *authRepository) DeleteSession(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.AdminSession{}, "id = ?", id).Error; err != nil {
		return apperrors.NewStorageError("unable to delete session", err)
	}
	return nil
}

func (r *authRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&models.AdminSession{})
	if result.Error != nil {
		return 0, apperrors.NewStorageError("unable to purge expired sessions", result.Error)
	}
	return result.RowsAffected, nil
}
