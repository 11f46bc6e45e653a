package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/scripthub-inc/scripthub/internal/infrastructure/auth"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/persistence/models"
	sharedConfig "github.com/scripthub-inc/scripthub/internal/shared/config"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// SessionRepositoryImpl implements the auth.SessionStore interface
type SessionRepositoryImpl struct {
	db     *gorm.DB
	retry  retryPolicy
	logger logger.Interface
}

// NewSessionRepository creates a new session repository instance
func NewSessionRepository(gormDB *gorm.DB, retryCfg sharedConfig.StoreRetryConfig, log logger.Interface) auth.SessionStore {
	return &SessionRepositoryImpl{
		db:     gormDB,
		retry:  newRetryPolicy(retryCfg),
		logger: log,
	}
}

// Create persists a new session
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *auth.Session) error {
	model := &models.SessionModel{
		UserID:           session.UserID,
		RefreshTokenHash: session.RefreshTokenHash,
		ExpiresAt:        session.ExpiresAt,
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		r.logger.Errorw("failed to create session", "user_id", session.UserID, "error", err)
		return fmt.Errorf("failed to create session: %w", err)
	}

	session.ID = model.ID
	return nil
}

// GetByID retrieves a session by ID, returning (nil, nil) when missing
func (r *SessionRepositoryImpl) GetByID(ctx context.Context, id uint) (*auth.Session, error) {
	var model models.SessionModel

	err := r.retry.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &auth.Session{
		ID:               model.ID,
		UserID:           model.UserID,
		RefreshTokenHash: model.RefreshTokenHash,
		ExpiresAt:        model.ExpiresAt,
		RevokedAt:        model.RevokedAt,
	}, nil
}

// RotateRefreshHash replaces the stored refresh token hash after rotation
func (r *SessionRepositoryImpl) RotateRefreshHash(ctx context.Context, id uint, newHash string, updatedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SessionModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{
			"refresh_token_hash": newHash,
			"updated_at":         updatedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to rotate refresh hash", "session_id", id, "error", result.Error)
		return fmt.Errorf("failed to rotate refresh hash: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("session %d not found or revoked", id)
	}
	return nil
}

// Revoke tears a session down. Revoking an already revoked session is a no-op.
func (r *SessionRepositoryImpl) Revoke(ctx context.Context, id uint, revokedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.SessionModel{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]any{
			"revoked_at": revokedAt,
			"updated_at": revokedAt,
		})
	if result.Error != nil {
		r.logger.Errorw("failed to revoke session", "session_id", id, "error", result.Error)
		return fmt.Errorf("failed to revoke session: %w", result.Error)
	}
	return nil
}
