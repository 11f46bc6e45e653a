package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/scripthub-inc/scripthub/internal/domain/user"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/persistence/models"
	sharedConfig "github.com/scripthub-inc/scripthub/internal/shared/config"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// UserRepositoryImpl implements the user.Repository interface
type UserRepositoryImpl struct {
	db     *gorm.DB
	retry  retryPolicy
	logger logger.Interface
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(gormDB *gorm.DB, retryCfg sharedConfig.StoreRetryConfig, log logger.Interface) user.Repository {
	return &UserRepositoryImpl{
		db:     gormDB,
		retry:  newRetryPolicy(retryCfg),
		logger: log,
	}
}

// Create persists a new user
func (r *UserRepositoryImpl) Create(ctx context.Context, u *user.User) error {
	model := userToModel(u)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("email already registered")
		}
		r.logger.Errorw("failed to create user", "email", u.Email(), "error", err)
		return fmt.Errorf("failed to create user: %w", err)
	}

	if err := u.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set user ID: %w", err)
	}

	r.logger.Infow("user created", "user_id", model.ID, "sid", model.SID)
	return nil
}

// GetByID retrieves a user by internal ID
func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uint) (*user.User, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetBySID retrieves a user by external identifier
func (r *UserRepositoryImpl) GetBySID(ctx context.Context, sid string) (*user.User, error) {
	return r.getOne(ctx, "sid = ?", sid)
}

// GetByEmail retrieves a user by email address
func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getOne(ctx, "email = ?", email)
}

// UpdateBoundIP persists the user-level IP binding
func (r *UserRepositoryImpl) UpdateBoundIP(ctx context.Context, u *user.User) error {
	result := r.db.WithContext(ctx).Model(&models.UserModel{}).
		Where("id = ?", u.ID()).
		Updates(map[string]any{
			"bound_ip":   u.BoundIP(),
			"bound_at":   u.BoundAt(),
			"updated_at": u.UpdatedAt(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update bound IP", "user_id", u.ID(), "error", result.Error)
		return fmt.Errorf("failed to update bound IP: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return user.ErrUserNotFound
	}

	r.logger.Infow("user IP binding updated", "user_id", u.ID(), "bound_ip", u.BoundIP())
	return nil
}

func (r *UserRepositoryImpl) getOne(ctx context.Context, query string, arg any) (*user.User, error) {
	var model models.UserModel

	err := r.retry.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return modelToUser(&model)
}

func userToModel(u *user.User) *models.UserModel {
	return &models.UserModel{
		ID:                u.ID(),
		SID:               u.SID(),
		Email:             u.Email(),
		BoundIP:           u.BoundIP(),
		BoundAt:           u.BoundAt(),
		TrialWindowEndsAt: u.TrialWindowEndsAt(),
		CreatedAt:         u.CreatedAt(),
		UpdatedAt:         u.UpdatedAt(),
	}
}

func modelToUser(m *models.UserModel) (*user.User, error) {
	u, err := user.Reconstruct(m.ID, m.SID, m.Email, m.BoundIP, m.BoundAt, m.TrialWindowEndsAt, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct user %d: %w", m.ID, err)
	}
	return u, nil
}
