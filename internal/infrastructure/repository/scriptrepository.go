package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/scripthub-inc/scripthub/internal/domain/script"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/persistence/models"
	sharedConfig "github.com/scripthub-inc/scripthub/internal/shared/config"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// ScriptRepositoryImpl implements the script.Repository interface
type ScriptRepositoryImpl struct {
	db     *gorm.DB
	retry  retryPolicy
	logger logger.Interface
}

// NewScriptRepository creates a new script repository instance
func NewScriptRepository(gormDB *gorm.DB, retryCfg sharedConfig.StoreRetryConfig, log logger.Interface) script.Repository {
	return &ScriptRepositoryImpl{
		db:     gormDB,
		retry:  newRetryPolicy(retryCfg),
		logger: log,
	}
}

// Create persists a new script
func (r *ScriptRepositoryImpl) Create(ctx context.Context, s *script.Script) error {
	model := &models.ScriptModel{
		SID:                s.SID(),
		Name:               s.Name(),
		Slug:               s.Slug(),
		TrialAvailable:     s.TrialAvailable(),
		TrialDurationHours: int(s.TrialDuration(0).Hours()),
		Active:             s.Active(),
		CreatedAt:          s.CreatedAt(),
		UpdatedAt:          s.UpdatedAt(),
	}

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return apperrors.NewConflictError("script slug already exists")
		}
		r.logger.Errorw("failed to create script", "slug", s.Slug(), "error", err)
		return fmt.Errorf("failed to create script: %w", err)
	}

	if err := s.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set script ID: %w", err)
	}

	r.logger.Infow("script created", "script_id", model.ID, "sid", model.SID, "slug", model.Slug)
	return nil
}

// GetByID retrieves a script by internal ID
func (r *ScriptRepositoryImpl) GetByID(ctx context.Context, id uint) (*script.Script, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetBySID retrieves a script by external identifier
func (r *ScriptRepositoryImpl) GetBySID(ctx context.Context, sid string) (*script.Script, error) {
	return r.getOne(ctx, "sid = ?", sid)
}

// GetBySlug retrieves a script by URL slug
func (r *ScriptRepositoryImpl) GetBySlug(ctx context.Context, slug string) (*script.Script, error) {
	return r.getOne(ctx, "slug = ?", slug)
}

// List retrieves all scripts
func (r *ScriptRepositoryImpl) List(ctx context.Context) ([]*script.Script, error) {
	var modelRows []models.ScriptModel

	err := r.retry.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Order("id").Find(&modelRows).Error
	})
	if err != nil {
		return nil, err
	}

	scripts := make([]*script.Script, len(modelRows))
	for i := range modelRows {
		s, err := modelToScript(&modelRows[i])
		if err != nil {
			return nil, err
		}
		scripts[i] = s
	}
	return scripts, nil
}

func (r *ScriptRepositoryImpl) getOne(ctx context.Context, query string, arg any) (*script.Script, error) {
	var model models.ScriptModel

	err := r.retry.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).Where(query, arg).First(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return modelToScript(&model)
}

func modelToScript(m *models.ScriptModel) (*script.Script, error) {
	s, err := script.Reconstruct(m.ID, m.SID, m.Name, m.Slug, m.TrialAvailable, m.TrialDurationHours, m.Active, m.CreatedAt, m.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct script %d: %w", m.ID, err)
	}
	return s, nil
}
