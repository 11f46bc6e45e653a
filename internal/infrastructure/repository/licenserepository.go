package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/persistence/models"
	sharedConfig "github.com/scripthub-inc/scripthub/internal/shared/config"
	"github.com/scripthub-inc/scripthub/internal/shared/db"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// LicenseRepositoryImpl implements the license.Repository interface.
//
// Mutations that involve the per-subject uniqueness invariant run inside the
// caller's transaction (via db.GetTxFromContext) with the subject's rows
// locked, so concurrent issuance for the same (user, script) serializes and
// exactly one writer wins.
type LicenseRepositoryImpl struct {
	db     *gorm.DB
	retry  retryPolicy
	logger logger.Interface
}

// NewLicenseRepository creates a new license repository instance
func NewLicenseRepository(gormDB *gorm.DB, retryCfg sharedConfig.StoreRetryConfig, log logger.Interface) license.Repository {
	return &LicenseRepositoryImpl{
		db:     gormDB,
		retry:  newRetryPolicy(retryCfg),
		logger: log,
	}
}

// lockForUpdate applies row locking on dialects that support it. SQLite has a
// single writer per database and rejects FOR UPDATE syntax, so the clause is
// skipped there; transaction isolation alone serializes the subject.
func (r *LicenseRepositoryImpl) lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Create persists a new license after re-checking the subject invariant under
// lock inside the active transaction.
func (r *LicenseRepositoryImpl) Create(ctx context.Context, l *license.License) error {
	tx := db.GetTxFromContext(ctx, r.db)

	var existing models.LicenseModel
	err := r.lockForUpdate(tx).
		Where("user_id = ? AND script_id = ? AND is_revoked = ?", l.UserID(), l.ScriptID(), false).
		First(&existing).Error
	switch {
	case err == nil:
		return license.ErrAlreadyEntitled
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return r.wrapStoreErr("check existing license", err)
	}

	model := licenseToModel(l)
	if err := tx.Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			// The unique index on private_key is the only plain unique
			// constraint, so a duplicate here is a key collision.
			return license.ErrDuplicateKey
		}
		r.logger.Errorw("failed to create license",
			"user_id", l.UserID(),
			"script_id", l.ScriptID(),
			"error", err)
		return r.wrapStoreErr("create license", err)
	}

	if err := l.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set license ID: %w", err)
	}

	r.logger.Infow("license created",
		"license_id", model.ID,
		"sid", model.SID,
		"user_id", model.UserID,
		"script_id", model.ScriptID,
		"is_trial", model.IsTrial)

	return nil
}

// Update persists aggregate state changes using optimistic locking.
func (r *LicenseRepositoryImpl) Update(ctx context.Context, l *license.License) error {
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.LicenseModel{}).
		Where("id = ? AND version < ?", l.ID(), l.Version()).
		Updates(map[string]any{
			"is_active":     l.IsActive(),
			"is_revoked":    l.IsRevoked(),
			"revoke_reason": l.RevokeReason(),
			"expires_at":    l.ExpiresAt(),
			"updated_at":    l.UpdatedAt(),
			"version":       l.Version(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update license", "license_id", l.ID(), "error", result.Error)
		return r.wrapStoreErr("update license", result.Error)
	}
	if result.RowsAffected == 0 {
		// Either the row vanished or a concurrent writer advanced the
		// version past ours. Revocation is idempotent one level up, so
		// surfacing not-found keeps both cases visible.
		return license.ErrLicenseNotFound
	}

	return nil
}

// GetByID retrieves a license by internal ID
func (r *LicenseRepositoryImpl) GetByID(ctx context.Context, id uint) (*license.License, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetBySID retrieves a license by external identifier
func (r *LicenseRepositoryImpl) GetBySID(ctx context.Context, sid string) (*license.License, error) {
	return r.getOne(ctx, "sid = ?", sid)
}

// GetByPrivateKey retrieves a license by its secret key
func (r *LicenseRepositoryImpl) GetByPrivateKey(ctx context.Context, key string) (*license.License, error) {
	return r.getOne(ctx, "private_key = ?", key)
}

// GetNonRevokedBySubject retrieves the at-most-one non-revoked license for a
// (user, script) subject. When called inside an issuance transaction the row
// is locked so the upgrade path serializes with concurrent issuance.
func (r *LicenseRepositoryImpl) GetNonRevokedBySubject(ctx context.Context, userID, scriptID uint) (*license.License, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.LicenseModel
	err := r.lockForUpdate(tx).
		Where("user_id = ? AND script_id = ?", userID, scriptID).
		Scopes(db.NotRevoked()).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, r.wrapStoreErr("get license by subject", err)
	}

	return modelToLicense(&model)
}

// ListByUser retrieves all licenses held by a user, newest first
func (r *LicenseRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*license.License, error) {
	var modelRows []models.LicenseModel

	err := r.retry.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&modelRows).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list licenses", "user_id", userID, "error", err)
		return nil, err
	}

	licenses := make([]*license.License, len(modelRows))
	for i := range modelRows {
		l, err := modelToLicense(&modelRows[i])
		if err != nil {
			return nil, fmt.Errorf("failed to reconstruct license %d: %w", modelRows[i].ID, err)
		}
		licenses[i] = l
	}
	return licenses, nil
}

// TouchUsage records last-used telemetry without locking or version bumps.
// Concurrent validations of the same license may interleave; last write wins,
// which is acceptable for advisory fields.
func (r *LicenseRepositoryImpl) TouchUsage(ctx context.Context, licenseID uint, observedIP string, usedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&models.LicenseModel{}).
		Where("id = ?", licenseID).
		Updates(map[string]any{
			"last_used_ip": observedIP,
			"last_used_at": usedAt,
			"updated_at":   usedAt,
		})
	if result.Error != nil {
		r.logger.Warnw("failed to touch license usage", "license_id", licenseID, "error", result.Error)
		return r.wrapStoreErr("touch license usage", result.Error)
	}
	return nil
}

// DeleteRevoked permanently removes revoked licenses. This is a maintenance
// purge that bypasses the state machine, so the filter is strict.
func (r *LicenseRepositoryImpl) DeleteRevoked(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("is_revoked = ?", true).
		Delete(&models.LicenseModel{})
	if result.Error != nil {
		r.logger.Errorw("failed to purge revoked licenses", "error", result.Error)
		return 0, r.wrapStoreErr("purge revoked licenses", result.Error)
	}

	r.logger.Infow("revoked licenses purged", "deleted", result.RowsAffected)
	return result.RowsAffected, nil
}

func (r *LicenseRepositoryImpl) getOne(ctx context.Context, query string, arg any) (*license.License, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.LicenseModel
	err := r.retry.run(ctx, func(ctx context.Context) error {
		return tx.Where(query, arg).First(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return modelToLicense(&model)
}

func (r *LicenseRepositoryImpl) wrapStoreErr(op string, err error) error {
	if isTransientErr(err) {
		return apperrors.NewStoreUnavailableError(err.Error())
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func licenseToModel(l *license.License) *models.LicenseModel {
	return &models.LicenseModel{
		ID:           l.ID(),
		SID:          l.SID(),
		UserID:       l.UserID(),
		ScriptID:     l.ScriptID(),
		PrivateKey:   l.PrivateKey(),
		IsTrial:      l.IsTrial(),
		IsActive:     l.IsActive(),
		IsRevoked:    l.IsRevoked(),
		RevokeReason: l.RevokeReason(),
		ExpiresAt:    l.ExpiresAt(),
		LastUsedIP:   l.LastUsedIP(),
		LastUsedAt:   l.LastUsedAt(),
		CreatedAt:    l.CreatedAt(),
		UpdatedAt:    l.UpdatedAt(),
		Version:      l.Version(),
	}
}

func modelToLicense(m *models.LicenseModel) (*license.License, error) {
	return license.Reconstruct(license.ReconstructParams{
		ID:           m.ID,
		SID:          m.SID,
		UserID:       m.UserID,
		ScriptID:     m.ScriptID,
		PrivateKey:   m.PrivateKey,
		IsTrial:      m.IsTrial,
		IsActive:     m.IsActive,
		IsRevoked:    m.IsRevoked,
		RevokeReason: m.RevokeReason,
		ExpiresAt:    m.ExpiresAt,
		LastUsedIP:   m.LastUsedIP,
		LastUsedAt:   m.LastUsedAt,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
		Version:      m.Version,
	})
}
