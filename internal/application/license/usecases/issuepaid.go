package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scripthub-inc/scripthub/internal/application/license/dto"
	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/domain/script"
	"github.com/scripthub-inc/scripthub/internal/domain/user"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	"github.com/scripthub-inc/scripthub/internal/shared/db"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

type IssuePaidCommand struct {
	UserSID   string
	ScriptSID string
	// LicenseType is "lifetime" or "timed"
	LicenseType string
	// DurationHours applies to timed licenses only
	DurationHours int
}

// IssuePaidUseCase creates a paid license after payment capture. Payment is an
// external fact asserted by the caller; it is not re-verified here.
//
// The upgrade path is atomic: an existing active trial for the same script is
// revoked and the paid license inserted in one transaction, so the subject
// never ends up with zero licenses or two non-revoked ones.
type IssuePaidUseCase struct {
	licenseRepo license.Repository
	scriptRepo  script.Repository
	userRepo    user.Repository
	keyGen      license.KeyGenerator
	txMgr       db.TxRunner
	clock       clock.Clock
	logger      logger.Interface
}

func NewIssuePaidUseCase(
	licenseRepo license.Repository,
	scriptRepo script.Repository,
	userRepo user.Repository,
	keyGen license.KeyGenerator,
	txMgr db.TxRunner,
	clk clock.Clock,
	logger logger.Interface,
) *IssuePaidUseCase {
	return &IssuePaidUseCase{
		licenseRepo: licenseRepo,
		scriptRepo:  scriptRepo,
		userRepo:    userRepo,
		keyGen:      keyGen,
		txMgr:       txMgr,
		clock:       clk,
		logger:      logger,
	}
}

func (uc *IssuePaidUseCase) Execute(ctx context.Context, cmd IssuePaidCommand) (*dto.IssuedLicenseResponse, error) {
	u, err := uc.userRepo.GetBySID(ctx, cmd.UserSID)
	if err != nil {
		uc.logger.Errorw("failed to get user", "error", err, "user_sid", cmd.UserSID)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, apperrors.NewNotFoundError("user not found")
	}

	s, err := uc.scriptRepo.GetBySID(ctx, cmd.ScriptSID)
	if err != nil {
		uc.logger.Errorw("failed to get script", "error", err, "script_sid", cmd.ScriptSID)
		return nil, fmt.Errorf("failed to get script: %w", err)
	}
	if s == nil {
		return nil, apperrors.NewNotFoundError("script not found")
	}

	licenseType := license.LicenseType(cmd.LicenseType)
	if !licenseType.IsValid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("invalid license type: %s", cmd.LicenseType))
	}

	key, err := uc.keyGen.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate license key: %w", err)
	}

	now := uc.clock.Now()
	paid, err := license.NewPaidLicense(u.ID(), s.ID(), key, licenseType, now,
		time.Duration(cmd.DurationHours)*time.Hour)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	var upgradedFrom uint
	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		// Locked read: concurrent issuance for the same subject serializes here.
		existing, err := uc.licenseRepo.GetNonRevokedBySubject(txCtx, u.ID(), s.ID())
		if err != nil {
			return fmt.Errorf("failed to check existing license: %w", err)
		}
		if existing != nil {
			if !existing.IsTrial() {
				return license.ErrAlreadyEntitled
			}
			// Upgrade: revoke the trial inside the same transaction as the
			// paid insert, so both land or neither does.
			existing.Revoke(license.RevokeReasonUpgrade, now)
			if err := uc.licenseRepo.Update(txCtx, existing); err != nil {
				return fmt.Errorf("failed to revoke trial during upgrade: %w", err)
			}
			upgradedFrom = existing.ID()
		}

		return uc.licenseRepo.Create(txCtx, paid)
	})
	if err != nil {
		if errors.Is(err, license.ErrAlreadyEntitled) {
			return nil, apperrors.NewAlreadyEntitledError()
		}
		uc.logger.Errorw("failed to issue paid license",
			"error", err,
			"user_id", u.ID(),
			"script_id", s.ID())
		return nil, err
	}

	uc.logger.Infow("paid license issued",
		"license_id", paid.ID(),
		"user_id", u.ID(),
		"script_id", s.ID(),
		"license_type", cmd.LicenseType,
		"upgraded_from", upgradedFrom)

	return dto.FromIssuedLicense(paid), nil
}
