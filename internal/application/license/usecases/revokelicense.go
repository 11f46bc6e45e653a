package usecases

import (
	"context"
	"fmt"

	"github.com/scripthub-inc/scripthub/internal/application/license/dto"
	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	"github.com/scripthub-inc/scripthub/internal/shared/db"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// RevokeLicenseCommand identifies the license by external SID (admin surface)
// or internal ID (refund reconciliation); exactly one must be set.
type RevokeLicenseCommand struct {
	LicenseSID string
	LicenseID  uint
	Reason     string
}

// RevokeLicenseUseCase terminally revokes a license. Revocation is idempotent:
// revoking an already-revoked license returns the same terminal state with
// AlreadyRevoked set, never an error. Refund flows and manual moderation race
// each other, and both must land safely.
type RevokeLicenseUseCase struct {
	licenseRepo license.Repository
	txMgr       db.TxRunner
	clock       clock.Clock
	logger      logger.Interface
}

func NewRevokeLicenseUseCase(
	licenseRepo license.Repository,
	txMgr db.TxRunner,
	clk clock.Clock,
	logger logger.Interface,
) *RevokeLicenseUseCase {
	return &RevokeLicenseUseCase{
		licenseRepo: licenseRepo,
		txMgr:       txMgr,
		clock:       clk,
		logger:      logger,
	}
}

func (uc *RevokeLicenseUseCase) Execute(ctx context.Context, cmd RevokeLicenseCommand) (*dto.RevocationResponse, error) {
	if cmd.Reason == "" {
		cmd.Reason = license.RevokeReasonManual
	}

	var result *dto.RevocationResponse
	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		l, err := uc.lookup(txCtx, cmd)
		if err != nil {
			return err
		}
		if l == nil {
			return apperrors.NewLicenseNotFoundError()
		}

		if l.IsRevoked() {
			result = &dto.RevocationResponse{
				License:        dto.FromLicense(l),
				AlreadyRevoked: true,
			}
			return nil
		}

		l.Revoke(cmd.Reason, uc.clock.Now())
		if err := uc.licenseRepo.Update(txCtx, l); err != nil {
			return fmt.Errorf("failed to persist revocation: %w", err)
		}

		result = &dto.RevocationResponse{License: dto.FromLicense(l)}
		return nil
	})
	if err != nil {
		if !apperrors.IsLicenseNotFoundError(err) {
			uc.logger.Errorw("failed to revoke license",
				"error", err,
				"license_sid", cmd.LicenseSID,
				"license_id", cmd.LicenseID)
		}
		return nil, err
	}

	if !result.AlreadyRevoked {
		uc.logger.Infow("license revoked",
			"license_id", result.License.ID,
			"reason", cmd.Reason)
	}

	return result, nil
}

func (uc *RevokeLicenseUseCase) lookup(ctx context.Context, cmd RevokeLicenseCommand) (*license.License, error) {
	if cmd.LicenseSID != "" {
		return uc.licenseRepo.GetBySID(ctx, cmd.LicenseSID)
	}
	if cmd.LicenseID != 0 {
		return uc.licenseRepo.GetByID(ctx, cmd.LicenseID)
	}
	return nil, apperrors.NewValidationError("license identifier is required")
}
