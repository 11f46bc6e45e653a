package usecases

import (
	"context"
	"fmt"

	"github.com/scripthub-inc/scripthub/internal/application/license/dto"
	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/domain/user"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

type ValidateLicenseCommand struct {
	PrivateKey string
	// ObservedIP is the caller's address; empty disables the IP check
	ObservedIP string
}

// ValidateLicenseUseCase derives the validation status for a presented key.
//
// A revoked, inactive, expired or IP-mismatched license is a normal, typed
// outcome, not an error; only an unknown key is rejected. This is the hottest
// path in the engine and stays lock-free: the usage-metadata write on the
// Valid path is last-write-wins telemetry.
type ValidateLicenseUseCase struct {
	licenseRepo license.Repository
	userRepo    user.Repository
	clock       clock.Clock
	logger      logger.Interface
}

func NewValidateLicenseUseCase(
	licenseRepo license.Repository,
	userRepo user.Repository,
	clk clock.Clock,
	logger logger.Interface,
) *ValidateLicenseUseCase {
	return &ValidateLicenseUseCase{
		licenseRepo: licenseRepo,
		userRepo:    userRepo,
		clock:       clk,
		logger:      logger,
	}
}

func (uc *ValidateLicenseUseCase) Execute(ctx context.Context, cmd ValidateLicenseCommand) (*dto.ValidationResponse, error) {
	l, err := uc.licenseRepo.GetByPrivateKey(ctx, cmd.PrivateKey)
	if err != nil {
		uc.logger.Errorw("failed to look up license key", "error", err)
		return nil, fmt.Errorf("failed to look up license key: %w", err)
	}
	if l == nil {
		return nil, apperrors.NewUnknownKeyError()
	}

	boundIP := ""
	if cmd.ObservedIP != "" {
		owner, err := uc.userRepo.GetByID(ctx, l.UserID())
		if err != nil {
			uc.logger.Errorw("failed to get license owner", "error", err, "user_id", l.UserID())
			return nil, fmt.Errorf("failed to get license owner: %w", err)
		}
		if owner != nil {
			boundIP = owner.BoundIP()
		}
	}

	now := uc.clock.Now()
	status := l.StatusAt(now, boundIP, cmd.ObservedIP)

	if status == license.StatusValid {
		l.Touch(cmd.ObservedIP, now)
		if err := uc.licenseRepo.TouchUsage(ctx, l.ID(), cmd.ObservedIP, now); err != nil {
			// Telemetry only; the validation outcome stands.
			uc.logger.Warnw("failed to record license usage", "error", err, "license_id", l.ID())
		}
	}

	uc.logger.Debugw("license validated",
		"license_id", l.ID(),
		"status", status.String())

	return &dto.ValidationResponse{
		Status:  status.String(),
		License: dto.FromLicense(l),
	}, nil
}
