package usecases

import (
	"context"
	"fmt"

	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// PurgeRevokedUseCase permanently deletes revoked license records. This is an
// out-of-band maintenance operation outside the engine's state machine; the
// storage layer filters strictly on is_revoked so nothing live can be caught.
type PurgeRevokedUseCase struct {
	licenseRepo license.Repository
	logger      logger.Interface
}

func NewPurgeRevokedUseCase(licenseRepo license.Repository, logger logger.Interface) *PurgeRevokedUseCase {
	return &PurgeRevokedUseCase{
		licenseRepo: licenseRepo,
		logger:      logger,
	}
}

func (uc *PurgeRevokedUseCase) Execute(ctx context.Context) (int64, error) {
	deleted, err := uc.licenseRepo.DeleteRevoked(ctx)
	if err != nil {
		uc.logger.Errorw("failed to purge revoked licenses", "error", err)
		return 0, fmt.Errorf("failed to purge revoked licenses: %w", err)
	}

	uc.logger.Infow("revoked licenses purged", "deleted", deleted)
	return deleted, nil
}
