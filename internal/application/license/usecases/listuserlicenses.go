package usecases

import (
	"context"
	"fmt"

	"github.com/scripthub-inc/scripthub/internal/application/license/dto"
	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/domain/user"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

type ListUserLicensesQuery struct {
	UserSID string
}

// ListUserLicensesUseCase returns every license a user holds, including
// revoked ones, for the account dashboard.
type ListUserLicensesUseCase struct {
	licenseRepo license.Repository
	userRepo    user.Repository
	logger      logger.Interface
}

func NewListUserLicensesUseCase(
	licenseRepo license.Repository,
	userRepo user.Repository,
	logger logger.Interface,
) *ListUserLicensesUseCase {
	return &ListUserLicensesUseCase{
		licenseRepo: licenseRepo,
		userRepo:    userRepo,
		logger:      logger,
	}
}

func (uc *ListUserLicensesUseCase) Execute(ctx context.Context, query ListUserLicensesQuery) ([]*dto.LicenseResponse, error) {
	u, err := uc.userRepo.GetBySID(ctx, query.UserSID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, apperrors.NewNotFoundError("user not found")
	}

	licenses, err := uc.licenseRepo.ListByUser(ctx, u.ID())
	if err != nil {
		uc.logger.Errorw("failed to list licenses", "error", err, "user_id", u.ID())
		return nil, fmt.Errorf("failed to list licenses: %w", err)
	}

	responses := make([]*dto.LicenseResponse, len(licenses))
	for i, l := range licenses {
		responses[i] = dto.FromLicense(l)
	}
	return responses, nil
}
