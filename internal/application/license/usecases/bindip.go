package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/scripthub-inc/scripthub/internal/domain/user"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

type BindIPCommand struct {
	UserSID string
	IP      string
}

// BindIPUseCase overwrites the user-level IP binding. The binding covers all
// of the user's licenses; only well-formedness of the address is checked.
type BindIPUseCase struct {
	userRepo user.Repository
	clock    clock.Clock
	logger   logger.Interface
}

func NewBindIPUseCase(userRepo user.Repository, clk clock.Clock, logger logger.Interface) *BindIPUseCase {
	return &BindIPUseCase{
		userRepo: userRepo,
		clock:    clk,
		logger:   logger,
	}
}

func (uc *BindIPUseCase) Execute(ctx context.Context, cmd BindIPCommand) error {
	u, err := uc.userRepo.GetBySID(ctx, cmd.UserSID)
	if err != nil {
		uc.logger.Errorw("failed to get user", "error", err, "user_sid", cmd.UserSID)
		return fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return apperrors.NewNotFoundError("user not found")
	}

	if err := u.BindIP(cmd.IP, uc.clock.Now()); err != nil {
		if errors.Is(err, user.ErrMalformedIP) {
			return apperrors.NewValidationError(err.Error())
		}
		return err
	}

	if err := uc.userRepo.UpdateBoundIP(ctx, u); err != nil {
		uc.logger.Errorw("failed to persist IP binding", "error", err, "user_id", u.ID())
		return fmt.Errorf("failed to persist IP binding: %w", err)
	}

	uc.logger.Infow("user IP binding updated", "user_id", u.ID(), "ip", cmd.IP)
	return nil
}
