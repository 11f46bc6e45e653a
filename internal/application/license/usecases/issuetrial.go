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

type IssueTrialCommand struct {
	UserSID   string
	ScriptSID string
}

// IssueTrialUseCase creates a trial license when the script offers trials,
// the user's trial window is open, and the subject holds no non-revoked
// license.
type IssueTrialUseCase struct {
	licenseRepo   license.Repository
	scriptRepo    script.Repository
	userRepo      user.Repository
	keyGen        license.KeyGenerator
	txMgr         db.TxRunner
	clock         clock.Clock
	trialFallback time.Duration
	logger        logger.Interface
}

func NewIssueTrialUseCase(
	licenseRepo license.Repository,
	scriptRepo script.Repository,
	userRepo user.Repository,
	keyGen license.KeyGenerator,
	txMgr db.TxRunner,
	clk clock.Clock,
	trialFallback time.Duration,
	logger logger.Interface,
) *IssueTrialUseCase {
	return &IssueTrialUseCase{
		licenseRepo:   licenseRepo,
		scriptRepo:    scriptRepo,
		userRepo:      userRepo,
		keyGen:        keyGen,
		txMgr:         txMgr,
		clock:         clk,
		trialFallback: trialFallback,
		logger:        logger,
	}
}

func (uc *IssueTrialUseCase) Execute(ctx context.Context, cmd IssueTrialCommand) (*dto.IssuedLicenseResponse, error) {
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

	now := uc.clock.Now()

	if !s.Active() {
		return nil, apperrors.NewForbiddenError("script is not available")
	}
	if !s.TrialAvailable() {
		return nil, apperrors.NewForbiddenError("script does not offer trials")
	}
	if !u.TrialWindowOpenAt(now) {
		return nil, apperrors.NewTrialWindowClosedError()
	}

	key, err := uc.keyGen.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate license key: %w", err)
	}

	trial, err := license.NewTrialLicense(u.ID(), s.ID(), key, now, s.TrialDuration(uc.trialFallback))
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	// The subject check and insert share one transaction so two concurrent
	// issuances for the same (user, script) serialize; one wins, the other
	// sees AlreadyEntitled.
	err = uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		return uc.licenseRepo.Create(txCtx, trial)
	})
	if err != nil {
		if errors.Is(err, license.ErrAlreadyEntitled) {
			return nil, apperrors.NewAlreadyEntitledError()
		}
		uc.logger.Errorw("failed to issue trial license",
			"error", err,
			"user_id", u.ID(),
			"script_id", s.ID())
		return nil, err
	}

	uc.logger.Infow("trial license issued",
		"license_id", trial.ID(),
		"user_id", u.ID(),
		"script_id", s.ID(),
		"expires_at", trial.ExpiresAt())

	return dto.FromIssuedLicense(trial), nil
}
