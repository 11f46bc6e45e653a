package usecases

import (
	"context"
	"errors"
	"fmt"

	licenseusecases "github.com/scripthub-inc/scripthub/internal/application/license/usecases"
	"github.com/scripthub-inc/scripthub/internal/application/payment/dto"
	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/domain/payment"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	"github.com/scripthub-inc/scripthub/internal/shared/db"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

type RecordPaymentCommand struct {
	UserSID       string
	ScriptSID     string
	TransactionID string
	AmountCents   int64
	Currency      string
	LicenseType   string
	DurationHours int
}

// RecordPaymentUseCase handles a confirmed payment capture: it records the
// payment and issues the paid license in one transaction. A duplicate
// transaction ID is rejected as a conflict so a replayed capture webhook
// cannot double-issue.
type RecordPaymentUseCase struct {
	paymentRepo payment.Repository
	licenseRepo license.Repository
	issuePaidUC *licenseusecases.IssuePaidUseCase
	txMgr       db.TxRunner
	clock       clock.Clock
	logger      logger.Interface
}

func NewRecordPaymentUseCase(
	paymentRepo payment.Repository,
	licenseRepo license.Repository,
	issuePaidUC *licenseusecases.IssuePaidUseCase,
	txMgr db.TxRunner,
	clk clock.Clock,
	logger logger.Interface,
) *RecordPaymentUseCase {
	return &RecordPaymentUseCase{
		paymentRepo: paymentRepo,
		licenseRepo: licenseRepo,
		issuePaidUC: issuePaidUC,
		txMgr:       txMgr,
		clock:       clk,
		logger:      logger,
	}
}

func (uc *RecordPaymentUseCase) Execute(ctx context.Context, cmd RecordPaymentCommand) (*dto.PaymentResponse, error) {
	var result *dto.PaymentResponse

	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		issued, err := uc.issuePaidUC.Execute(txCtx, licenseusecases.IssuePaidCommand{
			UserSID:       cmd.UserSID,
			ScriptSID:     cmd.ScriptSID,
			LicenseType:   cmd.LicenseType,
			DurationHours: cmd.DurationHours,
		})
		if err != nil {
			return err
		}

		l, err := uc.licenseRepo.GetBySID(txCtx, issued.ID)
		if err != nil {
			return fmt.Errorf("failed to load issued license %s: %w", issued.ID, err)
		}
		if l == nil {
			return apperrors.NewLicenseNotFoundError("issued license " + issued.ID + " not found")
		}

		p, err := payment.NewPayment(l.UserID(), l.ID(), cmd.TransactionID,
			cmd.AmountCents, cmd.Currency, uc.clock.Now())
		if err != nil {
			return apperrors.NewValidationError(err.Error())
		}

		if err := uc.paymentRepo.Create(txCtx, p); err != nil {
			if errors.Is(err, payment.ErrDuplicateTransaction) {
				return apperrors.NewConflictError("transaction already recorded")
			}
			return fmt.Errorf("failed to record payment: %w", err)
		}

		result = dto.FromPayment(p)
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Infow("payment recorded and license issued",
		"payment_id", result.ID,
		"transaction_id", cmd.TransactionID,
		"license_id", result.LicenseID)

	return result, nil
}
