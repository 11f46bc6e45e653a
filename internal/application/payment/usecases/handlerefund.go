package usecases

import (
	"context"
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

type HandleRefundCommand struct {
	// TransactionID is the gateway reference of the refunded payment
	TransactionID string
}

// HandleRefundUseCase reconciles a gateway-confirmed refund with the
// entitlement side: the payment is marked refunded and the purchased license
// revoked, in one transaction.
//
// The monetary refund already happened at the gateway, so nothing here may
// block or reverse it. A payment whose license no longer exists still gets
// marked refunded; the dangling reference is reported for operator follow-up.
// Retried webhook deliveries are safe: the second call finds the payment
// already refunded and the license already revoked, and reports both.
type HandleRefundUseCase struct {
	paymentRepo payment.Repository
	revokeUC    *licenseusecases.RevokeLicenseUseCase
	txMgr       db.TxRunner
	clock       clock.Clock
	logger      logger.Interface
}

func NewHandleRefundUseCase(
	paymentRepo payment.Repository,
	revokeUC *licenseusecases.RevokeLicenseUseCase,
	txMgr db.TxRunner,
	clk clock.Clock,
	logger logger.Interface,
) *HandleRefundUseCase {
	return &HandleRefundUseCase{
		paymentRepo: paymentRepo,
		revokeUC:    revokeUC,
		txMgr:       txMgr,
		clock:       clk,
		logger:      logger,
	}
}

func (uc *HandleRefundUseCase) Execute(ctx context.Context, cmd HandleRefundCommand) (*dto.RefundResponse, error) {
	var result *dto.RefundResponse

	err := uc.txMgr.RunInTransaction(ctx, func(txCtx context.Context) error {
		p, err := uc.paymentRepo.GetByTransactionID(txCtx, cmd.TransactionID)
		if err != nil {
			return fmt.Errorf("failed to look up payment: %w", err)
		}
		if p == nil {
			return apperrors.NewNotFoundError("payment not found",
				fmt.Sprintf("transaction %s", cmd.TransactionID))
		}

		result = &dto.RefundResponse{
			PaymentID:       p.SID(),
			AlreadyRefunded: p.IsRefunded(),
		}

		if !p.IsRefunded() {
			p.MarkRefunded(uc.clock.Now())
			if err := uc.paymentRepo.Update(txCtx, p); err != nil {
				return fmt.Errorf("failed to mark payment refunded: %w", err)
			}
		}
		result.Refunded = true

		revocation, err := uc.revokeUC.Execute(txCtx, licenseusecases.RevokeLicenseCommand{
			LicenseID: p.LicenseID(),
			Reason:    license.RevokeReasonRefund,
		})
		switch {
		case apperrors.IsLicenseNotFoundError(err):
			// The refund stands; the dangling license reference is an
			// operator problem, not a reason to fail the webhook.
			uc.logger.Warnw("refunded payment references missing license",
				"payment_id", p.ID(),
				"license_id", p.LicenseID(),
				"transaction_id", cmd.TransactionID)
			result.LicenseNotFound = true
		case err != nil:
			return fmt.Errorf("failed to revoke refunded license: %w", err)
		default:
			result.LicenseRevoked = !revocation.AlreadyRevoked
		}

		return nil
	})
	if err != nil {
		uc.logger.Errorw("refund reconciliation failed",
			"error", err,
			"transaction_id", cmd.TransactionID)
		return nil, err
	}

	uc.logger.Infow("refund reconciled",
		"transaction_id", cmd.TransactionID,
		"already_refunded", result.AlreadyRefunded,
		"license_revoked", result.LicenseRevoked,
		"license_not_found", result.LicenseNotFound)

	return result, nil
}
