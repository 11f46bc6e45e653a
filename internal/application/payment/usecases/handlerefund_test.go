package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	licenseusecases "github.com/scripthub-inc/scripthub/internal/application/license/usecases"
	"github.com/scripthub-inc/scripthub/internal/application/payment/dto"
	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/keygen"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

type paymentFixture struct {
	clk         *clock.Fake
	paymentRepo *fakePaymentRepo
	licenseRepo *fakeLicenseRepo
	scriptRepo  *fakeScriptRepo
	userRepo    *fakeUserRepo

	record *RecordPaymentUseCase
	refund *HandleRefundUseCase
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	clk := clock.NewFake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	paymentRepo := newFakePaymentRepo()
	licenseRepo := newFakeLicenseRepo()
	scriptRepo := newFakeScriptRepo()
	userRepo := newFakeUserRepo()
	tx := passthroughTx{}
	log := logger.NewNop()

	issuePaid := licenseusecases.NewIssuePaidUseCase(licenseRepo, scriptRepo, userRepo, keygen.NewGenerator(), tx, clk, log)
	revoke := licenseusecases.NewRevokeLicenseUseCase(licenseRepo, tx, clk, log)

	return &paymentFixture{
		clk:         clk,
		paymentRepo: paymentRepo,
		licenseRepo: licenseRepo,
		scriptRepo:  scriptRepo,
		userRepo:    userRepo,
		record:      NewRecordPaymentUseCase(paymentRepo, licenseRepo, issuePaid, tx, clk, log),
		refund:      NewHandleRefundUseCase(paymentRepo, revoke, tx, clk, log),
	}
}

// recordPurchase captures a payment and issues the paid license it buys.
func recordPurchase(t *testing.T, f *paymentFixture, transactionID string) *dto.PaymentResponse {
	t.Helper()

	u := seedUser(t, f.userRepo, 1, f.clk.Now())
	s := seedScript(t, f.scriptRepo, 10, f.clk.Now())

	recorded, err := f.record.Execute(context.Background(), RecordPaymentCommand{
		UserSID:       u.SID(),
		ScriptSID:     s.SID(),
		TransactionID: transactionID,
		AmountCents:   4999,
		Currency:      "USD",
		LicenseType:   "lifetime",
	})
	require.NoError(t, err)
	return recorded
}

func TestHandleRefund_RevokesLicense(t *testing.T) {
	f := newPaymentFixture(t)
	recorded := recordPurchase(t, f, "txn_123")

	result, err := f.refund.Execute(context.Background(), HandleRefundCommand{TransactionID: "txn_123"})
	require.NoError(t, err)

	assert.True(t, result.Refunded)
	assert.False(t, result.AlreadyRefunded)
	assert.True(t, result.LicenseRevoked)
	assert.False(t, result.LicenseNotFound)

	l, err := f.licenseRepo.GetByID(context.Background(), recorded.LicenseID)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.True(t, l.IsRevoked())
	assert.Equal(t, license.RevokeReasonRefund, l.RevokeReason())

	p, err := f.paymentRepo.GetByTransactionID(context.Background(), "txn_123")
	require.NoError(t, err)
	assert.True(t, p.IsRefunded())
	require.NotNil(t, p.RefundedAt())
	assert.Equal(t, f.clk.Now(), *p.RefundedAt())
}

func TestHandleRefund_RetriedWebhookIsIdempotent(t *testing.T) {
	f := newPaymentFixture(t)
	recordPurchase(t, f, "txn_123")

	first, err := f.refund.Execute(context.Background(), HandleRefundCommand{TransactionID: "txn_123"})
	require.NoError(t, err)
	assert.True(t, first.LicenseRevoked)
	assert.False(t, first.AlreadyRefunded)

	second, err := f.refund.Execute(context.Background(), HandleRefundCommand{TransactionID: "txn_123"})
	require.NoError(t, err)
	assert.True(t, second.Refunded)
	assert.True(t, second.AlreadyRefunded)
	assert.False(t, second.LicenseRevoked, "the retry finds the license already revoked")
}

func TestHandleRefund_UnknownTransaction(t *testing.T) {
	f := newPaymentFixture(t)

	_, err := f.refund.Execute(context.Background(), HandleRefundCommand{TransactionID: "txn_nope"})
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestHandleRefund_MissingLicenseStillRefunds(t *testing.T) {
	f := newPaymentFixture(t)
	recorded := recordPurchase(t, f, "txn_123")

	f.licenseRepo.delete(recorded.LicenseID)

	result, err := f.refund.Execute(context.Background(), HandleRefundCommand{TransactionID: "txn_123"})
	require.NoError(t, err, "a dangling license reference must not fail the refund")

	assert.True(t, result.Refunded)
	assert.True(t, result.LicenseNotFound)
	assert.False(t, result.LicenseRevoked)

	p, err := f.paymentRepo.GetByTransactionID(context.Background(), "txn_123")
	require.NoError(t, err)
	assert.True(t, p.IsRefunded())
}

func TestHandleRefund_ManualRevocationBeforeWebhook(t *testing.T) {
	f := newPaymentFixture(t)
	recorded := recordPurchase(t, f, "txn_123")

	l, err := f.licenseRepo.GetByID(context.Background(), recorded.LicenseID)
	require.NoError(t, err)
	l.Revoke("abuse", f.clk.Now())
	require.NoError(t, f.licenseRepo.Update(context.Background(), l))

	result, err := f.refund.Execute(context.Background(), HandleRefundCommand{TransactionID: "txn_123"})
	require.NoError(t, err)

	assert.True(t, result.Refunded)
	assert.False(t, result.LicenseRevoked, "license was already revoked by moderation")

	stored, err := f.licenseRepo.GetByID(context.Background(), recorded.LicenseID)
	require.NoError(t, err)
	assert.Equal(t, "abuse", stored.RevokeReason(), "first revocation reason wins")
}
