package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/scripthub-inc/scripthub/internal/domain/payment"
	"github.com/scripthub-inc/scripthub/internal/infrastructure/persistence/models"
	sharedConfig "github.com/scripthub-inc/scripthub/internal/shared/config"
	"github.com/scripthub-inc/scripthub/internal/shared/db"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// PaymentRepositoryImpl implements the payment.Repository interface
type PaymentRepositoryImpl struct {
	db     *gorm.DB
	retry  retryPolicy
	logger logger.Interface
}

// NewPaymentRepository creates a new payment repository instance
func NewPaymentRepository(gormDB *gorm.DB, retryCfg sharedConfig.StoreRetryConfig, log logger.Interface) payment.Repository {
	return &PaymentRepositoryImpl{
		db:     gormDB,
		retry:  newRetryPolicy(retryCfg),
		logger: log,
	}
}

// Create persists a captured payment. The unique index on transaction_id makes
// duplicate webhook deliveries surface as ErrDuplicateTransaction.
func (r *PaymentRepositoryImpl) Create(ctx context.Context, p *payment.Payment) error {
	tx := db.GetTxFromContext(ctx, r.db)

	model, err := paymentToModel(p)
	if err != nil {
		return err
	}

	if err := tx.Create(model).Error; err != nil {
		if apperrors.IsDuplicateError(err) {
			return payment.ErrDuplicateTransaction
		}
		r.logger.Errorw("failed to create payment", "transaction_id", p.TransactionID(), "error", err)
		return fmt.Errorf("failed to create payment: %w", err)
	}

	if err := p.SetID(model.ID); err != nil {
		return fmt.Errorf("failed to set payment ID: %w", err)
	}

	r.logger.Infow("payment recorded",
		"payment_id", model.ID,
		"sid", model.SID,
		"transaction_id", model.TransactionID,
		"amount_cents", model.AmountCents)

	return nil
}

// Update persists payment state changes using optimistic locking.
func (r *PaymentRepositoryImpl) Update(ctx context.Context, p *payment.Payment) error {
	tx := db.GetTxFromContext(ctx, r.db)

	result := tx.Model(&models.PaymentModel{}).
		Where("id = ? AND version < ?", p.ID(), p.Version()).
		Updates(map[string]any{
			"status":      p.Status().String(),
			"refunded_at": p.RefundedAt(),
			"updated_at":  p.UpdatedAt(),
			"version":     p.Version(),
		})
	if result.Error != nil {
		r.logger.Errorw("failed to update payment", "payment_id", p.ID(), "error", result.Error)
		return fmt.Errorf("failed to update payment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return payment.ErrPaymentNotFound
	}

	return nil
}

// GetByID retrieves a payment by internal ID
func (r *PaymentRepositoryImpl) GetByID(ctx context.Context, id uint) (*payment.Payment, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByTransactionID retrieves a payment by its gateway transaction reference
func (r *PaymentRepositoryImpl) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	return r.getOne(ctx, "transaction_id = ?", transactionID)
}

// ListByUser retrieves all payments made by a user, newest first
func (r *PaymentRepositoryImpl) ListByUser(ctx context.Context, userID uint) ([]*payment.Payment, error) {
	var modelRows []models.PaymentModel

	err := r.retry.run(ctx, func(ctx context.Context) error {
		return r.db.WithContext(ctx).
			Where("user_id = ?", userID).
			Order("created_at DESC").
			Find(&modelRows).Error
	})
	if err != nil {
		r.logger.Errorw("failed to list payments", "user_id", userID, "error", err)
		return nil, err
	}

	payments := make([]*payment.Payment, len(modelRows))
	for i := range modelRows {
		p, err := modelToPayment(&modelRows[i])
		if err != nil {
			return nil, err
		}
		payments[i] = p
	}
	return payments, nil
}

func (r *PaymentRepositoryImpl) getOne(ctx context.Context, query string, arg any) (*payment.Payment, error) {
	tx := db.GetTxFromContext(ctx, r.db)

	var model models.PaymentModel
	err := r.retry.run(ctx, func(ctx context.Context) error {
		return tx.Where(query, arg).First(&model).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return modelToPayment(&model)
}

func paymentToModel(p *payment.Payment) (*models.PaymentModel, error) {
	metadata, err := json.Marshal(p.Metadata())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment metadata: %w", err)
	}

	return &models.PaymentModel{
		ID:            p.ID(),
		SID:           p.SID(),
		UserID:        p.UserID(),
		LicenseID:     p.LicenseID(),
		TransactionID: p.TransactionID(),
		AmountCents:   p.AmountCents(),
		Currency:      p.Currency(),
		Status:        p.Status().String(),
		RefundedAt:    p.RefundedAt(),
		Metadata:      datatypes.JSON(metadata),
		CreatedAt:     p.CreatedAt(),
		UpdatedAt:     p.UpdatedAt(),
		Version:       p.Version(),
	}, nil
}

func modelToPayment(m *models.PaymentModel) (*payment.Payment, error) {
	metadata := make(map[string]any)
	if len(m.Metadata) > 0 {
		if err := json.Unmarshal(m.Metadata, &metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal payment metadata for %d: %w", m.ID, err)
		}
	}

	p, err := payment.Reconstruct(payment.ReconstructParams{
		ID:            m.ID,
		SID:           m.SID,
		UserID:        m.UserID,
		LicenseID:     m.LicenseID,
		TransactionID: m.TransactionID,
		AmountCents:   m.AmountCents,
		Currency:      m.Currency,
		Status:        payment.Status(m.Status),
		RefundedAt:    m.RefundedAt,
		Metadata:      metadata,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
		Version:       m.Version,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to reconstruct payment %d: %w", m.ID, err)
	}
	return p, nil
}
