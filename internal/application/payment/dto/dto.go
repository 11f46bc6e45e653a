// Package dto defines the request and response shapes of the payment
// application layer.
package dto

import (
	"time"

	"github.com/scripthub-inc/scripthub/internal/domain/payment"
)

// RefundResponse reports what the reconciler did. The monetary refund is an
// external fact; these flags exist so the payment collaborator and operators
// can see whether the entitlement side kept up.
type RefundResponse struct {
	PaymentID       string `json:"payment_id"`
	Refunded        bool   `json:"refunded"`
	AlreadyRefunded bool   `json:"already_refunded"`
	LicenseRevoked  bool   `json:"license_revoked"`
	LicenseNotFound bool   `json:"license_not_found"`
}

// PaymentResponse represents a recorded payment.
type PaymentResponse struct {
	ID            string     `json:"id"`
	UserID        uint       `json:"user_id"`
	LicenseID     uint       `json:"license_id"`
	TransactionID string     `json:"transaction_id"`
	AmountCents   int64      `json:"amount_cents"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	RefundedAt    *time.Time `json:"refunded_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// FromPayment maps an aggregate to its response shape.
func FromPayment(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		ID:            p.SID(),
		UserID:        p.UserID(),
		LicenseID:     p.LicenseID(),
		TransactionID: p.TransactionID(),
		AmountCents:   p.AmountCents(),
		Currency:      p.Currency(),
		Status:        p.Status().String(),
		RefundedAt:    p.RefundedAt(),
		CreatedAt:     p.CreatedAt(),
	}
}
