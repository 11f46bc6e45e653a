// Package payment provides the payment-side domain state the reconciler
// needs. Capture and refund happen at the external gateway; this model only
// records outcomes and drives the entitlement-side reaction.
package payment

import (
	"fmt"
	"time"

	"github.com/scripthub-inc/scripthub/internal/shared/id"
)

// Status represents the settlement state of a payment
type Status string

const (
	// StatusPaid means the gateway confirmed capture
	StatusPaid Status = "paid"
	// StatusRefunded means the gateway confirmed a refund
	StatusRefunded Status = "refunded"
)

// IsValid checks if the status is a known value
func (s Status) IsValid() bool {
	switch s {
	case StatusPaid, StatusRefunded:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}

// Payment records one captured purchase and its optional refund.
type Payment struct {
	id            uint
	sid           string
	userID        uint
	licenseID     uint
	transactionID string // gateway transaction reference, unique
	amountCents   int64
	currency      string
	status        Status
	refundedAt    *time.Time
	metadata      map[string]any
	createdAt     time.Time
	updatedAt     time.Time
	version       int
}

// NewPayment records a captured payment for a license.
func NewPayment(userID, licenseID uint, transactionID string, amountCents int64, currency string, now time.Time) (*Payment, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if licenseID == 0 {
		return nil, fmt.Errorf("license ID is required")
	}
	if transactionID == "" {
		return nil, fmt.Errorf("transaction ID is required")
	}
	if amountCents <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	if currency == "" {
		currency = "USD"
	}

	sid, err := id.NewPaymentID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate payment SID: %w", err)
	}

	return &Payment{
		sid:           sid,
		userID:        userID,
		licenseID:     licenseID,
		transactionID: transactionID,
		amountCents:   amountCents,
		currency:      currency,
		status:        StatusPaid,
		metadata:      make(map[string]any),
		createdAt:     now,
		updatedAt:     now,
		version:       1,
	}, nil
}

// ReconstructParams carries persisted payment state back into the aggregate.
type ReconstructParams struct {
	ID            uint
	SID           string
	UserID        uint
	LicenseID     uint
	TransactionID string
	AmountCents   int64
	Currency      string
	Status        Status
	RefundedAt    *time.Time
	Metadata      map[string]any
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int
}

// Reconstruct rebuilds a Payment from persistence.
func Reconstruct(p ReconstructParams) (*Payment, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("payment ID cannot be zero")
	}
	if p.TransactionID == "" {
		return nil, fmt.Errorf("transaction ID is required")
	}
	if !p.Status.IsValid() {
		return nil, fmt.Errorf("invalid payment status: %s", p.Status)
	}
	if p.Metadata == nil {
		p.Metadata = make(map[string]any)
	}
	return &Payment{
		id:            p.ID,
		sid:           p.SID,
		userID:        p.UserID,
		licenseID:     p.LicenseID,
		transactionID: p.TransactionID,
		amountCents:   p.AmountCents,
		currency:      p.Currency,
		status:        p.Status,
		refundedAt:    p.RefundedAt,
		metadata:      p.Metadata,
		createdAt:     p.CreatedAt,
		updatedAt:     p.UpdatedAt,
		version:       p.Version,
	}, nil
}

// ID returns the payment ID
func (p *Payment) ID() uint { return p.id }

// SID returns the external payment identifier
func (p *Payment) SID() string { return p.sid }

// UserID returns the paying user ID
func (p *Payment) UserID() uint { return p.userID }

// LicenseID returns the license this payment bought
func (p *Payment) LicenseID() uint { return p.licenseID }

// TransactionID returns the gateway transaction reference
func (p *Payment) TransactionID() string { return p.transactionID }

// AmountCents returns the captured amount in minor units
func (p *Payment) AmountCents() int64 { return p.amountCents }

// Currency returns the ISO currency code
func (p *Payment) Currency() string { return p.currency }

// Status returns the settlement status
func (p *Payment) Status() Status { return p.status }

// RefundedAt returns when the refund was recorded, if any
func (p *Payment) RefundedAt() *time.Time { return p.refundedAt }

// Metadata returns the payment metadata
func (p *Payment) Metadata() map[string]any { return p.metadata }

// CreatedAt returns when the payment was recorded
func (p *Payment) CreatedAt() time.Time { return p.createdAt }

// UpdatedAt returns when the payment was last written
func (p *Payment) UpdatedAt() time.Time { return p.updatedAt }

// Version returns the aggregate version for optimistic locking
func (p *Payment) Version() int { return p.version }

// SetID sets the payment ID (only for persistence layer use)
func (p *Payment) SetID(paymentID uint) error {
	if p.id != 0 {
		return fmt.Errorf("payment ID is already set")
	}
	if paymentID == 0 {
		return fmt.Errorf("payment ID cannot be zero")
	}
	p.id = paymentID
	return nil
}

// IsRefunded reports whether the payment has been refunded
func (p *Payment) IsRefunded() bool {
	return p.status == StatusRefunded
}

// MarkRefunded records a gateway-confirmed refund. It is idempotent so that
// retried webhook deliveries are safe.
func (p *Payment) MarkRefunded(now time.Time) {
	if p.status == StatusRefunded {
		return
	}
	p.status = StatusRefunded
	refundedAt := now
	p.refundedAt = &refundedAt
	p.updatedAt = now
	p.version++
}
