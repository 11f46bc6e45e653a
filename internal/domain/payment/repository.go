package payment

import "context"

// Repository defines the interface for payment persistence.
// Lookup methods return (nil, nil) when no matching record exists.
type Repository interface {
	Create(ctx context.Context, p *Payment) error
	Update(ctx context.Context, p *Payment) error
	GetByID(ctx context.Context, id uint) (*Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	ListByUser(ctx context.Context, userID uint) ([]*Payment, error)
}
