package user

import "context"

// Repository defines the interface for user persistence as the entitlement
// engine needs it. Lookup methods return (nil, nil) when no record exists.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uint) (*User, error)
	GetBySID(ctx context.Context, sid string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdateBoundIP persists the user-level IP binding
	UpdateBoundIP(ctx context.Context, u *User) error
}
