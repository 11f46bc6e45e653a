package license

import (
	"context"
	"time"
)

// Repository defines the interface for license persistence operations.
//
// Lookup methods return (nil, nil) when no matching record exists; callers
// translate that into the appropriate typed rejection. Mutations that involve
// the per-subject uniqueness invariant (Create, Update on revocation state)
// must run under per-subject serialization, which the implementation provides
// via transactions and row locking.
type Repository interface {
	// Create persists a new license. It fails with ErrAlreadyEntitled if a
	// non-revoked license exists for the same (user, script) subject, and
	// with ErrDuplicateKey on a private key collision.
	Create(ctx context.Context, l *License) error

	// Update persists aggregate state changes (revocation)
	Update(ctx context.Context, l *License) error

	// GetByID retrieves a license by internal ID
	GetByID(ctx context.Context, id uint) (*License, error)

	// GetBySID retrieves a license by external identifier
	GetBySID(ctx context.Context, sid string) (*License, error)

	// GetByPrivateKey retrieves a license by its secret key
	GetByPrivateKey(ctx context.Context, key string) (*License, error)

	// GetNonRevokedBySubject retrieves the at-most-one non-revoked license
	// for a (user, script) subject
	GetNonRevokedBySubject(ctx context.Context, userID, scriptID uint) (*License, error)

	// ListByUser retrieves all licenses held by a user, newest first
	ListByUser(ctx context.Context, userID uint) ([]*License, error)

	// TouchUsage records last-used telemetry without locking. Concurrent
	// writers may overwrite each other; these fields are advisory only.
	TouchUsage(ctx context.Context, licenseID uint, observedIP string, usedAt time.Time) error

	// DeleteRevoked permanently removes revoked licenses and returns the
	// number of rows deleted. It is an out-of-band maintenance purge and
	// must filter strictly on is_revoked = true.
	DeleteRevoked(ctx context.Context) (int64, error)
}

// KeyGenerator produces unique, unguessable private license keys.
type KeyGenerator interface {
	GenerateKey() (string, error)
}
