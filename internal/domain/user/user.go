// Package user provides the account-side domain state the entitlement engine
// depends on: trial eligibility and the user-level IP binding.
//
// The IP binding is deliberately per-user, not per-license: a user registers
// one address and every one of their licenses validates against it. Storing
// the binding per license would let a buyer share each license from a
// different machine, which is exactly what the control exists to prevent.
package user

import (
	"fmt"
	"net/netip"
	"time"

	"github.com/scripthub-inc/scripthub/internal/shared/id"
)

// User represents an account holder as seen by the entitlement engine.
type User struct {
	id        uint
	sid       string
	email     string
	boundIP   string     // single registered address, "" when unbound
	boundAt   *time.Time // when the binding was last written
	trialEnd  *time.Time // global trial window close; nil means open
	createdAt time.Time
	updatedAt time.Time
}

// NewUser creates a new user record.
func NewUser(email string, trialWindow time.Duration, now time.Time) (*User, error) {
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}

	sid, err := id.NewUserID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate user SID: %w", err)
	}

	u := &User{
		sid:       sid,
		email:     email,
		createdAt: now,
		updatedAt: now,
	}
	if trialWindow > 0 {
		end := now.Add(trialWindow)
		u.trialEnd = &end
	}
	return u, nil
}

// Reconstruct rebuilds a User from persistence.
func Reconstruct(userID uint, sid, email, boundIP string, boundAt, trialEnd *time.Time, createdAt, updatedAt time.Time) (*User, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID cannot be zero")
	}
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	return &User{
		id:        userID,
		sid:       sid,
		email:     email,
		boundIP:   boundIP,
		boundAt:   boundAt,
		trialEnd:  trialEnd,
		createdAt: createdAt,
		updatedAt: updatedAt,
	}, nil
}

// ID returns the user ID
func (u *User) ID() uint { return u.id }

// SID returns the external user identifier
func (u *User) SID() string { return u.sid }

// Email returns the account email
func (u *User) Email() string { return u.email }

// BoundIP returns the registered IP address, or "" when unbound
func (u *User) BoundIP() string { return u.boundIP }

// BoundAt returns when the IP binding was last written
func (u *User) BoundAt() *time.Time { return u.boundAt }

// TrialWindowEndsAt returns when the user's global trial window closes;
// nil means the window never closes
func (u *User) TrialWindowEndsAt() *time.Time { return u.trialEnd }

// CreatedAt returns when the user was created
func (u *User) CreatedAt() time.Time { return u.createdAt }

// UpdatedAt returns when the user was last written
func (u *User) UpdatedAt() time.Time { return u.updatedAt }

// SetID sets the user ID (only for persistence layer use)
func (u *User) SetID(userID uint) error {
	if u.id != 0 {
		return fmt.Errorf("user ID is already set")
	}
	if userID == 0 {
		return fmt.Errorf("user ID cannot be zero")
	}
	u.id = userID
	return nil
}

// TrialWindowOpenAt reports whether the user may still start trials at the
// given instant.
func (u *User) TrialWindowOpenAt(now time.Time) bool {
	if u.trialEnd == nil {
		return true
	}
	return !now.After(*u.trialEnd)
}

// BindIP overwrites the user-level bound IP. Only well-formedness is checked;
// the binding is a self-service anti-sharing control, not a security boundary.
func (u *User) BindIP(ip string, now time.Time) error {
	if _, err := netip.ParseAddr(ip); err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedIP, ip)
	}
	u.boundIP = ip
	boundAt := now
	u.boundAt = &boundAt
	u.updatedAt = now
	return nil
}
