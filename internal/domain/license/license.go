package license

import (
	"fmt"
	"time"

	"github.com/scripthub-inc/scripthub/internal/shared/id"
)

// License is the aggregate root for one entitlement grant.
// The (userID, scriptID) pair forms the entitlement subject; at most one
// non-revoked license may exist per subject at any instant. That invariant
// is enforced at the storage layer under per-subject serialization; the
// aggregate enforces everything local to a single record.
type License struct {
	id           uint
	sid          string // external identifier, lic_ prefixed
	userID       uint
	scriptID     uint
	privateKey   string // secret credential, generated once, never rotated in place
	isTrial      bool
	isActive     bool
	isRevoked    bool
	revokeReason string
	expiresAt    *time.Time // nil means perpetual
	lastUsedIP   string
	lastUsedAt   *time.Time
	createdAt    time.Time
	updatedAt    time.Time
	version      int // optimistic locking
}

// NewTrialLicense creates a trial license. Trials are always time-bounded:
// a zero or negative duration is rejected rather than silently producing a
// perpetual trial.
func NewTrialLicense(userID, scriptID uint, privateKey string, now time.Time, duration time.Duration) (*License, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("trial duration must be positive")
	}
	l, err := newLicense(userID, scriptID, privateKey, now)
	if err != nil {
		return nil, err
	}
	expiresAt := now.Add(duration)
	l.isTrial = true
	l.expiresAt = &expiresAt
	return l, nil
}

// NewPaidLicense creates a paid license. A lifetime license has no expiration;
// a timed license expires after the given duration.
func NewPaidLicense(userID, scriptID uint, privateKey string, licenseType LicenseType, now time.Time, duration time.Duration) (*License, error) {
	if !licenseType.IsValid() {
		return nil, fmt.Errorf("invalid license type: %s", licenseType)
	}
	if licenseType == LicenseTypeTimed && duration <= 0 {
		return nil, fmt.Errorf("timed license duration must be positive")
	}
	l, err := newLicense(userID, scriptID, privateKey, now)
	if err != nil {
		return nil, err
	}
	if licenseType == LicenseTypeTimed {
		expiresAt := now.Add(duration)
		l.expiresAt = &expiresAt
	}
	return l, nil
}

func newLicense(userID, scriptID uint, privateKey string, now time.Time) (*License, error) {
	if userID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if scriptID == 0 {
		return nil, fmt.Errorf("script ID is required")
	}
	if privateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}

	sid, err := id.NewLicenseID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate license SID: %w", err)
	}

	return &License{
		sid:        sid,
		userID:     userID,
		scriptID:   scriptID,
		privateKey: privateKey,
		isActive:   true,
		createdAt:  now,
		updatedAt:  now,
		version:    1,
	}, nil
}

// ReconstructParams carries persisted state back into the aggregate.
type ReconstructParams struct {
	ID           uint
	SID          string
	UserID       uint
	ScriptID     uint
	PrivateKey   string
	IsTrial      bool
	IsActive     bool
	IsRevoked    bool
	RevokeReason string
	ExpiresAt    *time.Time
	LastUsedIP   string
	LastUsedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int
}

// Reconstruct rebuilds a License from persistence.
func Reconstruct(p ReconstructParams) (*License, error) {
	if p.ID == 0 {
		return nil, fmt.Errorf("license ID cannot be zero")
	}
	if p.UserID == 0 {
		return nil, fmt.Errorf("user ID is required")
	}
	if p.ScriptID == 0 {
		return nil, fmt.Errorf("script ID is required")
	}
	if p.PrivateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}
	if p.IsTrial && p.ExpiresAt == nil {
		return nil, fmt.Errorf("trial license must have an expiration time")
	}

	return &License{
		id:           p.ID,
		sid:          p.SID,
		userID:       p.UserID,
		scriptID:     p.ScriptID,
		privateKey:   p.PrivateKey,
		isTrial:      p.IsTrial,
		isActive:     p.IsActive,
		isRevoked:    p.IsRevoked,
		revokeReason: p.RevokeReason,
		expiresAt:    p.ExpiresAt,
		lastUsedIP:   p.LastUsedIP,
		lastUsedAt:   p.LastUsedAt,
		createdAt:    p.CreatedAt,
		updatedAt:    p.UpdatedAt,
		version:      p.Version,
	}, nil
}

// ID returns the license ID
func (l *License) ID() uint { return l.id }

// SID returns the external license identifier
func (l *License) SID() string { return l.sid }

// UserID returns the owning user ID
func (l *License) UserID() uint { return l.userID }

// ScriptID returns the entitled script ID
func (l *License) ScriptID() uint { return l.scriptID }

// PrivateKey returns the secret license key
func (l *License) PrivateKey() string { return l.privateKey }

// IsTrial reports whether this is a trial license
func (l *License) IsTrial() bool { return l.isTrial }

// IsActive reports the operative access flag, independent of expiry
func (l *License) IsActive() bool { return l.isActive }

// IsRevoked reports whether the license was terminally revoked
func (l *License) IsRevoked() bool { return l.isRevoked }

// RevokeReason returns the recorded revocation reason, if any
func (l *License) RevokeReason() string { return l.revokeReason }

// ExpiresAt returns the expiration time; nil means perpetual
func (l *License) ExpiresAt() *time.Time { return l.expiresAt }

// LastUsedIP returns the IP observed on the last successful validation
func (l *License) LastUsedIP() string { return l.lastUsedIP }

// LastUsedAt returns the time of the last successful validation
func (l *License) LastUsedAt() *time.Time { return l.lastUsedAt }

// CreatedAt returns when the license was created
func (l *License) CreatedAt() time.Time { return l.createdAt }

// UpdatedAt returns when the license was last written
func (l *License) UpdatedAt() time.Time { return l.updatedAt }

// Version returns the aggregate version for optimistic locking
func (l *License) Version() int { return l.version }

// SetID sets the license ID (only for persistence layer use)
func (l *License) SetID(licenseID uint) error {
	if l.id != 0 {
		return fmt.Errorf("license ID is already set")
	}
	if licenseID == 0 {
		return fmt.Errorf("license ID cannot be zero")
	}
	l.id = licenseID
	return nil
}

// IsExpiredAt reports whether the license is past its expiration at the given
// instant. A perpetual license never expires.
func (l *License) IsExpiredAt(now time.Time) bool {
	if l.expiresAt == nil {
		return false
	}
	return now.After(*l.expiresAt)
}

// StatusAt derives the validation status at the given instant.
//
// boundIP is the user-level IP binding ("" when the user has none) and
// observedIP is the address presented by the caller ("" when not supplied).
// The IP check only applies when both are present.
func (l *License) StatusAt(now time.Time, boundIP, observedIP string) ValidationStatus {
	switch {
	case l.isRevoked:
		return StatusRevoked
	case !l.isActive:
		return StatusInactive
	case l.IsExpiredAt(now):
		return StatusExpired
	case boundIP != "" && observedIP != "" && boundIP != observedIP:
		return StatusIPMismatch
	default:
		return StatusValid
	}
}

// Revoke terminally revokes the license. Revoking an already-revoked license
// is a no-op: refund flows race with manual admin revocation, and the second
// caller must see the same terminal state without an error.
func (l *License) Revoke(reason string, now time.Time) {
	if l.isRevoked {
		return
	}
	l.isRevoked = true
	l.isActive = false
	l.revokeReason = reason
	l.updatedAt = now
	l.version++
}

// Touch records usage metadata after a successful validation. It must only be
// called on the Valid path; failed validations never mutate the record.
func (l *License) Touch(observedIP string, now time.Time) {
	l.lastUsedIP = observedIP
	usedAt := now
	l.lastUsedAt = &usedAt
	l.updatedAt = now
}

// Validate performs domain-level validation of the aggregate state.
func (l *License) Validate() error {
	if l.userID == 0 {
		return fmt.Errorf("user ID is required")
	}
	if l.scriptID == 0 {
		return fmt.Errorf("script ID is required")
	}
	if l.privateKey == "" {
		return fmt.Errorf("private key is required")
	}
	if l.isTrial && l.expiresAt == nil {
		return fmt.Errorf("trial license must have an expiration time")
	}
	return nil
}
