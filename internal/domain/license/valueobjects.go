// Package license provides the domain model for software license entitlements.
// A license grants one user access to one script, either as a time-bounded
// trial or as a paid (timed or lifetime) entitlement.
package license

// LicenseType represents the commercial shape of a paid license
type LicenseType string

const (
	// LicenseTypeLifetime is a perpetual license with no expiration
	LicenseTypeLifetime LicenseType = "lifetime"
	// LicenseTypeTimed is a license valid for a fixed duration
	LicenseTypeTimed LicenseType = "timed"
)

// IsValid checks if the license type is valid
func (lt LicenseType) IsValid() bool {
	switch lt {
	case LicenseTypeLifetime, LicenseTypeTimed:
		return true
	default:
		return false
	}
}

// String returns the string representation of the license type
func (lt LicenseType) String() string {
	return string(lt)
}

// ValidationStatus is the derived status of a license at a given instant.
// It is computed at validation time from the stored flags and the clock;
// it is never persisted. Every caller gets the same answer from the same
// derivation, in strict precedence order: revoked dominates everything,
// then inactive, then expired, then IP mismatch.
type ValidationStatus string

const (
	// StatusValid means the license currently grants access
	StatusValid ValidationStatus = "valid"
	// StatusRevoked means the license was terminally revoked
	StatusRevoked ValidationStatus = "revoked"
	// StatusInactive means the license is disabled but not revoked
	StatusInactive ValidationStatus = "inactive"
	// StatusExpired means the license is past its expiration time
	StatusExpired ValidationStatus = "expired"
	// StatusIPMismatch means the observed IP differs from the user's bound IP
	StatusIPMismatch ValidationStatus = "ip_mismatch"
)

// IsValid checks if the validation status is a known value
func (vs ValidationStatus) IsValid() bool {
	switch vs {
	case StatusValid, StatusRevoked, StatusInactive, StatusExpired, StatusIPMismatch:
		return true
	default:
		return false
	}
}

// String returns the string representation of the validation status
func (vs ValidationStatus) String() string {
	return string(vs)
}

// GrantsAccess reports whether the status permits use of the script
func (vs ValidationStatus) GrantsAccess() bool {
	return vs == StatusValid
}

// Revocation reasons recorded on the license.
const (
	RevokeReasonManual  = "manual"
	RevokeReasonRefund  = "refund"
	RevokeReasonUpgrade = "upgrade"
)
