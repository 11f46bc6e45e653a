// Package dto defines the request and response shapes of the license
// application layer.
package dto

import (
	"time"

	"github.com/scripthub-inc/scripthub/internal/domain/license"
)

// LicenseResponse represents a license without its secret key.
type LicenseResponse struct {
	ID           string     `json:"id"`
	UserID       uint       `json:"user_id"`
	ScriptID     uint       `json:"script_id"`
	IsTrial      bool       `json:"is_trial"`
	IsActive     bool       `json:"is_active"`
	IsRevoked    bool       `json:"is_revoked"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastUsedIP   string     `json:"last_used_ip,omitempty"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IssuedLicenseResponse is returned once, at issuance. It is the only place
// the private key crosses the application boundary.
type IssuedLicenseResponse struct {
	LicenseResponse
	PrivateKey string `json:"private_key"`
}

// ValidationResponse carries the derived status and, for known keys, the
// license it was derived from.
type ValidationResponse struct {
	Status  string           `json:"status"`
	License *LicenseResponse `json:"license,omitempty"`
}

// RevocationResponse reports the terminal state after a revoke call.
// AlreadyRevoked distinguishes the first revocation from an idempotent replay.
type RevocationResponse struct {
	License        *LicenseResponse `json:"license"`
	AlreadyRevoked bool             `json:"already_revoked"`
}

// FromLicense maps an aggregate to its public response shape.
func FromLicense(l *license.License) *LicenseResponse {
	return &LicenseResponse{
		ID:           l.SID(),
		UserID:       l.UserID(),
		ScriptID:     l.ScriptID(),
		IsTrial:      l.IsTrial(),
		IsActive:     l.IsActive(),
		IsRevoked:    l.IsRevoked(),
		RevokeReason: l.RevokeReason(),
		ExpiresAt:    l.ExpiresAt(),
		LastUsedIP:   l.LastUsedIP(),
		LastUsedAt:   l.LastUsedAt(),
		CreatedAt:    l.CreatedAt(),
	}
}

// FromIssuedLicense maps a freshly issued aggregate, including its key.
func FromIssuedLicense(l *license.License) *IssuedLicenseResponse {
	return &IssuedLicenseResponse{
		LicenseResponse: *FromLicense(l),
		PrivateKey:      l.PrivateKey(),
	}
}
