package scripthub

import (
	"encoding/json"
	"time"
)

// License is a license record as returned by the API.
type License struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	ScriptID     string     `json:"script_id"`
	IsTrial      bool       `json:"is_trial"`
	IsActive     bool       `json:"is_active"`
	IsRevoked    bool       `json:"is_revoked"`
	RevokeReason string     `json:"revoke_reason,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	LastUsedIP   string     `json:"last_used_ip,omitempty"`
	LastUsedAt   *time.Time `json:"last_used_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IssuedLicense is a freshly issued license. PrivateKey is returned exactly
// once, at issuance.
type IssuedLicense struct {
	License
	PrivateKey string `json:"private_key"`
}

// ValidationResult is the outcome of a key validation. Status is one of
// valid, expired, revoked, inactive, ip_mismatch.
type ValidationResult struct {
	Status  string   `json:"status"`
	License *License `json:"license,omitempty"`
}

// apiEnvelope mirrors the server's response envelope.
type apiEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   *apiError       `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

type apiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *apiError) text() string {
	if e == nil {
		return "unknown error"
	}
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
