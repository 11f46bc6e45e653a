package errors

import (
	stderrors "errors"
	"net/http"
)

// Session-layer error types
const (
	ErrorTypeTokenExpired   ErrorType = "token_expired"
	ErrorTypeTokenInvalid   ErrorType = "token_invalid"
	ErrorTypeSessionExpired ErrorType = "session_expired"
	ErrorTypeRenewalFailed  ErrorType = "renewal_failed"
	ErrorTypeRenewalTimeout ErrorType = "renewal_timeout"
)

// AuthError represents authentication-specific errors with security context
type AuthError struct {
	*AppError
	// ShouldLog determines if this error should be logged.
	// Expected rejections (expired tokens) don't need error-level logging.
	ShouldLog bool
	// SecurityEvent indicates if this should be tracked as a security event
	SecurityEvent bool
}

// Error implements the error interface
func (e *AuthError) Error() string {
	return e.AppError.Error()
}

// Unwrap allows errors.Is and errors.As to work correctly
func (e *AuthError) Unwrap() error {
	return e.AppError
}

// NewTokenExpiredError creates an error for an expired access token
func NewTokenExpiredError() *AuthError {
	return &AuthError{
		AppError: &AppError{
			Type:    ErrorTypeTokenExpired,
			Message: "Access token has expired",
			Code:    http.StatusUnauthorized,
		},
		ShouldLog: false,
	}
}

// NewTokenInvalidError creates an error for a malformed or tampered token
func NewTokenInvalidError(details ...string) *AuthError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AuthError{
		AppError: &AppError{
			Type:    ErrorTypeTokenInvalid,
			Message: "Invalid token",
			Code:    http.StatusUnauthorized,
			Details: detail,
		},
		ShouldLog:     true,
		SecurityEvent: true,
	}
}

// NewSessionExpiredError creates an error telling the caller to re-authenticate.
// This is the terminal outcome of a failed renewal: no silent degraded mode.
func NewSessionExpiredError() *AuthError {
	return &AuthError{
		AppError: &AppError{
			Type:    ErrorTypeSessionExpired,
			Message: "Session expired, please re-authenticate",
			Code:    http.StatusUnauthorized,
		},
		ShouldLog: false,
	}
}

// NewRenewalFailedError creates an error for a failed token renewal
func NewRenewalFailedError(details ...string) *AuthError {
	detail := ""
	if len(details) > 0 {
		detail = details[0]
	}
	return &AuthError{
		AppError: &AppError{
			Type:    ErrorTypeRenewalFailed,
			Message: "Token renewal failed",
			Code:    http.StatusUnauthorized,
			Details: detail,
		},
		ShouldLog: true,
	}
}

// NewRenewalTimeoutError creates an error for a renewal that exceeded its deadline
func NewRenewalTimeoutError() *AuthError {
	return &AuthError{
		AppError: &AppError{
			Type:    ErrorTypeRenewalTimeout,
			Message: "Token renewal timed out",
			Code:    http.StatusUnauthorized,
		},
		ShouldLog: true,
	}
}

// IsAuthError checks whether err carries an AuthError
func IsAuthError(err error) bool {
	var authErr *AuthError
	return stderrors.As(err, &authErr)
}
