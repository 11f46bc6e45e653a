package errors

import "net/http"

// Entitlement-specific error types. These map 1:1 onto user-facing messages:
// an issuance rejection tells the caller exactly which business rule fired.
const (
	ErrorTypeAlreadyEntitled   ErrorType = "already_entitled"
	ErrorTypeTrialWindowClosed ErrorType = "trial_window_closed"
	ErrorTypeUnknownKey        ErrorType = "unknown_key"
	ErrorTypeLicenseNotFound   ErrorType = "license_not_found"
)

// NewAlreadyEntitledError signals that the subject already holds a non-revoked
// license for the script. This is a business-rule rejection, never retried.
func NewAlreadyEntitledError(details ...string) *AppError {
	return newAppError(ErrorTypeAlreadyEntitled, http.StatusConflict,
		"an active license already exists for this script", details...)
}

// NewTrialWindowClosedError signals that the user's trial eligibility has lapsed.
func NewTrialWindowClosedError(details ...string) *AppError {
	return newAppError(ErrorTypeTrialWindowClosed, http.StatusForbidden,
		"trial is no longer available for this account", details...)
}

// NewUnknownKeyError signals that no license exists for the presented key.
func NewUnknownKeyError() *AppError {
	return newAppError(ErrorTypeUnknownKey, http.StatusNotFound,
		"unknown license key")
}

// NewLicenseNotFoundError signals a refund referencing a license that does not
// exist. The monetary refund is never blocked on this; it exists for operator
// visibility.
func NewLicenseNotFoundError(details ...string) *AppError {
	return newAppError(ErrorTypeLicenseNotFound, http.StatusNotFound,
		"license not found", details...)
}

// IsAlreadyEntitledError checks if the error is an already-entitled rejection
func IsAlreadyEntitledError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeAlreadyEntitled
}

// IsTrialWindowClosedError checks if the error is a trial-window rejection
func IsTrialWindowClosedError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeTrialWindowClosed
}

// IsUnknownKeyError checks if the error is an unknown-key rejection
func IsUnknownKeyError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeUnknownKey
}

// IsLicenseNotFoundError checks if the error is a license-not-found signal
func IsLicenseNotFoundError(err error) bool {
	appErr := GetAppError(err)
	return appErr != nil && appErr.Type == ErrorTypeLicenseNotFound
}
