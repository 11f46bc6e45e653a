package license

import "errors"

var (
	// ErrLicenseNotFound is returned when a license is not found
	ErrLicenseNotFound = errors.New("license not found")

	// ErrUnknownKey is returned when no license exists for a presented key
	ErrUnknownKey = errors.New("unknown license key")

	// ErrAlreadyEntitled is returned when a non-revoked license already exists
	// for the (user, script) subject
	ErrAlreadyEntitled = errors.New("subject already holds a non-revoked license")

	// ErrDuplicateKey is returned when a generated private key collides with
	// an existing one; keys are unique across all licenses ever issued
	ErrDuplicateKey = errors.New("license key already exists")
)
