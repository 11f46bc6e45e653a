package user

import "errors"

var (
	// ErrUserNotFound is returned when a user is not found
	ErrUserNotFound = errors.New("user not found")

	// ErrMalformedIP is returned when an IP binding request carries a string
	// that does not parse as an IP address
	ErrMalformedIP = errors.New("malformed IP address")
)
