package payment

import "errors"

var (
	// ErrPaymentNotFound is returned when a payment is not found
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrDuplicateTransaction is returned when a transaction ID is recorded twice
	ErrDuplicateTransaction = errors.New("transaction already recorded")
)
