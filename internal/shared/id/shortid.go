// Package id generates short, URL-safe identifiers and license key material.
// IDs follow the Stripe-style "prefix_random" pattern so that an identifier is
// self-describing in logs and API payloads.
package id

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Base62 alphabet: 0-9, A-Z, a-z
	alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// DefaultLength is the default length for generated short IDs
	DefaultLength = 12

	// KeyLength is the length of the random portion of a license private key.
	// 40 base62 characters carry ~238 bits of entropy, which keeps keys
	// unguessable against offline enumeration.
	KeyLength = 40
)

// Prefixes for different entity types (Stripe-style)
const (
	PrefixLicense = "lic"
	PrefixScript  = "scr"
	PrefixPayment = "pay"
	PrefixUser    = "usr"

	// PrefixLicenseKey marks a license private key, as opposed to a public
	// license identifier.
	PrefixLicenseKey = "shk"
)

// Generate creates a random short ID with the specified length using Base62 encoding.
// The generated ID is cryptographically random and URL-safe.
func Generate(length int) (string, error) {
	if length <= 0 {
		length = DefaultLength
	}

	result := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(alphabet)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = alphabet[num.Int64()]
	}

	return string(result), nil
}

// MustGenerate creates a random short ID and panics on error.
// Use this only when you're certain the generation won't fail.
func MustGenerate(length int) string {
	id, err := Generate(length)
	if err != nil {
		panic(err)
	}
	return id
}

// GenerateWithPrefix creates a prefixed ID in the format "prefix_randomstring".
func GenerateWithPrefix(prefix string, length int) (string, error) {
	id, err := Generate(length)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s_%s", prefix, id), nil
}

// MustGenerateWithPrefix creates a prefixed ID and panics on error.
func MustGenerateWithPrefix(prefix string, length int) string {
	id, err := GenerateWithPrefix(prefix, length)
	if err != nil {
		panic(err)
	}
	return id
}

// FormatWithPrefix adds a prefix to an existing short ID.
// Example: FormatWithPrefix("lic", "xK9mP2vL3nQ") returns "lic_xK9mP2vL3nQ"
func FormatWithPrefix(prefix, shortID string) string {
	if shortID == "" {
		return ""
	}
	return fmt.Sprintf("%s_%s", prefix, shortID)
}

// ParsePrefixedID extracts the prefix and short ID from a prefixed ID string.
// Example: ParsePrefixedID("lic_xK9mP2vL3nQ") returns ("lic", "xK9mP2vL3nQ", nil)
func ParsePrefixedID(prefixedID string) (prefix, shortID string, err error) {
	parts := strings.SplitN(prefixedID, "_", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid prefixed ID format: %s", prefixedID)
	}
	return parts[0], parts[1], nil
}

// NewLicenseID generates a new license SID (lic_xxx).
func NewLicenseID() (string, error) {
	return GenerateWithPrefix(PrefixLicense, DefaultLength)
}

// NewScriptID generates a new script SID (scr_xxx).
func NewScriptID() (string, error) {
	return GenerateWithPrefix(PrefixScript, DefaultLength)
}

// NewPaymentID generates a new payment SID (pay_xxx).
func NewPaymentID() (string, error) {
	return GenerateWithPrefix(PrefixPayment, DefaultLength)
}

// NewUserID generates a new user SID (usr_xxx).
func NewUserID() (string, error) {
	return GenerateWithPrefix(PrefixUser, DefaultLength)
}

// NewPrivateKey generates a new license private key (shk_xxx).
// Key material is longer than a plain SID because keys are bearer credentials.
func NewPrivateKey() (string, error) {
	return GenerateWithPrefix(PrefixLicenseKey, KeyLength)
}

// ValidatePrefix checks if the prefixed ID has the expected prefix.
func ValidatePrefix(prefixedID, expectedPrefix string) error {
	prefix, _, err := ParsePrefixedID(prefixedID)
	if err != nil {
		return err
	}
	if prefix != expectedPrefix {
		return fmt.Errorf("invalid prefix: expected %s, got %s", expectedPrefix, prefix)
	}
	return nil
}
