// Package keygen implements license private-key generation.
package keygen

import (
	"github.com/scripthub-inc/scripthub/internal/domain/license"
	"github.com/scripthub-inc/scripthub/internal/shared/id"
)

type generator struct{}

// NewGenerator returns the production KeyGenerator. Keys are prefixed base62
// strings from a CSPRNG; global uniqueness is enforced by the store's unique
// index, with the entropy making collisions practically impossible.
func NewGenerator() license.KeyGenerator {
	return &generator{}
}

func (g *generator) GenerateKey() (string, error) {
	return id.NewPrivateKey()
}
