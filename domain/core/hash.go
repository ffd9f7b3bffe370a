package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash is a hex encoded SHA-256 digest
type Hash string

// NewHash hashes data
func NewHash(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}

func (h Hash) String() string {
	return string(h)
}

// Short returns the first 12 hex digits, enough to tell registries apart
// in logs
func (h Hash) Short() string {
	if len(h) < 12 {
		return string(h)
	}
	return string(h[:12])
}
