// Package md5 provides MD5 hashing utilities.
package md5

import (
	"crypto/md5" //nolint:gosec // identifiers only, not a security boundary
	"encoding/hex"
)

// Hasher digests strings with MD5.
type Hasher struct{}

// New returns an MD5 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash hashes the input and returns a hex digest.
func (h *Hasher) Hash(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec // see import
	return hex.EncodeToString(sum[:])
}
