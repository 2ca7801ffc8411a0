package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashScopeKey returns a filesystem-safe identifier for a storage namespace.
func HashScopeKey(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}
