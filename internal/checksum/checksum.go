// Package checksum computes content digests used to tell the process's own
// store writes apart from changes made by someone else.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumString is Sum for string values as held by the key-value store.
func SumString(s string) string {
	return Sum([]byte(s))
}
