// Package synchash computes the order-independent fingerprint the gateway
// publishes in its sync endpoint. Client and server hash the same email id
// set to the same value, so comparing fingerprints detects drift without
// transferring bodies.
package synchash

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Compute returns the hex-encoded SHA-256 fingerprint of an email id set.
// The input is sorted before hashing, so iteration order never matters.
// An empty set always hashes to the same well-known value.
func Compute(ids []string) string {
	sorted := make([]string, len(ids))
	copy(sorted, ids)
	sort.Strings(sorted)

	h := sha256.Sum256([]byte(strings.Join(sorted, "\n")))
	return hex.EncodeToString(h[:])
}
