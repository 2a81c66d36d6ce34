// Package checksum provides the two digests used across md-feedback:
// a SHA-256 document checksum for optimistic concurrency, and a short
// djb2 line hash used by annotation anchors.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Sum returns the hex-encoded SHA-256 digest of data. Used as the
// If-Match token for whole-document writes.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Line returns an 8-char lowercase hex digest of the exact line text.
// djb2 rolling hash truncated to 32 bits. Not cryptographic: anchors
// only need to detect "this line changed", and a rare collision merely
// re-attaches a memo to a look-alike line nearby.
func Line(line string) string {
	var h uint32 = 5381
	for i := 0; i < len(line); i++ {
		h = h*33 + uint32(line[i])
	}
	return fmt.Sprintf("%08x", h)
}
