// this file contains functions to calculate and verify SHA-256 checksums
//
// checksums of the decrypted payload are returned with document views so clients can
// confirm they received the bytes that were uploaded (or signed).

package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateSHA256Hex calculates the SHA-256 checksum of data and returns it as a hex string
func CalculateSHA256Hex(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum verifies that data matches the expected SHA-256 checksum
func VerifyChecksum(data []byte, expectedChecksum string) bool {
	checksum := CalculateSHA256Hex(data)
	return checksum == expectedChecksum
}
