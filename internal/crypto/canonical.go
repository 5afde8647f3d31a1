// workflow events are fingerprinted over their RFC 8785 canonical JSON form so that the same
// event always produces the same fingerprint, regardless of field order.
// this implementation uses the gowebpki/jcs library to perform this canonicalization
package crypto

import (
	"encoding/json"

	"github.com/gowebpki/jcs"
)

// CanonicalizeJSON converts JSON to canonical form per RFC 8785
//
// If the input is not valid JSON, an error is returned (handled by jcs library).
func CanonicalizeJSON(jsonData []byte) ([]byte, error) {
	return jcs.Transform(jsonData)
}

// Fingerprint marshals v to JSON, canonicalizes it and returns the SHA-256 hex digest.
func Fingerprint(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", WrapValidationError(err, "failed to marshal value")
	}
	canonical, err := CanonicalizeJSON(raw)
	if err != nil {
		return "", WrapValidationError(err, "failed to canonicalize value")
	}
	return CalculateSHA256Hex(canonical), nil
}
