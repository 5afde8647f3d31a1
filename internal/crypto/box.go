// box.go implements per-document payload encryption.
//
// Every call to Seal generates a fresh 256-bit key and 128-bit IV, so a leaked key exposes
// exactly one stored payload. The payload is encrypted with AES-256-GCM using the 16 byte IV as
// the GCM nonce: unlike the CBC scheme this replaces, tampering with the ciphertext (or
// opening it with another document's key) is detected by the authentication tag.
//
// Key and IV are hex encoded so they can be stored next to the document record.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	// KeySize is the AES-256 key length in bytes.
	KeySize = 32

	// IVSize is the GCM nonce length in bytes.
	IVSize = 16
)

// SealedPayload is the output of Seal: the ciphertext and the key material needed to open it.
// KeyHex and IVHex must never be returned to API clients.
type SealedPayload struct {
	Ciphertext []byte
	KeyHex     string
	IVHex      string
}

// Box seals and opens document payloads. The zero value is not usable, call NewBox.
type Box struct {
	random io.Reader
}

// NewBox returns a Box that draws key material from crypto/rand.
func NewBox() *Box {
	return &Box{random: rand.Reader}
}

// NewBoxWithRandom returns a Box that draws key material from r (for tests).
func NewBoxWithRandom(r io.Reader) *Box {
	return &Box{random: r}
}

// Seal encrypts plaintext under a freshly generated key and IV.
func (b *Box) Seal(plaintext []byte) (SealedPayload, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(b.random, key); err != nil {
		return SealedPayload{}, WrapInternalError(err, "failed to generate encryption key")
	}

	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(b.random, iv); err != nil {
		return SealedPayload{}, WrapInternalError(err, "failed to generate iv")
	}

	aead, err := newAEAD(key)
	if err != nil {
		return SealedPayload{}, WrapInternalError(err, "failed to initialise cipher")
	}

	return SealedPayload{
		Ciphertext: aead.Seal(nil, iv, plaintext, nil),
		KeyHex:     hex.EncodeToString(key),
		IVHex:      hex.EncodeToString(iv),
	}, nil
}

// Open decrypts ciphertext with the hex encoded key and IV produced by Seal.
//
// All failures (bad encoding, wrong sizes, authentication failure) are returned as decryption
// errors. Open never returns partially decrypted data.
func (b *Box) Open(ciphertext []byte, keyHex, ivHex string) ([]byte, error) {
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return nil, WrapDecryptionError(err, "malformed encryption key")
	}
	if len(key) != KeySize {
		return nil, NewDecryptionError(fmt.Sprintf("encryption key must be %d bytes, got %d", KeySize, len(key)))
	}

	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, WrapDecryptionError(err, "malformed iv")
	}
	if len(iv) != IVSize {
		return nil, NewDecryptionError(fmt.Sprintf("iv must be %d bytes, got %d", IVSize, len(iv)))
	}

	aead, err := newAEAD(key)
	if err != nil {
		return nil, WrapDecryptionError(err, "failed to initialise cipher")
	}

	plaintext, err := aead.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return nil, WrapDecryptionError(err, "ciphertext does not match key material")
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, IVSize)
}
