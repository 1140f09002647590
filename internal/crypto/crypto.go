// Package crypto seals bridge messages with NaCl secretbox when they travel
// over TCP.
//
// Both ends derive the same 32-byte key from the shared token via
// HKDF-SHA256. Each sealed message carries a fresh random 24-byte nonce
// prepended to the ciphertext:
//
//	[ 24-byte nonce ][ ciphertext ]
//
// With an empty token the wire layer passes a nil key and messages go out as
// plain JSON; this package is then unused.
package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const (
	keySize   = 32
	nonceSize = 24
)

var hkdfInfo = []byte("tabclip-bridge-v1")

// DeriveKey derives the secretbox key from a shared token.
func DeriveKey(token string) (*[keySize]byte, error) {
	h := hkdf.New(sha256.New, []byte(token), nil, hkdfInfo)
	var key [keySize]byte
	if _, err := io.ReadFull(h, key[:]); err != nil {
		return nil, fmt.Errorf("key derivation: %w", err)
	}
	return &key, nil
}

// Seal encrypts plaintext, returning nonce+ciphertext.
func Seal(plaintext []byte, key *[keySize]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("nonce generation: %w", err)
	}
	return secretbox.Seal(nonce[:], plaintext, &nonce, key), nil
}

// Open decrypts nonce+ciphertext produced by Seal.
func Open(sealed []byte, key *[keySize]byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, fmt.Errorf("sealed message too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, fmt.Errorf("decryption failed (wrong token?)")
	}
	return plain, nil
}
