package vaultcrypto

import (
	"crypto/cipher"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/fam007e/securepass/vaulterrors"
)

// NonceSizeX is the nonce size in bytes for XChaCha20-Poly1305.
const NonceSizeX = chacha20poly1305.NonceSizeX

// TagSize is the Poly1305 tag size in bytes.
const TagSize = chacha20poly1305.Overhead

var ErrNilXChaCha = errors.New("XChaCha is nil")

// XChaCha wraps a [cipher.AEAD] using XChaCha20-Poly1305.
type XChaCha struct {
	aead cipher.AEAD
}

// NewXChaCha creates a new XChaCha20-Poly1305 cipher using the provided 32-byte key.
func NewXChaCha(key []byte) (*XChaCha, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	return &XChaCha{aead}, nil
}

// Seal encrypts the plaintext using a fresh random 24-byte nonce
// and returns the nonce alongside the ciphertext. Nonces are never reused.
func (x *XChaCha) Seal(plaintext []byte) (nonce, ciphertext []byte, _ error) {
	if x == nil {
		return nil, nil, ErrNilXChaCha
	}

	nonce, err := RandBytes(NonceSizeX)
	if err != nil {
		return nil, nil, err
	}

	return nonce, x.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts the ciphertext using the given nonce.
//
// A failed tag verification is reported as [vaulterrors.ErrAuthFailed]
// without disclosing which bytes diverged.
func (x *XChaCha) Open(nonce, ciphertext []byte) ([]byte, error) {
	if x == nil {
		return nil, ErrNilXChaCha
	}

	if len(nonce) != NonceSizeX {
		return nil, fmt.Errorf("%w: bad nonce length", vaulterrors.ErrAuthFailed)
	}

	plaintext, err := x.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, vaulterrors.ErrAuthFailed
	}

	return plaintext, nil
}

// AEAD returns the underlying cipher.AEAD instance.
func (x *XChaCha) AEAD() cipher.AEAD {
	return x.aead
}
