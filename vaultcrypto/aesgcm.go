package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"

	"github.com/fam007e/securepass/vaulterrors"
)

// NonceSizeGCM is the nonce size in bytes for AES-GCM.
const NonceSizeGCM = 12

var ErrNilAESGCM = errors.New("AESGCM is nil")

// AESGCM wraps an [cipher.AEAD] using AES in GCM mode.
//
// It is the AEAD of the legacy vault format and is only used by the
// migrator to read blobs written before the XChaCha20-Poly1305 switch.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-GCM cipher using the provided key.
func NewAESGCM(key []byte) (*AESGCM, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{aesgcm}, nil
}

// Seal encrypts the plaintext using the given nonce.
func (g *AESGCM) Seal(nonce, plaintext []byte) ([]byte, error) {
	if g == nil {
		return nil, ErrNilAESGCM
	}

	return g.aead.Seal(nil, nonce, plaintext, nil), nil
}

// Open decrypts the ciphertext using the given nonce.
//
// A failed tag verification is reported as [vaulterrors.ErrAuthFailed].
func (g *AESGCM) Open(nonce, ciphertext []byte) ([]byte, error) {
	if g == nil {
		return nil, ErrNilAESGCM
	}

	plaintext, err := g.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, vaulterrors.ErrAuthFailed
	}

	return plaintext, nil
}
