package vaultcrypto

import (
	"encoding/base64"

	"github.com/fam007e/securepass/vaulterrors"
)

// blobEncoding is the storage encoding for encrypted field blobs:
// standard base64 without newlines.
var blobEncoding = base64.StdEncoding

// Blob is the decoded form of an encrypted field:
// salt(16) || nonce || ciphertext||tag.
//
// The salt field is retained from the legacy per-blob-KDF layout; the
// current codec fills it with random bytes and ignores it when opening,
// since the session key comes from the vault-level KDF block.
type Blob struct {
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// EncodeBlob serializes salt, nonce and ciphertext into the base64
// storage form.
func EncodeBlob(salt, nonce, ciphertext []byte) string {
	raw := make([]byte, 0, len(salt)+len(nonce)+len(ciphertext))
	raw = append(raw, salt...)
	raw = append(raw, nonce...)
	raw = append(raw, ciphertext...)

	return blobEncoding.EncodeToString(raw)
}

// DecodeBlob parses the base64 storage form of an encrypted field.
// nonceSize selects the AEAD lineage: [NonceSizeX] for current blobs,
// [NonceSizeGCM] for legacy AES-GCM blobs.
//
// Invalid base64 or a buffer too short to hold salt, nonce and tag is
// reported as [vaulterrors.ErrCorrupt].
func DecodeBlob(encoded string, nonceSize int) (Blob, error) {
	raw, err := blobEncoding.DecodeString(encoded)
	if err != nil {
		return Blob{}, corruptf("blob decode: invalid base64: %v", err)
	}

	if len(raw) < SaltSize+nonceSize+TagSize {
		return Blob{}, corruptf("blob decode: truncated blob: %d bytes", len(raw))
	}

	return Blob{
		Salt:       raw[:SaltSize],
		Nonce:      raw[SaltSize : SaltSize+nonceSize],
		Ciphertext: raw[SaltSize+nonceSize:],
	}, nil
}

// SealField encrypts a plaintext field under the session cipher and
// returns the base64 storage form.
func SealField(x *XChaCha, plaintext []byte) (string, error) {
	salt, err := RandBytes(SaltSize)
	if err != nil {
		return "", err
	}

	nonce, ciphertext, err := x.Seal(plaintext)
	if err != nil {
		return "", err
	}

	return EncodeBlob(salt, nonce, ciphertext), nil
}

// OpenField decrypts the base64 storage form of a field sealed by [SealField].
func OpenField(x *XChaCha, encoded string) ([]byte, error) {
	blob, err := DecodeBlob(encoded, NonceSizeX)
	if err != nil {
		return nil, err
	}

	return x.Open(blob.Nonce, blob.Ciphertext)
}
