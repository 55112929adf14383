package vaultcrypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// DefaultPBKDF2Iterations matches the iteration count legacy vaults
// were written with.
const DefaultPBKDF2Iterations = 100_000

// DerivePBKDF2 derives a 32-byte key using PBKDF2-SHA256.
//
// Legacy use only: new vaults always derive with Argon2id, and the
// migrator rewrites PBKDF2 vaults on first open.
func DerivePBKDF2(passphrase []byte, phc PBKDF2PHC) []byte {
	return pbkdf2.Key(passphrase, phc.Salt, phc.Iterations, KeySize, sha256.New)
}
