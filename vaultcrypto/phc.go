package vaultcrypto

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/fam007e/securepass/vaulterrors"
)

// b64 is the base64 encoding used for PHC-formatted strings,
// with padding omitted as required by the specification.
var b64 = base64.StdEncoding.WithPadding(base64.NoPadding)

// Argon2idPHC represents a PHC-formatted Argon2id string.
//
// https://github.com/P-H-C/phc-string-format/blob/master/phc-sf-spec.md
type Argon2idPHC struct {
	Argon2Params

	Version int
	Salt    []byte
	Hash    []byte
}

// String returns the PHC-formatted string representation.
func (a Argon2idPHC) String() string {
	phc := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s",
		a.Version, a.Memory, a.Time, a.Parallelism,
		b64.EncodeToString(a.Salt),
	)

	if len(a.Hash) > 0 {
		phc += "$" + b64.EncodeToString(a.Hash)
	}

	return phc
}

// DecodeArgon2idPHC parses a PHC-formatted Argon2id string into an [Argon2idPHC] struct.
// It returns [vaulterrors.ErrCorrupt] if the format is invalid or any component
// cannot be decoded.
func DecodeArgon2idPHC(str string) (Argon2idPHC, error) {
	parts := strings.Split(str, "$")

	if len(parts) < 5 {
		return Argon2idPHC{}, corruptf("phc decode: expected at least 5 fields got %d", len(parts))
	}

	identifier, params, saltB64, hashB64 := parts[1], parts[3], parts[4], ""

	if identifier != "argon2id" {
		return Argon2idPHC{}, corruptf("phc decode: unsupported algorithm: %s", identifier)
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return Argon2idPHC{}, corruptf("phc decode: invalid version format: %v", err)
	}

	switch version {
	case 16, 19: // supported
	default:
		return Argon2idPHC{}, corruptf("phc decode: unsupported version: %d", version)
	}

	if len(parts) > 5 {
		hashB64 = parts[5]
	}

	var (
		m, t uint32
		p    uint8
	)

	_, err := fmt.Sscanf(params, "m=%d,t=%d,p=%d", &m, &t, &p)
	if err != nil {
		return Argon2idPHC{}, corruptf("phc decode: invalid parameters: %v", err)
	}

	salt, err := b64.DecodeString(saltB64)
	if err != nil {
		return Argon2idPHC{}, corruptf("phc decode: invalid salt encoding: %v", err)
	}

	var hash []byte
	if len(hashB64) > 0 {
		hash, err = b64.DecodeString(hashB64)
		if err != nil {
			return Argon2idPHC{}, corruptf("phc decode: invalid hash encoding: %v", err)
		}
	}

	return Argon2idPHC{
		Version: version,
		Argon2Params: Argon2Params{
			Memory:      m,
			Time:        t,
			Parallelism: p,
		},
		Salt: salt,
		Hash: hash,
	}, nil
}

// PBKDF2PHC represents a PHC-formatted PBKDF2-SHA256 string, the
// parameter block written by legacy vaults.
type PBKDF2PHC struct {
	Iterations int
	Salt       []byte
}

// String returns the PHC-formatted string representation.
func (p PBKDF2PHC) String() string {
	return fmt.Sprintf("$pbkdf2-sha256$i=%d$%s", p.Iterations, b64.EncodeToString(p.Salt))
}

// DecodePBKDF2PHC parses a PHC-formatted PBKDF2-SHA256 string.
// It returns [vaulterrors.ErrCorrupt] on malformed input.
func DecodePBKDF2PHC(str string) (PBKDF2PHC, error) {
	parts := strings.Split(str, "$")

	if len(parts) < 4 {
		return PBKDF2PHC{}, corruptf("phc decode: expected at least 4 fields got %d", len(parts))
	}

	if parts[1] != "pbkdf2-sha256" {
		return PBKDF2PHC{}, corruptf("phc decode: unsupported algorithm: %s", parts[1])
	}

	var iterations int
	if _, err := fmt.Sscanf(parts[2], "i=%d", &iterations); err != nil {
		return PBKDF2PHC{}, corruptf("phc decode: invalid iteration format: %v", err)
	}

	if iterations <= 0 {
		return PBKDF2PHC{}, corruptf("phc decode: invalid iteration count: %d", iterations)
	}

	salt, err := b64.DecodeString(parts[3])
	if err != nil {
		return PBKDF2PHC{}, corruptf("phc decode: invalid salt encoding: %v", err)
	}

	return PBKDF2PHC{Iterations: iterations, Salt: salt}, nil
}

func corruptf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{vaulterrors.ErrCorrupt}, a...)...)
}
