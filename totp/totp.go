// Package totp implements RFC 6238 time-based one-time passwords over
// RFC 4226 HOTP with HMAC-SHA1, including the base32 seed decoding shared
// by every caller.
package totp

import (
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // mandated by RFC 6238 for TOTP
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/fam007e/securepass/secmem"
	"github.com/fam007e/securepass/vaulterrors"
)

const (
	// Period is the fixed TOTP time step in seconds.
	Period = 30

	// Digits is the fixed code length.
	Digits = 6
)

// Code generates the 6-digit code for the base32-encoded seed at the
// current wall time.
func Code(secret string) (string, error) {
	return CodeAt(secret, time.Now().Unix())
}

// CodeAt generates the 6-digit code for the base32-encoded seed at the
// given unix timestamp. A caller-supplied timestamp keeps code generation
// deterministic for tests.
func CodeAt(secret string, unixTime int64) (string, error) {
	key, err := DecodeSecret(secret)
	if err != nil {
		return "", err
	}
	defer secmem.Wipe(key)

	var msg [8]byte

	counter := uint64(unixTime) / Period
	binary.BigEndian.PutUint64(msg[:], counter)

	mac := hmac.New(sha1.New, key)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	// Dynamic truncation per RFC 4226 §5.3.
	offset := sum[len(sum)-1] & 0x0f
	code := binary.BigEndian.Uint32(sum[offset:offset+4]) & 0x7fffffff

	return fmt.Sprintf("%06d", code%1_000_000), nil
}

// DecodeSecret decodes a base32 seed. Input is case-insensitive; padding
// and whitespace are ignored. Empty or malformed input is reported as
// [vaulterrors.ErrInvalidSecret].
func DecodeSecret(secret string) ([]byte, error) {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '=':
			return -1
		default:
			return r
		}
	}, strings.ToUpper(secret))

	if len(normalized) == 0 {
		return nil, fmt.Errorf("%w: empty seed", vaulterrors.ErrInvalidSecret)
	}

	key, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(normalized)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vaulterrors.ErrInvalidSecret, err)
	}

	if len(key) == 0 {
		return nil, fmt.Errorf("%w: zero-length seed", vaulterrors.ErrInvalidSecret)
	}

	return key, nil
}
