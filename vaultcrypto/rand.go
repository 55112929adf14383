package vaultcrypto

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/fam007e/securepass/vaulterrors"
)

// entropyReadRetries bounds how many entropy reads are attempted in
// total before the failure is reported as fatal.
const entropyReadRetries = 3

// RandBytes generates a slice of cryptographically secure
// random bytes of the specified length.
func RandBytes(length int) ([]byte, error) {
	b := make([]byte, length)
	if err := fill(b); err != nil {
		return nil, err
	}

	return b, nil
}

// Fill overwrites b with cryptographically secure random bytes.
func Fill(b []byte) error {
	return fill(b)
}

func fill(b []byte) error {
	var err error
	for range entropyReadRetries {
		if _, err = io.ReadFull(rand.Reader, b); err == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %v", vaulterrors.ErrEntropyFailure, err)
}

// Uint32n returns a uniformly distributed random uint32 in [0, n).
// Bias is avoided by rejection sampling over the largest multiple
// of n that fits in a uint32.
func Uint32n(n uint32) (uint32, error) {
	if n == 0 {
		return 0, fmt.Errorf("uint32n: upper bound must be positive")
	}

	// Largest multiple of n representable in 32 bits.
	limit := (1 << 32) - (1<<32)%uint64(n)

	var buf [4]byte

	for {
		if err := fill(buf[:]); err != nil {
			return 0, err
		}

		v := binary.BigEndian.Uint32(buf[:])
		if uint64(v) < limit {
			return v % n, nil
		}
	}
}
