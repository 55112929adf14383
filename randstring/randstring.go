// Package randstring generates cryptographically secure random passwords
// with guaranteed character-class coverage.
package randstring

import (
	"fmt"

	"github.com/fam007e/securepass/vaultcrypto"
	"github.com/fam007e/securepass/vaulterrors"
)

const (
	lower   = "abcdefghijklmnopqrstuvwxyz"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!@#$%^&*()"

	// extendedSymbols is only reachable through [New] (via defaultAlphabet);
	// policy-based generation sticks to the fixed symbol set.
	extendedSymbols = "~`!@#$%^&*()_-+={[}]|\\:;\"'<,>.?/"

	defaultAlphabet = digits + upper + lower + extendedSymbols

	// MinLength is the smallest accepted password length.
	MinLength = 4
)

// PasswordPolicy selects which character classes a generated password
// must contain. Lowercase letters are always included.
type PasswordPolicy struct {
	Length  int  // Total password length.
	Upper   bool // Include at least one uppercase letter.
	Digits  bool // Include at least one digit.
	Symbols bool // Include at least one symbol from "!@#$%^&*()".
}

// DefaultPasswordPolicy is used when the caller does not specify one.
var DefaultPasswordPolicy = PasswordPolicy{
	Length:  16,
	Upper:   true,
	Digits:  true,
	Symbols: true,
}

// New returns a securely generated random string of the given length
// drawn from the full default alphabet.
func New(n int) (string, error) {
	return generateRandomString(n, defaultAlphabet)
}

// NewWithAlphabet returns a securely generated random string using the provided alphabet.
func NewWithAlphabet(n int, alphabet string) (string, error) {
	return generateRandomString(n, alphabet)
}

// NewWithPolicy generates a random password that satisfies the given
// [PasswordPolicy]:
//
//  1. the effective pool is the union of the enabled class alphabets,
//  2. one character is drawn from every enabled class,
//  3. remaining positions are filled from the pool,
//  4. the buffer is shuffled with an unbiased Fisher-Yates pass.
//
// Every enabled class is therefore represented at least once.
func NewWithPolicy(p PasswordPolicy) (string, error) {
	classes := []string{lower}
	if p.Upper {
		classes = append(classes, upper)
	}

	if p.Digits {
		classes = append(classes, digits)
	}

	if p.Symbols {
		classes = append(classes, symbols)
	}

	if p.Length < MinLength {
		return "", fmt.Errorf("%w: length %d is below the minimum of %d",
			vaulterrors.ErrInvalidPolicy, p.Length, MinLength)
	}

	if p.Length < len(classes) {
		return "", fmt.Errorf("%w: length %d cannot cover %d character classes",
			vaulterrors.ErrInvalidPolicy, p.Length, len(classes))
	}

	pool := ""
	for _, c := range classes {
		pool += c
	}

	buf := make([]byte, 0, p.Length)

	for _, c := range classes {
		ch, err := drawFrom(c)
		if err != nil {
			return "", err
		}

		buf = append(buf, ch)
	}

	for len(buf) < p.Length {
		ch, err := drawFrom(pool)
		if err != nil {
			return "", err
		}

		buf = append(buf, ch)
	}

	if err := shuffle(buf); err != nil {
		return "", err
	}

	return string(buf), nil
}

func drawFrom(alphabet string) (byte, error) {
	i, err := vaultcrypto.Uint32n(uint32(len(alphabet)))
	if err != nil {
		return 0, err
	}

	return alphabet[i], nil
}

// generateRandomString returns a cryptographically secure random string using the given alphabet.
// It will return an error if the system's secure random
// number generator fails to function correctly.
func generateRandomString(n int, alphabet string) (string, error) {
	if n <= 0 {
		return "", fmt.Errorf("%w: length must be greater than 0", vaulterrors.ErrInvalidPolicy)
	}

	if len(alphabet) == 0 {
		return "", fmt.Errorf("%w: alphabet must not be empty", vaulterrors.ErrInvalidPolicy)
	}

	ret := make([]byte, n)
	for i := range n {
		ch, err := drawFrom(alphabet)
		if err != nil {
			return "", err
		}

		ret[i] = ch
	}

	return string(ret), nil
}

// shuffle shuffles the given slice using the Fisher-Yates shuffle algorithm
// https://en.wikipedia.org/wiki/Fisher%E2%80%93Yates_shuffle
func shuffle(bs []byte) error {
	for i := len(bs) - 1; i > 0; i-- {
		j, err := vaultcrypto.Uint32n(uint32(i + 1))
		if err != nil {
			return err
		}

		bs[i], bs[j] = bs[j], bs[i]
	}

	return nil
}
