package totp_test

import (
	"errors"
	"testing"

	"github.com/fam007e/securepass/totp"
	"github.com/fam007e/securepass/vaulterrors"
)

// rfcSeed is the ASCII "12345678901234567890" key from RFC 6238 appendix B.
const rfcSeed = "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ"

func TestCodeAt_RFC6238Vectors(t *testing.T) {
	tests := []struct {
		time int64
		want string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
		{20000000000, "353130"},
	}

	for _, tt := range tests {
		got, err := totp.CodeAt(rfcSeed, tt.time)
		if err != nil {
			t.Fatalf("CodeAt(%d): unexpected error: %v", tt.time, err)
		}

		if got != tt.want {
			t.Errorf("CodeAt(%d) = %q, want %q", tt.time, got, tt.want)
		}
	}
}

func TestCodeAt_SeedNormalization(t *testing.T) {
	variants := []string{
		rfcSeed,
		"gezdgnbvgy3tqojqgezdgnbvgy3tqojq",
		"GEZD GNBV GY3T QOJQ GEZD GNBV GY3T QOJQ",
		rfcSeed + "====",
	}

	for _, seed := range variants {
		got, err := totp.CodeAt(seed, 59)
		if err != nil {
			t.Fatalf("CodeAt(%q): unexpected error: %v", seed, err)
		}

		if got != "287082" {
			t.Errorf("CodeAt(%q) = %q, want %q", seed, got, "287082")
		}
	}
}

func TestCodeAt_InvalidSeed(t *testing.T) {
	tests := []struct {
		name string
		seed string
	}{
		{name: "empty", seed: ""},
		{name: "whitespace only", seed: "  \t"},
		{name: "invalid alphabet", seed: "not!valid@base32"},
		{name: "digits outside alphabet", seed: "1890"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := totp.CodeAt(tt.seed, 59); !errors.Is(err, vaulterrors.ErrInvalidSecret) {
				t.Errorf("expected ErrInvalidSecret, got %v", err)
			}
		})
	}
}

func TestCodeAt_FixedPeriod(t *testing.T) {
	// codes are stable within one 30-second step
	c1, err := totp.CodeAt(rfcSeed, 30)
	if err != nil {
		t.Fatal(err)
	}

	c2, err := totp.CodeAt(rfcSeed, 59)
	if err != nil {
		t.Fatal(err)
	}

	if c1 != c2 {
		t.Errorf("codes differ within one period: %q vs %q", c1, c2)
	}

	c3, err := totp.CodeAt(rfcSeed, 60)
	if err != nil {
		t.Fatal(err)
	}

	if c2 == c3 {
		t.Errorf("codes identical across period boundary: %q", c2)
	}
}

func TestDecodeSecret(t *testing.T) {
	got, err := totp.DecodeSecret(rfcSeed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if string(got) != "12345678901234567890" {
		t.Errorf("decoded seed = %q, want %q", got, "12345678901234567890")
	}
}
