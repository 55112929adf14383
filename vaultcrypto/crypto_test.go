package vaultcrypto_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fam007e/securepass/vaultcrypto"
	"github.com/fam007e/securepass/vaulterrors"
)

func mustRandKey(t *testing.T) []byte {
	t.Helper()

	key, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		t.Fatalf("rand key: %v", err)
	}

	return key
}

func TestXChaCha_RoundTrip(t *testing.T) {
	cipher, err := vaultcrypto.NewXChaCha(mustRandKey(t))
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	plaintext := []byte("correct horse battery staple")

	nonce, ciphertext, err := cipher.Seal(plaintext)
	if err != nil {
		t.Fatalf("seal: %v", err)
	}

	if got, want := len(nonce), vaultcrypto.NonceSizeX; got != want {
		t.Fatalf("nonce length = %d, want %d", got, want)
	}

	decrypted, err := cipher.Open(nonce, ciphertext)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("round trip mismatch: got=%q, want=%q", decrypted, plaintext)
	}
}

func TestXChaCha_FreshNoncePerSeal(t *testing.T) {
	cipher, err := vaultcrypto.NewXChaCha(mustRandKey(t))
	if err != nil {
		t.Fatalf("new cipher: %v", err)
	}

	n1, _, err := cipher.Seal([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	n2, _, err := cipher.Seal([]byte("x"))
	if err != nil {
		t.Fatal(err)
	}

	if bytes.Equal(n1, n2) {
		t.Error("nonce reused across Seal calls")
	}
}

func TestXChaCha_WrongKey(t *testing.T) {
	cipher, err := vaultcrypto.NewXChaCha(mustRandKey(t))
	if err != nil {
		t.Fatal(err)
	}

	other, err := vaultcrypto.NewXChaCha(mustRandKey(t))
	if err != nil {
		t.Fatal(err)
	}

	nonce, ciphertext, err := cipher.Seal([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := other.Open(nonce, ciphertext); !errors.Is(err, vaulterrors.ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestXChaCha_TamperedCiphertext(t *testing.T) {
	cipher, err := vaultcrypto.NewXChaCha(mustRandKey(t))
	if err != nil {
		t.Fatal(err)
	}

	nonce, ciphertext, err := cipher.Seal([]byte("secret"))
	if err != nil {
		t.Fatal(err)
	}

	ciphertext[0] ^= 0x01

	if _, err := cipher.Open(nonce, ciphertext); !errors.Is(err, vaulterrors.ErrAuthFailed) {
		t.Errorf("expected ErrAuthFailed, got %v", err)
	}
}

func TestSealOpenField(t *testing.T) {
	cipher, err := vaultcrypto.NewXChaCha(mustRandKey(t))
	if err != nil {
		t.Fatal(err)
	}

	blob, err := vaultcrypto.SealField(cipher, []byte("hunter2"))
	if err != nil {
		t.Fatal(err)
	}

	got, err := vaultcrypto.OpenField(cipher, blob)
	if err != nil {
		t.Fatal(err)
	}

	if string(got) != "hunter2" {
		t.Errorf("field round trip mismatch: got=%q", got)
	}
}

func TestDecodeBlob_Corrupt(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid base64", input: "!!not-base64!!"},
		{name: "truncated", input: "c2hvcnQ="},
		{name: "empty", input: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := vaultcrypto.DecodeBlob(tt.input, vaultcrypto.NonceSizeX)
			if !errors.Is(err, vaulterrors.ErrCorrupt) {
				t.Errorf("expected ErrCorrupt, got %v", err)
			}
		})
	}
}

func TestArgon2idKDF_Deterministic(t *testing.T) {
	salt := make([]byte, vaultcrypto.SaltSize)

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(salt))

	k1 := kdf.Derive([]byte("alpha"))
	k2 := kdf.Derive([]byte("alpha"))

	if !bytes.Equal(k1, k2) {
		t.Error("derivation is not deterministic for identical inputs")
	}

	if got, want := len(k1), vaultcrypto.KeySize; got != want {
		t.Errorf("key length = %d, want %d", got, want)
	}
}

func TestArgon2idKDF_SaltSensitivity(t *testing.T) {
	salt1, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		t.Fatal(err)
	}

	salt2, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		t.Fatal(err)
	}

	k1 := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(salt1)).Derive([]byte("alpha"))
	k2 := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(salt2)).Derive([]byte("alpha"))

	if bytes.Equal(k1, k2) {
		t.Error("different salts produced identical keys")
	}
}

func TestUint32n(t *testing.T) {
	if _, err := vaultcrypto.Uint32n(0); err == nil {
		t.Error("expected error for zero upper bound")
	}

	for _, n := range []uint32{1, 2, 10, 26, 1000} {
		for range 100 {
			v, err := vaultcrypto.Uint32n(n)
			if err != nil {
				t.Fatalf("uint32n(%d): %v", n, err)
			}

			if v >= n {
				t.Fatalf("uint32n(%d) = %d, out of range", n, v)
			}
		}
	}
}

func TestRandBytes(t *testing.T) {
	b1, err := vaultcrypto.RandBytes(32)
	if err != nil {
		t.Fatal(err)
	}

	b2, err := vaultcrypto.RandBytes(32)
	if err != nil {
		t.Fatal(err)
	}

	if len(b1) != 32 || len(b2) != 32 {
		t.Fatalf("unexpected lengths: %d, %d", len(b1), len(b2))
	}

	if bytes.Equal(b1, b2) {
		t.Error("two independent reads produced identical bytes")
	}
}
