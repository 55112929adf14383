package vault_test

import (
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/fam007e/securepass/vault"
	"github.com/fam007e/securepass/vaultcrypto"
	"github.com/fam007e/securepass/vaulterrors"
)

// legacySchema is the entry-table layout written before the totp_secret
// and recovery_codes columns existed.
const legacySchema = `
CREATE TABLE vault_meta (
    name TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    service TEXT NOT NULL,
    username TEXT NOT NULL DEFAULT '',
    password TEXT NOT NULL
);
`

// writeLegacyVault builds a vault file in the PBKDF2 + AES-GCM lineage.
func writeLegacyVault(t *testing.T, path, passphrase string, services map[string]string) {
	t.Helper()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open legacy db: %v", err)
	}
	defer func() { _ = db.Close() }() //nolint:wsl

	if _, err := db.Exec(legacySchema); err != nil {
		t.Fatalf("create legacy schema: %v", err)
	}

	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		t.Fatal(err)
	}

	phc := vaultcrypto.PBKDF2PHC{Iterations: 1_000, Salt: salt}

	gcm, err := vaultcrypto.NewAESGCM(vaultcrypto.DerivePBKDF2([]byte(passphrase), phc))
	if err != nil {
		t.Fatal(err)
	}

	sealLegacy := func(plaintext string) string {
		blobSalt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
		if err != nil {
			t.Fatal(err)
		}

		nonce, err := vaultcrypto.RandBytes(vaultcrypto.NonceSizeGCM)
		if err != nil {
			t.Fatal(err)
		}

		ciphertext, err := gcm.Seal(nonce, []byte(plaintext))
		if err != nil {
			t.Fatal(err)
		}

		return vaultcrypto.EncodeBlob(blobSalt, nonce, ciphertext)
	}

	meta := map[string]string{
		"kdf":      phc.String(),
		"aead":     "aesgcm",
		"verifier": sealLegacy("securepass.verifier.v2"),
	}

	for name, value := range meta {
		if _, err := db.Exec("INSERT INTO vault_meta (name, value) VALUES (?, ?)", name, value); err != nil {
			t.Fatalf("write meta %s: %v", name, err)
		}
	}

	for service, password := range services {
		if _, err := db.Exec(
			"INSERT INTO entries (service, username, password) VALUES (?, ?, ?)",
			service, "user", sealLegacy(password),
		); err != nil {
			t.Fatalf("write legacy entry: %v", err)
		}
	}
}

func TestMigrator_LegacyVaultIsReEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	writeLegacyVault(t, path, "legacy_pass", map[string]string{
		"old-service": "old-password",
	})

	v, err := vault.Open(t.Context(), path, []byte("legacy_pass"))
	if err != nil {
		t.Fatalf("open legacy vault: %v", err)
	}
	defer func() { _ = v.Close() }() //nolint:wsl

	entries, err := v.Entries(t.Context())
	if err != nil {
		t.Fatalf("list migrated entries: %v", err)
	}

	want := []vault.Entry{{
		ID:       1,
		Service:  "old-service",
		Username: "user",
		Password: "old-password",
	}}

	if diff := cmp.Diff(want, entries); diff != "" {
		t.Errorf("migrated entries mismatch (-want +got):\n%s", diff)
	}

	// migrated layout carries the new columns
	if err := v.Update(t.Context(), 1, vault.Fields{
		Service:       "old-service",
		Username:      "user",
		Password:      "old-password",
		TotpSecret:    "JBSWY3DPEHPK3PXP",
		RecoveryCodes: "C1",
	}); err != nil {
		t.Fatalf("update migrated entry: %v", err)
	}

	if err := v.Close(); err != nil {
		t.Fatal(err)
	}

	// reopening runs the migrator again; it must be a no-op
	v2, err := vault.Open(t.Context(), path, []byte("legacy_pass"))
	if err != nil {
		t.Fatalf("reopen migrated vault: %v", err)
	}
	defer func() { _ = v2.Close() }() //nolint:wsl

	e, err := v2.Entry(t.Context(), 1)
	if err != nil {
		t.Fatal(err)
	}

	if e.TotpSecret != "JBSWY3DPEHPK3PXP" {
		t.Errorf("totp seed lost across reopen: %+v", e)
	}
}

func TestMigrator_WrongPassphraseLeavesOriginalIntact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")

	writeLegacyVault(t, path, "legacy_pass", map[string]string{
		"old-service": "old-password",
	})

	if _, err := vault.Open(t.Context(), path, []byte("wrong")); !errors.Is(err, vaulterrors.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}

	// no temp file left behind
	if _, err := vault.Open(t.Context(), path+".migrate", []byte("x")); !errors.Is(err, vaulterrors.ErrVaultFileNotFound) {
		t.Errorf("migration temp file left behind")
	}

	// the original still opens with the correct passphrase
	v, err := vault.Open(t.Context(), path, []byte("legacy_pass"))
	if err != nil {
		t.Fatalf("original vault damaged: %v", err)
	}

	_ = v.Close()
}

func TestMigrator_CurrentVaultIsUntouched(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vault.db")

	v, err := vault.Open(t.Context(), path, []byte("pw"), vault.WithCreate(true))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := v.Add(t.Context(), vault.Fields{Service: "svc", Password: "pw"}); err != nil {
		t.Fatal(err)
	}

	if err := v.Close(); err != nil {
		t.Fatal(err)
	}

	v2, err := vault.Open(t.Context(), path, []byte("pw"))
	if err != nil {
		t.Fatalf("reopen current vault: %v", err)
	}
	defer func() { _ = v2.Close() }() //nolint:wsl

	entries, err := v2.Entries(t.Context())
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 1 {
		t.Errorf("expected 1 entry, got %d", len(entries))
	}
}
