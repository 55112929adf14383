package vault

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/fam007e/securepass/secmem"
	"github.com/fam007e/securepass/vault/sqlite/vaultdb"
	"github.com/fam007e/securepass/vaultcrypto"
	"github.com/fam007e/securepass/vaulterrors"

	"github.com/ladzaretti/migrate"
	"github.com/ladzaretti/migrate/types"
)

// legacyKDFPrefix marks the parameter block written by PBKDF2 vaults.
const legacyKDFPrefix = "$pbkdf2-sha256$"

// migrateTempSuffix names the sibling file the cipher migrator writes
// before atomically renaming it over the original.
const migrateTempSuffix = ".migrate"

// migrateSchema brings the schema of an open vault up to date.
//
// Legacy layouts that predate the totp_secret and recovery_codes columns
// are ALTERed in place before the embedded migration chain is applied.
// Re-running on a current vault is a no-op.
func migrateSchema(ctx context.Context, conn types.DBTX, store *vaultdb.VaultDB) error {
	if err := ensureEntryColumns(ctx, store); err != nil {
		return err
	}

	m := migrate.New(conn, migrate.SQLiteDialect{})

	if _, err := m.ApplyContext(ctx, vaultMigrations); err != nil {
		return err
	}

	return nil
}

// ensureEntryColumns adds columns missing from legacy entry tables,
// defaulting them to empty.
func ensureEntryColumns(ctx context.Context, store *vaultdb.VaultDB) error {
	ok, err := store.HasTable(ctx, "entries")
	if err != nil {
		return err
	}

	if !ok {
		return nil
	}

	cols, err := store.Columns(ctx, "entries")
	if err != nil {
		return err
	}

	present := make(map[string]bool, len(cols))
	for _, c := range cols {
		present[c] = true
	}

	for _, col := range []string{"totp_secret", "recovery_codes"} {
		if present[col] {
			continue
		}

		if err := store.AddColumn(ctx, "entries", col); err != nil {
			return err
		}
	}

	return nil
}

// migrateCipherIfLegacy detects vaults written by the legacy KDF (PBKDF2)
// or legacy AEAD (AES-GCM) lineages and re-encrypts them under Argon2id +
// XChaCha20-Poly1305 with a fresh salt.
//
// The migrated database is written to a sibling temp path and renamed
// over the original only after every entry has been re-encrypted; any
// failure leaves the original file intact and the vault unopened.
// Running against a current vault is a no-op.
func migrateCipherIfLegacy(ctx context.Context, path string, passphrase []byte, logger zerolog.Logger) (migrated bool, retErr error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}

	var cleanupFuncs []cleanupFunc
	defer func() { //nolint:wsl
		retErr = errors.Join(retErr, executeCleanup(cleanupFuncs))
	}()

	conn, err := openConn(ctx, path, &cleanupFuncs)
	if err != nil {
		return false, err
	}

	store := vaultdb.New(conn)

	hasMeta, err := store.HasTable(ctx, "vault_meta")
	if err != nil {
		return false, ioErrf("inspect vault: %v", err)
	}

	if !hasMeta {
		return false, nil
	}

	kdfPHC, err := store.Meta(ctx, metaKDF)
	if err != nil {
		return false, ioErrf("read kdf block: %v", err)
	}

	aead, err := store.Meta(ctx, metaAEAD)
	if err != nil {
		return false, ioErrf("read aead marker: %v", err)
	}

	legacyKDF := strings.HasPrefix(kdfPHC, legacyKDFPrefix)
	legacyAEAD := aead == aeadAESGCM

	if len(kdfPHC) == 0 || (!legacyKDF && !legacyAEAD) {
		return false, nil
	}

	logger.Debug().Str("path", path).Bool("legacy_kdf", legacyKDF).Bool("legacy_aead", legacyAEAD).
		Msg("legacy vault detected")

	key, err := deriveLegacyKey(kdfPHC, passphrase)
	if err != nil {
		return false, err
	}
	defer key.Destroy()

	gcm, err := vaultcrypto.NewAESGCM(key.Bytes())
	if err != nil {
		return false, cryptoErrf("init legacy cipher: %v", err)
	}

	verifier, err := store.Meta(ctx, metaVerifier)
	if err != nil {
		return false, ioErrf("read verifier: %v", err)
	}

	magic, err := openLegacyField(gcm, verifier)
	if err != nil || !secmem.Equal(magic, []byte(verifierMagic)) {
		return false, vaulterrors.ErrAuthFailed
	}

	secmem.Wipe(magic)

	if err := ensureEntryColumns(ctx, store); err != nil {
		return false, ioErrf("migrate columns: %v", err)
	}

	rows, err := store.Entries(ctx)
	if err != nil {
		return false, ioErrf("read entries: %v", err)
	}

	entries := make([]Entry, 0, len(rows))

	for _, row := range rows {
		e, err := openLegacyRow(gcm, row)
		if err != nil {
			return false, fmt.Errorf("decrypt entry %d: %w", row.ID, err)
		}

		entries = append(entries, e)
	}

	tempPath := path + migrateTempSuffix
	if err := writeMigratedVault(ctx, tempPath, passphrase, entries); err != nil {
		_ = os.Remove(tempPath)
		return false, err
	}

	// release the legacy handle before the swap
	if err := executeCleanup(cleanupFuncs); err != nil {
		_ = os.Remove(tempPath)
		return false, ioErrf("close legacy vault: %v", err)
	}

	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return false, ioErrf("swap migrated vault: %v", err)
	}

	return true, nil
}

// writeMigratedVault creates a fresh vault file at tempPath holding the
// given entries re-encrypted under a new Argon2id key.
func writeMigratedVault(ctx context.Context, tempPath string, passphrase []byte, entries []Entry) (retErr error) {
	_ = os.Remove(tempPath)

	var cleanupFuncs []cleanupFunc
	defer func() { //nolint:wsl
		retErr = errors.Join(retErr, executeCleanup(cleanupFuncs))
	}()

	conn, err := openConn(ctx, tempPath, &cleanupFuncs)
	if err != nil {
		return err
	}

	store := vaultdb.New(conn)

	if err := migrateSchema(ctx, conn, store); err != nil {
		return ioErrf("migrated vault schema: %v", err)
	}

	vlt := &Vault{Path: tempPath, conn: conn, store: store, logger: zerolog.Nop()}
	if err := vlt.initialize(ctx, passphrase); err != nil {
		return err
	}
	defer vlt.key.Destroy() //nolint:wsl

	for _, e := range entries {
		row, err := sealRow(vlt.cipher, e)
		if err != nil {
			return err
		}

		if err := store.InsertEntryWithID(ctx, row); err != nil {
			return ioErrf("re-insert entry %d: %v", e.ID, err)
		}
	}

	return nil
}

// deriveLegacyKey derives the vault key from a legacy parameter block,
// PBKDF2-SHA256 or Argon2id depending on the lineage.
func deriveLegacyKey(kdfPHC string, passphrase []byte) (*secmem.Buffer, error) {
	if strings.HasPrefix(kdfPHC, legacyKDFPrefix) {
		phc, err := vaultcrypto.DecodePBKDF2PHC(kdfPHC)
		if err != nil {
			return nil, err
		}

		return secmem.From(vaultcrypto.DerivePBKDF2(passphrase, phc)), nil
	}

	phc, err := vaultcrypto.DecodeArgon2idPHC(kdfPHC)
	if err != nil {
		return nil, err
	}

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithPHC(phc))

	return secmem.From(kdf.Derive(passphrase)), nil
}

// openLegacyRow decrypts the secret-bearing columns of a legacy AES-GCM row.
func openLegacyRow(gcm *vaultcrypto.AESGCM, row vaultdb.EntryRow) (Entry, error) {
	e := Entry{
		ID:       row.ID,
		Service:  row.Service,
		Username: row.Username,
	}

	opened := []struct {
		dst  *string
		blob string
	}{
		{&e.Password, row.Password},
		{&e.TotpSecret, row.TotpSecret},
		{&e.RecoveryCodes, row.RecoveryCodes},
	}

	for _, o := range opened {
		if len(o.blob) == 0 {
			continue
		}

		plaintext, err := openLegacyField(gcm, o.blob)
		if err != nil {
			return Entry{}, err
		}

		*o.dst = string(plaintext)

		secmem.Wipe(plaintext)
	}

	return e, nil
}

func openLegacyField(gcm *vaultcrypto.AESGCM, encoded string) ([]byte, error) {
	blob, err := vaultcrypto.DecodeBlob(encoded, vaultcrypto.NonceSizeGCM)
	if err != nil {
		return nil, err
	}

	return gcm.Open(blob.Nonce, blob.Ciphertext)
}
