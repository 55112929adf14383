// Package vault implements the encrypted credential store and the session
// facade consumed by the UI layers.
//
// The store is a single SQLite file. Secret-bearing columns (password,
// totp_secret, recovery_codes) hold XChaCha20-Poly1305 blobs sealed under
// a session key derived from the master passphrase via Argon2id; service
// and username are stored in plaintext so glob search stays usable.
// A dedicated verifier row authenticates the passphrase at open time.
package vault

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/fam007e/securepass/secmem"
	"github.com/fam007e/securepass/totp"
	"github.com/fam007e/securepass/vault/sqlite/vaultdb"
	"github.com/fam007e/securepass/vaultcrypto"
	"github.com/fam007e/securepass/vaulterrors"

	"github.com/ladzaretti/migrate"

	// Package sqlite is a CGo-free port of SQLite/SQLite3.
	_ "modernc.org/sqlite"
)

const pragma = `
PRAGMA temp_store = MEMORY;
PRAGMA synchronous = EXTRA;
PRAGMA foreign_keys = ON;
`

var (
	//go:embed db/migrations/sqlite/vault
	vaultFS embed.FS

	vaultMigrations = migrate.EmbeddedMigrations{
		FS:   vaultFS,
		Path: "db/migrations/sqlite/vault",
	}
)

// Vault metadata row names.
const (
	metaKDF      = "kdf"
	metaAEAD     = "aead"
	metaVerifier = "verifier"
)

// AEAD lineage markers stored in vault_meta.
const (
	aeadXChaCha = "xchacha20poly1305"
	aeadAESGCM  = "aesgcm"
)

// verifierMagic is the fixed plaintext sealed into the verifier row.
const verifierMagic = "securepass.verifier.v2"

// Field size limits in bytes; oversize input is rejected with
// [vaulterrors.ErrInvalidInput].
const (
	MaxFieldLen         = 256
	MaxRecoveryCodesLen = 2048
)

// Entry is a decrypted credential as handed to callers.
type Entry struct {
	ID            int
	Service       string
	Username      string
	Password      string
	TotpSecret    string
	RecoveryCodes string
}

// Fields are the caller-supplied attributes of an entry, without its id.
type Fields struct {
	Service       string
	Username      string
	Password      string
	TotpSecret    string
	RecoveryCodes string
}

func (f Fields) validate() error {
	if len(strings.TrimSpace(f.Service)) == 0 {
		return fmt.Errorf("%w: service must not be empty", vaulterrors.ErrInvalidInput)
	}

	limits := []struct {
		name  string
		value string
		max   int
	}{
		{"service", f.Service, MaxFieldLen},
		{"username", f.Username, MaxFieldLen},
		{"password", f.Password, MaxFieldLen},
		{"totp_secret", f.TotpSecret, MaxFieldLen},
		{"recovery_codes", f.RecoveryCodes, MaxRecoveryCodesLen},
	}

	for _, l := range limits {
		if len(l.value) > l.max {
			return fmt.Errorf("%w: %s exceeds %d bytes", vaulterrors.ErrInvalidInput, l.name, l.max)
		}

		if !utf8.ValidString(l.value) {
			return fmt.Errorf("%w: %s is not valid UTF-8", vaulterrors.ErrInvalidInput, l.name)
		}
	}

	return nil
}

type cleanupFunc func() error

// Vault is an open session: the derived key plus the database handle.
// All operations are serialized through an internal lock; the session
// owns the file exclusively until Close.
type Vault struct {
	Path string

	mu           sync.Mutex
	store        *vaultdb.VaultDB
	conn         *sql.Conn
	cipher       *vaultcrypto.XChaCha
	key          *secmem.Buffer
	logger       zerolog.Logger
	cleanupFuncs []cleanupFunc
	closeOnce    sync.Once
}

// config options for opening a [Vault].
type config struct {
	logger zerolog.Logger

	// create allows initializing a brand-new vault at the given path.
	create bool
}

type Option func(*config)

// WithLogger sets the diagnostics logger. Secrets are never logged.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithCreate allows Open to initialize a fresh vault when the file does
// not exist yet.
func WithCreate(enabled bool) Option {
	return func(c *config) {
		c.create = enabled
	}
}

// Open opens (or, with [WithCreate], initializes) the vault at path and
// authenticates the passphrase against the stored verifier.
//
// The schema migrator runs before any user-visible operation; vaults
// written by the legacy KDF/AEAD lineages are re-encrypted and atomically
// swapped before the session starts. A wrong passphrase and a tampered
// verifier are both reported as [vaulterrors.ErrAuthFailed].
func Open(ctx context.Context, path string, passphrase []byte, opts ...Option) (vlt *Vault, retErr error) {
	config := &config{logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(config)
	}

	if len(passphrase) == 0 {
		return nil, vaulterrors.ErrEmptyPassphrase
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !config.create {
		return nil, vaulterrors.ErrVaultFileNotFound
	}

	migrated, err := migrateCipherIfLegacy(ctx, path, passphrase, config.logger)
	if err != nil {
		return nil, fmt.Errorf("vault.open: cipher migration: %w", err)
	}

	if migrated {
		config.logger.Info().Str("path", path).Msg("vault migrated to current cipher lineage")
	}

	vlt = &Vault{
		Path:   path,
		logger: config.logger,
	}
	defer func() { //nolint:wsl
		if retErr != nil {
			_ = vlt.cleanup()
			return
		}
	}()

	conn, err := openConn(ctx, path, &vlt.cleanupFuncs)
	if err != nil {
		return nil, fmt.Errorf("vault.open: %w", err)
	}

	vlt.conn = conn
	vlt.store = vaultdb.New(conn)

	if err := migrateSchema(ctx, conn, vlt.store); err != nil {
		return nil, fmt.Errorf("vault.open: migrate schema: %w", err)
	}

	if err := vlt.unlock(ctx, passphrase, config.create); err != nil {
		return nil, fmt.Errorf("vault.open: %w", err)
	}

	return vlt, nil
}

// openConn opens the SQLite file and pins a single connection.
func openConn(ctx context.Context, path string, cleanupFuncs *[]cleanupFunc) (*sql.Conn, error) {
	var (
		db   *sql.DB
		conn *sql.Conn
	)

	*cleanupFuncs = append(*cleanupFuncs, func() error {
		var errs []error

		// release the pinned connection before closing the pool.
		if conn != nil {
			errs = append(errs, conn.Close())
		}

		if db != nil {
			errs = append(errs, db.Close())
		}

		return errors.Join(errs...)
	})

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, ioErrf("open database: %v", err)
	}

	conn, err = db.Conn(ctx)
	if err != nil {
		return nil, ioErrf("get database connection: %v", err)
	}

	if _, err := conn.ExecContext(ctx, pragma); err != nil {
		return nil, ioErrf("apply pragma: %v", err)
	}

	return conn, nil
}

// unlock derives the session key and authenticates it against the
// verifier row, initializing the KDF block and verifier on first open.
func (vlt *Vault) unlock(ctx context.Context, passphrase []byte, create bool) error {
	kdfPHC, err := vlt.store.Meta(ctx, metaKDF)
	if err != nil {
		return ioErrf("read kdf block: %v", err)
	}

	if len(kdfPHC) == 0 {
		if !create {
			return vaulterrors.ErrVaultFileNotFound
		}

		return vlt.initialize(ctx, passphrase)
	}

	phc, err := vaultcrypto.DecodeArgon2idPHC(kdfPHC)
	if err != nil {
		return err
	}

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithPHC(phc))
	vlt.key = secmem.From(kdf.Derive(passphrase))

	cipher, err := vaultcrypto.NewXChaCha(vlt.key.Bytes())
	if err != nil {
		return cryptoErrf("init cipher: %v", err)
	}

	vlt.cipher = cipher

	verifier, err := vlt.store.Meta(ctx, metaVerifier)
	if err != nil {
		return ioErrf("read verifier: %v", err)
	}

	// A missing, unparseable, or undecryptable verifier all take the
	// same path: the caller cannot probe which condition triggered it.
	magic, err := vaultcrypto.OpenField(cipher, verifier)
	if err != nil || !secmem.Equal(magic, []byte(verifierMagic)) {
		return vaulterrors.ErrAuthFailed
	}

	secmem.Wipe(magic)

	return nil
}

// initialize writes a fresh KDF parameter block and verifier for a new
// vault and derives the session key.
func (vlt *Vault) initialize(ctx context.Context, passphrase []byte) error {
	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		return err
	}

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(salt))
	vlt.key = secmem.From(kdf.Derive(passphrase))

	cipher, err := vaultcrypto.NewXChaCha(vlt.key.Bytes())
	if err != nil {
		return cryptoErrf("init cipher: %v", err)
	}

	vlt.cipher = cipher

	verifier, err := vaultcrypto.SealField(cipher, []byte(verifierMagic))
	if err != nil {
		return cryptoErrf("seal verifier: %v", err)
	}

	tx, err := vlt.conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return ioErrf("begin tx: %v", err)
	}

	storeTx := vlt.store.WithTx(tx)

	for _, meta := range [][2]string{
		{metaKDF, kdf.PHC().String()},
		{metaAEAD, aeadXChaCha},
		{metaVerifier, verifier},
	} {
		if err := storeTx.SetMeta(ctx, meta[0], meta[1]); err != nil {
			return rollback(tx, ioErrf("write %s: %v", meta[0], err))
		}
	}

	if err := tx.Commit(); err != nil {
		return ioErrf("commit: %v", err)
	}

	vlt.logger.Debug().Str("path", vlt.Path).Msg("initialized new vault")

	return nil
}

// Close zeroes the session key and releases the file handle.
//
// It is safe to call Close multiple times; only the first call has an effect.
func (vlt *Vault) Close() (retErr error) {
	if vlt == nil {
		return nil
	}

	vlt.closeOnce.Do(func() {
		vlt.mu.Lock()
		defer vlt.mu.Unlock()

		retErr = vlt.cleanup()
	})

	return retErr
}

func (vlt *Vault) cleanup() error {
	if vlt == nil {
		return nil
	}

	if vlt.key != nil {
		vlt.key.Destroy()
	}

	vlt.cipher = nil

	if err := executeCleanup(vlt.cleanupFuncs); err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	return nil
}

// executeCleanup executes cleanup functions in reverse order,
// similar to defer statements.
//
// used functions are nilled out.
func executeCleanup(fs []cleanupFunc) error {
	var errs []error
	for i := len(fs) - 1; i >= 0; i-- {
		f := fs[i]
		if f == nil {
			continue
		}

		fs[i] = nil

		errs = append(errs, f())
	}

	return errors.Join(errs...)
}

// Add inserts a new entry and returns its id. Ids are assigned in
// strictly increasing order and never reused within a vault.
func (vlt *Vault) Add(ctx context.Context, fields Fields) (int, error) {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	if err := fields.validate(); err != nil {
		return 0, err
	}

	row, err := vlt.sealFields(fields)
	if err != nil {
		return 0, err
	}

	tx, err := vlt.conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, ioErrf("add: begin tx: %v", err)
	}

	id, err := vlt.store.WithTx(tx).InsertEntry(ctx, row)
	if err != nil {
		return 0, rollback(tx, ioErrf("add: %v", err))
	}

	if err := tx.Commit(); err != nil {
		return 0, ioErrf("add: commit: %v", err)
	}

	return id, nil
}

// Entries returns all entries decrypted, in ascending id order.
func (vlt *Vault) Entries(ctx context.Context) ([]Entry, error) {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	rows, err := vlt.store.Entries(ctx)
	if err != nil {
		return nil, ioErrf("list: %v", err)
	}

	return vlt.openRows(rows)
}

// EntriesGlob returns decrypted entries whose service or username
// matches the given glob pattern, in ascending id order.
func (vlt *Vault) EntriesGlob(ctx context.Context, pattern string) ([]Entry, error) {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	rows, err := vlt.store.EntriesGlob(ctx, pattern)
	if err != nil {
		return nil, ioErrf("find: %v", err)
	}

	return vlt.openRows(rows)
}

// Entry returns the decrypted entry with the given id.
func (vlt *Vault) Entry(ctx context.Context, id int) (Entry, error) {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	return vlt.entryLocked(ctx, id)
}

func (vlt *Vault) entryLocked(ctx context.Context, id int) (Entry, error) {
	row, err := vlt.store.Entry(ctx, id)
	if err != nil {
		return Entry{}, err
	}

	return vlt.openRow(row)
}

// Update replaces the fields of the entry identified by id.
// It returns [vaulterrors.ErrNotFound] if the entry does not exist;
// on any error the prior state is preserved.
func (vlt *Vault) Update(ctx context.Context, id int, fields Fields) error {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	if err := fields.validate(); err != nil {
		return err
	}

	row, err := vlt.sealFields(fields)
	if err != nil {
		return err
	}

	row.ID = id

	tx, err := vlt.conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return ioErrf("update: begin tx: %v", err)
	}

	if err := vlt.store.WithTx(tx).UpdateEntry(ctx, row); err != nil {
		return rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return ioErrf("update: commit: %v", err)
	}

	return nil
}

// Delete removes the entry identified by id.
// It returns [vaulterrors.ErrNotFound] if the entry does not exist.
func (vlt *Vault) Delete(ctx context.Context, id int) error {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	tx, err := vlt.conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return ioErrf("delete: begin tx: %v", err)
	}

	if err := vlt.store.WithTx(tx).DeleteEntry(ctx, id); err != nil {
		return rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return ioErrf("delete: commit: %v", err)
	}

	return nil
}

// BulkImport inserts the given field tuples, skipping rows that fail
// validation. It reports how many rows were inserted and skipped.
func (vlt *Vault) BulkImport(ctx context.Context, rows []Fields) (inserted, skipped int, _ error) {
	for _, fields := range rows {
		if err := fields.validate(); err != nil {
			skipped++
			vlt.logger.Debug().Err(err).Msg("bulk import: row skipped")

			continue
		}

		if _, err := vlt.Add(ctx, fields); err != nil {
			return inserted, skipped, fmt.Errorf("bulk import: %w", err)
		}

		inserted++
	}

	return inserted, skipped, nil
}

// BulkExport returns all entries as field tuples in ascending id order.
func (vlt *Vault) BulkExport(ctx context.Context) ([]Fields, error) {
	entries, err := vlt.Entries(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Fields, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, Fields{
			Service:       e.Service,
			Username:      e.Username,
			Password:      e.Password,
			TotpSecret:    e.TotpSecret,
			RecoveryCodes: e.RecoveryCodes,
		})
	}

	return rows, nil
}

// TotpCode generates the current TOTP code for the entry's stored seed.
// Entries without a seed yield [vaulterrors.ErrInvalidSecret].
func (vlt *Vault) TotpCode(ctx context.Context, id int) (string, error) {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	e, err := vlt.entryLocked(ctx, id)
	if err != nil {
		return "", err
	}

	return totp.Code(e.TotpSecret)
}

// MarkRecoveryCodeUsed marks the given recovery code of an entry as used
// by prefixing its line with '*'.
func (vlt *Vault) MarkRecoveryCodeUsed(ctx context.Context, id int, code string) error {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	e, err := vlt.entryLocked(ctx, id)
	if err != nil {
		return err
	}

	lines := strings.Split(e.RecoveryCodes, "\n")

	found := false

	for i, line := range lines {
		if line == code {
			lines[i] = "*" + line
			found = true

			break
		}
	}

	if !found {
		return fmt.Errorf("%w: recovery code not present", vaulterrors.ErrNotFound)
	}

	row, err := vlt.sealFields(Fields{
		Service:       e.Service,
		Username:      e.Username,
		Password:      e.Password,
		TotpSecret:    e.TotpSecret,
		RecoveryCodes: strings.Join(lines, "\n"),
	})
	if err != nil {
		return err
	}

	row.ID = id

	tx, err := vlt.conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return ioErrf("mark recovery code: begin tx: %v", err)
	}

	if err := vlt.store.WithTx(tx).UpdateEntry(ctx, row); err != nil {
		return rollback(tx, err)
	}

	if err := tx.Commit(); err != nil {
		return ioErrf("mark recovery code: commit: %v", err)
	}

	return nil
}

// Rotate re-derives the vault key from a new passphrase under a fresh
// salt and re-encrypts every entry in a single transaction.
func (vlt *Vault) Rotate(ctx context.Context, newPassphrase []byte) error {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	if len(newPassphrase) == 0 {
		return vaulterrors.ErrEmptyPassphrase
	}

	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		return err
	}

	kdf := vaultcrypto.NewArgon2idKDF(vaultcrypto.WithSalt(salt))
	newKey := secmem.From(kdf.Derive(newPassphrase))

	newCipher, err := vaultcrypto.NewXChaCha(newKey.Bytes())
	if err != nil {
		newKey.Destroy()
		return cryptoErrf("rotate: init cipher: %v", err)
	}

	verifier, err := vaultcrypto.SealField(newCipher, []byte(verifierMagic))
	if err != nil {
		newKey.Destroy()
		return cryptoErrf("rotate: seal verifier: %v", err)
	}

	rows, err := vlt.store.Entries(ctx)
	if err != nil {
		newKey.Destroy()
		return ioErrf("rotate: %v", err)
	}

	tx, err := vlt.conn.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		newKey.Destroy()
		return ioErrf("rotate: begin tx: %v", err)
	}

	storeTx := vlt.store.WithTx(tx)

	for _, row := range rows {
		e, err := vlt.openRow(row)
		if err != nil {
			newKey.Destroy()
			return rollback(tx, err)
		}

		resealed, err := sealRow(newCipher, e)
		if err != nil {
			newKey.Destroy()
			return rollback(tx, err)
		}

		if err := storeTx.UpdateEntry(ctx, resealed); err != nil {
			newKey.Destroy()
			return rollback(tx, ioErrf("rotate: %v", err))
		}
	}

	for _, meta := range [][2]string{
		{metaKDF, kdf.PHC().String()},
		{metaVerifier, verifier},
	} {
		if err := storeTx.SetMeta(ctx, meta[0], meta[1]); err != nil {
			newKey.Destroy()
			return rollback(tx, ioErrf("rotate: write %s: %v", meta[0], err))
		}
	}

	if err := tx.Commit(); err != nil {
		newKey.Destroy()
		return ioErrf("rotate: commit: %v", err)
	}

	vlt.key.Destroy()
	vlt.key = newKey
	vlt.cipher = newCipher

	vlt.logger.Info().Str("path", vlt.Path).Msg("vault key rotated")

	return nil
}

// Vacuum performs a VACUUM operation on the vault database.
func (vlt *Vault) Vacuum(ctx context.Context) error {
	vlt.mu.Lock()
	defer vlt.mu.Unlock()

	return vlt.store.Vacuum(ctx)
}

// sealFields encrypts the secret-bearing fields under the session cipher.
func (vlt *Vault) sealFields(fields Fields) (vaultdb.EntryRow, error) {
	return sealRow(vlt.cipher, Entry{
		Service:       fields.Service,
		Username:      fields.Username,
		Password:      fields.Password,
		TotpSecret:    fields.TotpSecret,
		RecoveryCodes: fields.RecoveryCodes,
	})
}

func sealRow(cipher *vaultcrypto.XChaCha, e Entry) (vaultdb.EntryRow, error) {
	row := vaultdb.EntryRow{
		ID:       e.ID,
		Service:  e.Service,
		Username: e.Username,
	}

	sealed := []struct {
		dst       *string
		plaintext string
	}{
		{&row.Password, e.Password},
		{&row.TotpSecret, e.TotpSecret},
		{&row.RecoveryCodes, e.RecoveryCodes},
	}

	for _, s := range sealed {
		if len(s.plaintext) == 0 {
			continue
		}

		blob, err := vaultcrypto.SealField(cipher, []byte(s.plaintext))
		if err != nil {
			return vaultdb.EntryRow{}, cryptoErrf("seal field: %v", err)
		}

		*s.dst = blob
	}

	return row, nil
}

// openRow decrypts the secret-bearing columns of a stored row.
func (vlt *Vault) openRow(row vaultdb.EntryRow) (Entry, error) {
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

		plaintext, err := vaultcrypto.OpenField(vlt.cipher, o.blob)
		if err != nil {
			return Entry{}, err
		}

		*o.dst = string(plaintext)

		secmem.Wipe(plaintext)
	}

	return e, nil
}

func (vlt *Vault) openRows(rows []vaultdb.EntryRow) ([]Entry, error) {
	entries := make([]Entry, 0, len(rows))

	for _, row := range rows {
		e, err := vlt.openRow(row)
		if err != nil {
			return nil, err
		}

		entries = append(entries, e)
	}

	return entries, nil
}

func rollback(tx *sql.Tx, err error) error {
	if err2 := tx.Rollback(); err2 != nil {
		return errors.Join(err, fmt.Errorf("rollback: %v", err2))
	}

	return err
}

func ioErrf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{vaulterrors.ErrIo}, a...)...)
}

func cryptoErrf(format string, a ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{vaulterrors.ErrCrypto}, a...)...)
}
