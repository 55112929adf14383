// Package vaultdb provides access to the vault's entry table and
// metadata rows.
//
// This type does not perform cryptographic operations: secret-bearing
// columns hold encoded ciphertext blobs produced by the caller.
package vaultdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fam007e/securepass/vaulterrors"
)

// DBTX is satisfied by both *sql.Conn and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EntryRow is an entry in its stored form: secret-bearing columns are
// base64 ciphertext blobs.
type EntryRow struct {
	ID            int
	Service       string
	Username      string
	Password      string
	TotpSecret    string
	RecoveryCodes string
}

// VaultDB provides access to the vault's database.
type VaultDB struct {
	db DBTX
}

func New(db DBTX) *VaultDB {
	return &VaultDB{
		db: db,
	}
}

// WithTx returns a new VaultDB using the given transaction.
func (*VaultDB) WithTx(tx *sql.Tx) *VaultDB {
	return &VaultDB{
		db: tx,
	}
}

//nolint:gosec
const insertEntry = `
	INSERT INTO
		entries (service, username, password, totp_secret, recovery_codes)
	VALUES
		(?, ?, ?, ?, ?)
`

func (s *VaultDB) InsertEntry(ctx context.Context, row EntryRow) (int, error) {
	res, err := s.db.ExecContext(ctx, insertEntry,
		row.Service, row.Username, row.Password, row.TotpSecret, row.RecoveryCodes)
	if err != nil {
		return 0, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	return int(id), nil
}

//nolint:gosec
const insertEntryWithID = `
	INSERT INTO
		entries (id, service, username, password, totp_secret, recovery_codes)
	VALUES
		(?, ?, ?, ?, ?, ?)
`

// InsertEntryWithID inserts a row under an explicit id. Used by the
// cipher migrator to preserve ids across the re-encryption pass.
func (s *VaultDB) InsertEntryWithID(ctx context.Context, row EntryRow) error {
	_, err := s.db.ExecContext(ctx, insertEntryWithID,
		row.ID, row.Service, row.Username, row.Password, row.TotpSecret, row.RecoveryCodes)

	return err
}

const updateEntry = `
	UPDATE entries
	SET
		service = ?,
		username = ?,
		password = ?,
		totp_secret = ?,
		recovery_codes = ?
	WHERE
		id = ?
`

// UpdateEntry rewrites all columns of the entry identified by row.ID.
// It returns [vaulterrors.ErrNotFound] if no such entry exists.
func (s *VaultDB) UpdateEntry(ctx context.Context, row EntryRow) error {
	res, err := s.db.ExecContext(ctx, updateEntry,
		row.Service, row.Username, row.Password, row.TotpSecret, row.RecoveryCodes, row.ID)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return vaulterrors.ErrNotFound
	}

	return nil
}

const deleteEntry = `
	DELETE FROM entries
	WHERE
		id = ?
`

// DeleteEntry removes the entry with the given id.
// It returns [vaulterrors.ErrNotFound] if no such entry exists.
func (s *VaultDB) DeleteEntry(ctx context.Context, id int) error {
	res, err := s.db.ExecContext(ctx, deleteEntry, id)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if n == 0 {
		return vaulterrors.ErrNotFound
	}

	return nil
}

//nolint:gosec
const selectEntry = `
	SELECT
		id, service, username, password, totp_secret, recovery_codes
	FROM
		entries
	WHERE
		id = ?
`

// Entry returns the stored row for the given id,
// or [vaulterrors.ErrNotFound].
func (s *VaultDB) Entry(ctx context.Context, id int) (EntryRow, error) {
	var row EntryRow

	err := s.db.QueryRowContext(ctx, selectEntry, id).
		Scan(&row.ID, &row.Service, &row.Username, &row.Password, &row.TotpSecret, &row.RecoveryCodes)
	if errors.Is(err, sql.ErrNoRows) {
		return EntryRow{}, vaulterrors.ErrNotFound
	}

	if err != nil {
		return EntryRow{}, err
	}

	return row, nil
}

//nolint:gosec
const selectEntries = `
	SELECT
		id, service, username, password, totp_secret, recovery_codes
	FROM
		entries
	ORDER BY
		id ASC
`

// Entries returns all stored rows in ascending id order.
func (s *VaultDB) Entries(ctx context.Context) ([]EntryRow, error) {
	return s.queryEntries(ctx, selectEntries)
}

// EntriesGlob returns rows whose service or username matches the given
// glob pattern, in ascending id order.
func (s *VaultDB) EntriesGlob(ctx context.Context, pattern string) ([]EntryRow, error) {
	//nolint:gosec
	query := `
	SELECT
		id, service, username, password, totp_secret, recovery_codes
	FROM
		entries
	WHERE
		service GLOB ? OR username GLOB ?
	ORDER BY
		id ASC
	`

	return s.queryEntries(ctx, query, pattern, pattern)
}

func (s *VaultDB) queryEntries(ctx context.Context, query string, args ...any) ([]EntryRow, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	var entries []EntryRow

	for rows.Next() {
		var row EntryRow
		if err := rows.Scan(&row.ID, &row.Service, &row.Username, &row.Password, &row.TotpSecret, &row.RecoveryCodes); err != nil {
			return nil, err
		}

		entries = append(entries, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

const upsertMeta = `
	INSERT INTO
		vault_meta (name, value)
	VALUES
		(?, ?) ON CONFLICT (name) DO
	UPDATE
	SET
		value = EXCLUDED.value
`

// SetMeta upserts a vault metadata row.
func (s *VaultDB) SetMeta(ctx context.Context, name, value string) error {
	_, err := s.db.ExecContext(ctx, upsertMeta, name, value)
	return err
}

const selectMeta = `
	SELECT
		value
	FROM
		vault_meta
	WHERE
		name = ?
`

// Meta returns the value of a vault metadata row, or "" when absent.
func (s *VaultDB) Meta(ctx context.Context, name string) (string, error) {
	var value string

	err := s.db.QueryRowContext(ctx, selectMeta, name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", err
	}

	return value, nil
}

// Columns returns the column names of the given table via PRAGMA table_info.
func (s *VaultDB) Columns(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }() //nolint:wsl

	var cols []string

	for rows.Next() {
		var (
			cid        int
			name, typ  string
			notnull    int
			dflt       sql.NullString
			primaryKey int
		)

		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &primaryKey); err != nil {
			return nil, err
		}

		cols = append(cols, name)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return cols, nil
}

// AddColumn adds a text column with an empty default to the given table.
func (s *VaultDB) AddColumn(ctx context.Context, table, column string) error {
	stmt := "ALTER TABLE " + table + " ADD COLUMN " + column + " TEXT NOT NULL DEFAULT ''"

	_, err := s.db.ExecContext(ctx, stmt)
	if err != nil && strings.Contains(err.Error(), "duplicate column") {
		return nil
	}

	return err
}

// HasTable reports whether a table exists in the database catalog.
func (s *VaultDB) HasTable(ctx context.Context, table string) (bool, error) {
	const query = `
	SELECT
		count(*)
	FROM
		sqlite_master
	WHERE
		type = 'table'
		AND name = ?
	`

	var n int
	if err := s.db.QueryRowContext(ctx, query, table).Scan(&n); err != nil {
		return false, err
	}

	return n > 0, nil
}

// Vacuum performs a VACUUM operation on the vault database.
func (s *VaultDB) Vacuum(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "VACUUM")
	return err
}
