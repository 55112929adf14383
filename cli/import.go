package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/vault"
)

type ImportError struct {
	Err error
}

func (e *ImportError) Error() string { return "import: " + e.Err.Error() }

func (e *ImportError) Unwrap() error { return e.Err }

// csvHeader is the interchange header produced and consumed by this CLI.
var csvHeader = []string{"service", "username", "password", "totp_secret", "recovery_codes"}

// ImportOptions holds data required to run the command.
type ImportOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions
}

var _ genericclioptions.CmdOptions = &ImportOptions{}

// NewImportOptions initializes the options struct.
func NewImportOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *ImportOptions {
	return &ImportOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*ImportOptions) Complete() error { return nil }

func (*ImportOptions) Validate() error { return nil }

func (o *ImportOptions) Run(ctx context.Context, files ...string) (retErr error) {
	defer func() {
		if retErr != nil {
			retErr = &ImportError{retErr}
			return
		}
	}()

	switch {
	case o.StdinIsPiped && len(files) > 0:
		return errors.New("cannot import from both stdin and file")

	case o.StdinIsPiped:
		o.Infof("importing entries from stdin\n")
		return o.importEntries(ctx, o.In)

	case len(files) == 1:
		return o.importFromFile(ctx, files[0])

	case len(files) > 1:
		return errors.New("only one input file can be imported at a time")

	default:
		return errors.New("no input source provided (stdin or file)")
	}
}

func (o *ImportOptions) importEntries(ctx context.Context, in io.Reader) error {
	r := csv.NewReader(in)
	r.FieldsPerRecord = len(csvHeader)

	header, err := r.Read()
	if err != nil {
		return err
	}

	if !strings.EqualFold(strings.Join(header, ","), strings.Join(csvHeader, ",")) {
		return fmt.Errorf("unexpected header %q", strings.Join(header, ","))
	}

	var rows []vault.Fields

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return err
		}

		rows = append(rows, vault.Fields{
			Service:       record[0],
			Username:      record[1],
			Password:      record[2],
			TotpSecret:    record[3],
			RecoveryCodes: record[4],
		})

		clear(record)
	}

	inserted, skipped, err := o.vault.BulkImport(ctx, rows)
	if err != nil {
		return err
	}

	o.Infof("successfully imported %d entries (%d skipped)\n", inserted, skipped)

	return nil
}

func (o *ImportOptions) importFromFile(ctx context.Context, name string) error {
	f, err := os.Open(filepath.Clean(name))
	if err != nil {
		return err
	}
	defer func() { //nolint:wsl
		_ = f.Close()
	}()

	o.Infof("importing entries from: %q\n", name)

	return o.importEntries(ctx, f)
}

// NewCmdImport creates the import cobra command.
func NewCmdImport(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewImportOptions(defaults.StdioOptions, defaults.vaultOptions)

	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import entries from CSV",
		Long: `Import entries from an RFC 4180 CSV file or piped input.

The expected header is:
    service,username,password,totp_secret,recovery_codes

recovery_codes is a single quoted field and may contain embedded
newlines. Rows failing validation (empty service, oversize fields)
are skipped and counted.`,
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
