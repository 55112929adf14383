package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
)

type ExportError struct {
	Err error
}

func (e *ExportError) Error() string { return "export: " + e.Err.Error() }

func (e *ExportError) Unwrap() error { return e.Err }

// ExportOptions holds data required to run the command.
type ExportOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	output string // output file path; stdout when empty.
}

var _ genericclioptions.CmdOptions = &ExportOptions{}

// NewExportOptions initializes the options struct.
func NewExportOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *ExportOptions {
	return &ExportOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*ExportOptions) Complete() error { return nil }

func (*ExportOptions) Validate() error { return nil }

func (o *ExportOptions) Run(ctx context.Context, _ ...string) (retErr error) {
	defer func() {
		if retErr != nil {
			retErr = &ExportError{retErr}
			return
		}
	}()

	var out io.Writer = o.Out

	if len(o.output) > 0 {
		f, err := os.OpenFile(filepath.Clean(o.output), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return err
		}
		defer func() { //nolint:wsl
			retErr = errors.Join(retErr, f.Close())
		}()

		out = f
	}

	rows, err := o.vault.BulkExport(ctx)
	if err != nil {
		return err
	}

	w := csv.NewWriter(out)

	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, row := range rows {
		record := []string{row.Service, row.Username, row.Password, row.TotpSecret, row.RecoveryCodes}
		if err := w.Write(record); err != nil {
			return err
		}

		clear(record)
	}

	w.Flush()

	return w.Error()
}

// NewCmdExport creates the export cobra command.
func NewCmdExport(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewExportOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export entries to CSV",
		Long: `Export all entries, including secret values, as RFC 4180 CSV.

The output contains plaintext passwords; prefer --output with restrictive
file permissions over piping through shared terminals.`,
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	cmd.Flags().StringVarP(&o.output, "output", "o", "", "export entries to the specified file path")

	return cmd
}
