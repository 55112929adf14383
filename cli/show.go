package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/clipboard"
	"github.com/fam007e/securepass/genericclioptions"
)

type ShowError struct {
	Err error
}

func (e *ShowError) Error() string { return "show: " + e.Err.Error() }

func (e *ShowError) Unwrap() error { return e.Err }

// ShowOptions holds data required to run the command.
type ShowOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	stdout   bool // stdout controls whether to print the password to stdout.
	copy     bool // copy controls whether to copy the password to the clipboard.
	recovery bool // recovery prints the recovery codes instead of the password.
}

var _ genericclioptions.CmdOptions = &ShowOptions{}

// NewShowOptions initializes the options struct.
func NewShowOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *ShowOptions {
	return &ShowOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*ShowOptions) Complete() error { return nil }

func (o *ShowOptions) Validate() error {
	if o.stdout == o.copy {
		return &ShowError{errors.New("exactly one of --stdout or --copy-clipboard must be set")}
	}

	if o.recovery && o.copy {
		return &ShowError{errors.New("--recovery-codes requires --stdout")}
	}

	return nil
}

// Run retrieves a single entry's secret by id.
func (o *ShowOptions) Run(ctx context.Context, args ...string) error {
	if len(args) != 1 {
		return &ShowError{errors.New("expected exactly one entry id argument")}
	}

	id, err := parseEntryID(args[0])
	if err != nil {
		return &ShowError{err}
	}

	e, err := o.vault.Entry(ctx, id)
	if err != nil {
		return err
	}

	secret := e.Password
	if o.recovery {
		secret = e.RecoveryCodes
	}

	if o.copy {
		o.Debugf("copying secret to clipboard\n")
		return clipboard.Copy([]byte(secret))
	}

	o.Printf("%s\n", secret)

	return nil
}

// NewCmdShow creates the show cobra command.
func NewCmdShow(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewShowOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:     "show <id>",
		Aliases: []string{"get"},
		Short:   "Retrieve an entry's secret value",
		Long: `Retrieve and output a single entry's password or recovery codes.

Use --stdout to print to stdout (unsafe), or --copy-clipboard to copy the
value to the clipboard.`,
		Example: `  # Print the password of entry 42 (unsafe)
  securepass show 42 --stdout

  # Copy the password of entry 42 to the clipboard
  securepass show 42 --copy-clipboard

  # Print the recovery codes of entry 42
  securepass show 42 --stdout --recovery-codes`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	cmd.Flags().BoolVarP(&o.stdout, "stdout", "", false, "output the secret to stdout (unsafe)")
	cmd.Flags().BoolVarP(&o.copy, "copy-clipboard", "c", false, "copy the secret to the clipboard")
	cmd.Flags().BoolVarP(&o.recovery, "recovery-codes", "r", false, "output the recovery codes instead of the password")

	return cmd
}
