package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/totp"
)

// TotpOptions holds data required to run the command.
type TotpOptions struct {
	*genericclioptions.StdioOptions
}

var _ genericclioptions.CmdOptions = &TotpOptions{}

// NewTotpOptions initializes the options struct.
func NewTotpOptions(stdio *genericclioptions.StdioOptions) *TotpOptions {
	return &TotpOptions{
		StdioOptions: stdio,
	}
}

func (*TotpOptions) Complete() error { return nil }

func (*TotpOptions) Validate() error { return nil }

// Run prints the current 6-digit code for the given base32 seed.
func (o *TotpOptions) Run(_ context.Context, args ...string) error {
	if len(args) != 1 {
		return errors.New("totp: expected exactly one base32 seed argument")
	}

	code, err := totp.Code(args[0])
	if err != nil {
		return err
	}

	o.Printf("%s\n", code)

	return nil
}

// NewCmdTotp creates the totp cobra command.
func NewCmdTotp(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewTotpOptions(defaults.StdioOptions)

	return &cobra.Command{
		Use:   "totp <base32-seed>",
		Short: "Generate a TOTP code from a base32 seed",
		Long: `Generate the current RFC 6238 time-based one-time password for the
given base32 seed (30 second period, 6 digits, HMAC-SHA1).`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
