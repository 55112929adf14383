package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/input"
	"github.com/fam007e/securepass/secmem"
)

// RotateOptions holds data required to run the command.
type RotateOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions
}

var _ genericclioptions.CmdOptions = &RotateOptions{}

// NewRotateOptions initializes the options struct.
func NewRotateOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *RotateOptions {
	return &RotateOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*RotateOptions) Complete() error { return nil }

func (*RotateOptions) Validate() error { return nil }

// Run changes the master passphrase, re-encrypting every entry.
func (o *RotateOptions) Run(ctx context.Context, _ ...string) error {
	passphrase, err := input.PromptNewPassphrase(o.Out, int(o.In.Fd()), 1)
	if err != nil {
		return err
	}
	defer secmem.Wipe(passphrase) //nolint:wsl

	if err := o.vault.Rotate(ctx, passphrase); err != nil {
		return err
	}

	o.Infof("master passphrase rotated\n")

	return nil
}

// NewCmdRotate creates the rotate cobra command.
func NewCmdRotate(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewRotateOptions(defaults.StdioOptions, defaults.vaultOptions)

	return &cobra.Command{
		Use:   "rotate",
		Short: "Change the master passphrase",
		Long: `Change the vault's master passphrase.

A new key is derived under a fresh salt and every entry is re-encrypted
in a single transaction.`,
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
