package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
)

// CreateOptions holds data required to run the command.
type CreateOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions
}

var _ genericclioptions.CmdOptions = &CreateOptions{}

// NewCreateOptions initializes the options struct.
func NewCreateOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *CreateOptions {
	return &CreateOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*CreateOptions) Complete() error { return nil }

func (*CreateOptions) Validate() error { return nil }

// Run reports the vault created by the persistent pre-run open.
func (o *CreateOptions) Run(context.Context, ...string) error {
	o.Infof("vault created at %q\n", o.Path)
	return nil
}

// NewCmdCreate creates the create cobra command.
func NewCmdCreate(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewCreateOptions(defaults.StdioOptions, defaults.vaultOptions)

	return &cobra.Command{
		Use:   "create",
		Short: "Create a new vault",
		Long: `Create a new encrypted vault file protected by a master passphrase.

The passphrase is prompted twice; it cannot be recovered if lost.`,
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
