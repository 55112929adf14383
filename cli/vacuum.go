package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
)

// VacuumOptions holds data required to run the command.
type VacuumOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions
}

var _ genericclioptions.CmdOptions = &VacuumOptions{}

// NewVacuumOptions initializes the options struct.
func NewVacuumOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *VacuumOptions {
	return &VacuumOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*VacuumOptions) Complete() error { return nil }

func (*VacuumOptions) Validate() error { return nil }

func (o *VacuumOptions) Run(ctx context.Context, _ ...string) error {
	if err := o.vault.Vacuum(ctx); err != nil {
		return err
	}

	o.Infof("vault database compacted\n")

	return nil
}

// NewCmdVacuum creates the vacuum cobra command.
func NewCmdVacuum(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewVacuumOptions(defaults.StdioOptions, defaults.vaultOptions)

	return &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the vault database file",
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
