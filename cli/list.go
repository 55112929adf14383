package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/vault"
)

// ListOptions holds data required to run the command.
type ListOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions
}

var _ genericclioptions.CmdOptions = &ListOptions{}

// NewListOptions initializes the options struct.
func NewListOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *ListOptions {
	return &ListOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*ListOptions) Complete() error { return nil }

func (*ListOptions) Validate() error { return nil }

// Run lists entries, optionally filtered by a service/username glob.
func (o *ListOptions) Run(ctx context.Context, args ...string) error {
	var (
		entries []vault.Entry
		err     error
	)

	if len(args) > 0 {
		entries, err = o.vault.EntriesGlob(ctx, args[0])
	} else {
		entries, err = o.vault.Entries(ctx)
	}

	if err != nil {
		return err
	}

	if len(entries) == 0 {
		o.Infof("vault is empty\n")
		return nil
	}

	printTable(o.Out, entries)

	return nil
}

// NewCmdList creates the list cobra command.
func NewCmdList(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewListOptions(defaults.StdioOptions, defaults.vaultOptions)

	return &cobra.Command{
		Use:     "list [glob]",
		Aliases: []string{"ls", "find"},
		Short:   "List vault entries",
		Long: `List vault entries without their secret values.

An optional UNIX glob pattern (e.g., "git*", "*bank*") filters by
service name or username.`,
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
