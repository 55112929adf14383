package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/input"
	"github.com/fam007e/securepass/util"
)

type RemoveError struct {
	Err error
}

func (e *RemoveError) Error() string { return "remove: " + e.Err.Error() }

func (e *RemoveError) Unwrap() error { return e.Err }

// RemoveOptions holds data required to run the command.
type RemoveOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	force bool // force skips the confirmation prompt.
}

var _ genericclioptions.CmdOptions = &RemoveOptions{}

// NewRemoveOptions initializes the options struct.
func NewRemoveOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *RemoveOptions {
	return &RemoveOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*RemoveOptions) Complete() error { return nil }

func (*RemoveOptions) Validate() error { return nil }

// Run deletes entries by id after confirmation.
func (o *RemoveOptions) Run(ctx context.Context, args ...string) error {
	if len(args) == 0 {
		return &RemoveError{errors.New("expected at least one entry id argument")}
	}

	ids := make([]int, 0, len(args))

	for _, arg := range args {
		// ids may be given as separate args or comma-separated
		for _, s := range util.ParseCommaSeparated(arg) {
			id, err := parseEntryID(s)
			if err != nil {
				return &RemoveError{err}
			}

			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		return &RemoveError{errors.New("no entry ids provided")}
	}

	if !o.force && !o.StdinIsPiped {
		answer, err := input.PromptRead(o.Out, o.In, "Remove %d entries? [y/N]: ", len(ids))
		if err != nil {
			return &RemoveError{err}
		}

		if answer != "y" && answer != "Y" {
			o.Infof("aborted\n")
			return nil
		}
	}

	for _, id := range ids {
		if err := o.vault.Delete(ctx, id); err != nil {
			return err
		}

		o.Infof("entry %d removed\n", id)
	}

	return nil
}

// NewCmdRemove creates the remove cobra command.
func NewCmdRemove(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewRemoveOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:     "remove <id>...",
		Aliases: []string{"rm", "delete"},
		Short:   "Remove entries from the vault",
		Args:    cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	cmd.Flags().BoolVarP(&o.force, "force", "y", false, "skip the confirmation prompt")

	return cmd
}
