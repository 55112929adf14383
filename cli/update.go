package cli

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/input"
	"github.com/fam007e/securepass/randstring"
	"github.com/fam007e/securepass/vault"
)

type UpdateError struct {
	Err error
}

func (e *UpdateError) Error() string { return "update: " + e.Err.Error() }

func (e *UpdateError) Unwrap() error { return e.Err }

// UpdateOptions holds data required to run the command.
type UpdateOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	service       string
	username      string
	totpSecret    string
	recoveryCodes string

	password     bool // password prompts for a new password.
	generate     bool // generate replaces the password with a generated one.
	markUsedCode string

	flags *cobra.Command
}

var _ genericclioptions.CmdOptions = &UpdateOptions{}

// NewUpdateOptions initializes the options struct.
func NewUpdateOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *UpdateOptions {
	return &UpdateOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*UpdateOptions) Complete() error { return nil }

func (o *UpdateOptions) Validate() error {
	if o.password && o.generate {
		return &UpdateError{errors.New("--password and --generate are mutually exclusive")}
	}

	return nil
}

// Run merges the supplied changes into the entry identified by id.
func (o *UpdateOptions) Run(ctx context.Context, args ...string) (retErr error) {
	defer func() {
		if retErr != nil && !errors.As(retErr, new(*UpdateError)) {
			retErr = &UpdateError{retErr}
			return
		}
	}()

	if len(args) != 1 {
		return &UpdateError{errors.New("expected exactly one entry id argument")}
	}

	id, err := parseEntryID(args[0])
	if err != nil {
		return err
	}

	e, err := o.vault.Entry(ctx, id)
	if err != nil {
		return err
	}

	fields := vault.Fields{
		Service:       e.Service,
		Username:      e.Username,
		Password:      e.Password,
		TotpSecret:    e.TotpSecret,
		RecoveryCodes: e.RecoveryCodes,
	}

	changed := o.applyFlagChanges(&fields)

	if o.password || o.generate || o.StdinIsPiped {
		password, err := o.readNewPassword()
		if err != nil {
			return err
		}

		fields.Password = string(password)
		changed = true
	}

	if len(o.markUsedCode) > 0 {
		if err := o.vault.MarkRecoveryCodeUsed(ctx, id, o.markUsedCode); err != nil {
			return err
		}

		o.Infof("recovery code marked used for entry %d\n", id)

		if !changed {
			return nil
		}

		// re-read so the update below does not clobber the marker
		e, err := o.vault.Entry(ctx, id)
		if err != nil {
			return err
		}

		fields.RecoveryCodes = e.RecoveryCodes
	}

	if !changed {
		o.Errorf("nothing to update; see --help for the available flags\n")
		return nil
	}

	if err := o.vault.Update(ctx, id, fields); err != nil {
		return err
	}

	o.Infof("entry %d updated\n", id)

	return nil
}

// applyFlagChanges merges set flags into fields and reports whether
// anything changed.
func (o *UpdateOptions) applyFlagChanges(fields *vault.Fields) bool {
	changed := false

	if f := o.flags.Flags(); f != nil {
		if f.Changed("service") {
			fields.Service = o.service
			changed = true
		}

		if f.Changed("username") {
			fields.Username = o.username
			changed = true
		}

		if f.Changed("totp-secret") {
			fields.TotpSecret = o.totpSecret
			changed = true
		}

		if f.Changed("recovery-codes") {
			fields.RecoveryCodes = normalizeRecoveryCodes(o.recoveryCodes)
			changed = true
		}
	}

	return changed
}

func (o *UpdateOptions) readNewPassword() ([]byte, error) {
	switch {
	case o.generate:
		s, err := randstring.NewWithPolicy(randstring.DefaultPasswordPolicy)
		if err != nil {
			return nil, err
		}

		return []byte(s), nil

	case o.StdinIsPiped:
		bs, err := io.ReadAll(o.In)
		if err != nil {
			return nil, err
		}

		return []byte(strings.TrimRight(string(bs), "\r\n")), nil

	default:
		return input.PromptReadSecure(o.Out, int(o.In.Fd()), "New password: ")
	}
}

// NewCmdUpdate creates the update cobra command.
func NewCmdUpdate(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewUpdateOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:     "update <id>",
		Aliases: []string{"edit"},
		Short:   "Update an existing entry",
		Long: `Update fields of an existing entry. Only the supplied flags change;
all other fields keep their current values.`,
		Example: `  # Rename the service of entry 3
  securepass update 3 --service gitlab.com

  # Replace the password of entry 3 with a generated one
  securepass update 3 --generate

  # Mark a recovery code of entry 3 as used
  securepass update 3 --mark-used CODE1`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	o.flags = cmd

	cmd.Flags().StringVarP(&o.service, "service", "s", "", "new service name")
	cmd.Flags().StringVarP(&o.username, "username", "u", "", "new username")
	cmd.Flags().StringVarP(&o.totpSecret, "totp-secret", "t", "", "new base32 TOTP seed")
	cmd.Flags().StringVarP(&o.recoveryCodes, "recovery-codes", "r", "", `new recovery codes, newline separated (use '\n')`)
	cmd.Flags().BoolVarP(&o.password, "password", "p", false, "prompt for a new password")
	cmd.Flags().BoolVarP(&o.generate, "generate", "g", false, "replace the password with a generated one")
	cmd.Flags().StringVarP(&o.markUsedCode, "mark-used", "", "", "mark the given recovery code as used")

	return cmd
}
