package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/clipboard"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/input"
	"github.com/fam007e/securepass/randstring"
	"github.com/fam007e/securepass/vault"
)

type AddError struct {
	Err error
}

func (e *AddError) Error() string { return "add: " + e.Err.Error() }

func (e *AddError) Unwrap() error { return e.Err }

// AddOptions holds data required to run the command.
type AddOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	service       string
	username      string
	totpSecret    string
	recoveryCodes string

	generate bool // generate indicates whether to auto-generate a random password.
	paste    bool // paste controls whether to read the password from the clipboard.
	output   bool // output controls whether to print the stored password to stdout.
}

var _ genericclioptions.CmdOptions = &AddOptions{}

// NewAddOptions initializes the options struct.
func NewAddOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions) *AddOptions {
	return &AddOptions{
		StdioOptions: stdio,
		VaultOptions: vaultOptions,
	}
}

func (*AddOptions) Complete() error { return nil }

func (o *AddOptions) Validate() error {
	if len(strings.TrimSpace(o.service)) == 0 {
		return &AddError{errors.New("--service is required")}
	}

	if o.generate && o.paste {
		return &AddError{errors.New("--generate and --paste-clipboard are mutually exclusive")}
	}

	return nil
}

func (o *AddOptions) Run(ctx context.Context, _ ...string) (retErr error) {
	defer func() {
		if retErr != nil {
			retErr = &AddError{retErr}
			return
		}
	}()

	password, err := o.readPassword()
	if err != nil {
		return err
	}

	id, err := o.vault.Add(ctx, vault.Fields{
		Service:       o.service,
		Username:      o.username,
		Password:      string(password),
		TotpSecret:    o.totpSecret,
		RecoveryCodes: normalizeRecoveryCodes(o.recoveryCodes),
	})
	if err != nil {
		return err
	}

	o.Infof("entry %d added\n", id)

	if o.output {
		o.Printf("%s\n", password)
	}

	return nil
}

func (o *AddOptions) readPassword() ([]byte, error) {
	switch {
	case o.generate:
		s, err := randstring.NewWithPolicy(randstring.DefaultPasswordPolicy)
		if err != nil {
			return nil, err
		}

		return []byte(s), nil

	case o.paste:
		o.Debugf("reading password from clipboard\n")
		return clipboard.Paste()

	case o.StdinIsPiped:
		o.Debugf("reading password from piped input\n")

		bs, err := io.ReadAll(o.In)
		if err != nil {
			return nil, err
		}

		return []byte(strings.TrimRight(string(bs), "\r\n")), nil

	default:
		return input.PromptReadSecure(o.Out, int(o.In.Fd()), "Password for %q: ", o.service)
	}
}

// normalizeRecoveryCodes converts the escaped `\n` form accepted on the
// command line into real newlines.
func normalizeRecoveryCodes(raw string) string {
	return strings.ReplaceAll(raw, `\n`, "\n")
}

// NewCmdAdd creates the add cobra command.
func NewCmdAdd(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewAddOptions(defaults.StdioOptions, defaults.vaultOptions)

	cmd := &cobra.Command{
		Use:     "add",
		Aliases: []string{"save", "new"},
		Short:   "Add a new credential entry",
		Long: fmt.Sprintf(`Add a credential entry to the vault.

The password is read interactively, from piped input, from the clipboard
(--paste-clipboard), or generated (--generate, %d characters with upper,
digit and symbol coverage).`, randstring.DefaultPasswordPolicy.Length),
		Example: `  # Add an entry, prompting for the password
  securepass add --service github.com --username octocat

  # Add an entry with a generated password, printing it
  securepass add -s github.com -u octocat --generate --stdout

  # Add an entry with a TOTP seed and recovery codes
  securepass add -s github.com -u octocat -t JBSWY3DPEHPK3PXP -r 'CODE1\nCODE2'`,
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	cmd.Flags().StringVarP(&o.service, "service", "s", "", "service name for the entry")
	cmd.Flags().StringVarP(&o.username, "username", "u", "", "username for the entry")
	cmd.Flags().StringVarP(&o.totpSecret, "totp-secret", "t", "", "base32 TOTP seed for the entry")
	cmd.Flags().StringVarP(&o.recoveryCodes, "recovery-codes", "r", "", `recovery codes, newline separated (use '\n')`)
	cmd.Flags().BoolVarP(&o.generate, "generate", "g", false, "generate a random password")
	cmd.Flags().BoolVarP(&o.paste, "paste-clipboard", "p", false, "read the password from the clipboard")
	cmd.Flags().BoolVarP(&o.output, "stdout", "", false, "print the stored password to stdout (unsafe)")

	return cmd
}
