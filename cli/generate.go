package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/clipboard"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/randstring"
)

// GenerateOptions holds data required to run the command.
type GenerateOptions struct {
	*genericclioptions.StdioOptions

	policy randstring.PasswordPolicy
	copy   bool
}

var _ genericclioptions.CmdOptions = &GenerateOptions{}

// NewGenerateOptions initializes the options struct.
func NewGenerateOptions(stdio *genericclioptions.StdioOptions) *GenerateOptions {
	return &GenerateOptions{
		StdioOptions: stdio,
		policy:       randstring.DefaultPasswordPolicy,
	}
}

func (*GenerateOptions) Complete() error {
	return nil
}

func (*GenerateOptions) Validate() error {
	return nil
}

func (o *GenerateOptions) Run(context.Context, ...string) error {
	s, err := randstring.NewWithPolicy(o.policy)
	if err != nil {
		return err
	}

	if o.copy {
		o.Debugf("Copying password to clipboard\n")
		return clipboard.Copy([]byte(s))
	}

	o.Printf("%s\n", s)

	return nil
}

// NewCmdGenerate creates the generate cobra command.
func NewCmdGenerate(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewGenerateOptions(defaults.StdioOptions)

	cmd := &cobra.Command{
		Use:     "generate",
		Aliases: []string{"gen", "rand"},
		Short:   "Generate a random password",
		Long: fmt.Sprintf(`Generate a random password with guaranteed character-class coverage.

Lowercase letters are always included. Each enabled class (uppercase,
digits, symbols from %q) is represented at least once; positions are
shuffled with an unbiased Fisher-Yates pass.

The default policy is %d characters with all classes enabled.
`, "!@#$%^&*()", randstring.DefaultPasswordPolicy.Length),
		Run: func(cmd *cobra.Command, _ []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o))
		},
	}

	cmd.Flags().IntVarP(&o.policy.Length, "length", "l", randstring.DefaultPasswordPolicy.Length, "total password length")
	cmd.Flags().BoolVarP(&o.policy.Upper, "upper-case", "u", true, "include uppercase letters")
	cmd.Flags().BoolVarP(&o.policy.Digits, "digits", "d", true, "include digits")
	cmd.Flags().BoolVarP(&o.policy.Symbols, "symbols", "s", true, "include symbols")
	cmd.Flags().BoolVarP(&o.copy, "copy-clipboard", "c", false, "copy the generated password to the clipboard")

	return cmd
}
