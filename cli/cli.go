// Package cli implements the securepass command tree. It is a pure
// view/controller layer over the vault core API.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/clipboard"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/input"
	"github.com/fam007e/securepass/secmem"
	"github.com/fam007e/securepass/vault"
	"github.com/fam007e/securepass/vaulterrors"
)

// Version is the securepass release version.
const Version = "2.0.0"

const (
	// defaultDatabaseFilename is the default name for the vault file,
	// created under the user's home directory.
	defaultDatabaseFilename = ".securepass.db"
)

var (
	// preRunSkipCommands lists command names that should
	// bypass the persistent pre-run logic.
	preRunSkipCommands = []string{"generate", "totp", "version", "config", "help", "completion"}

	// postRunSkipCommands lists command names that should
	// bypass the persistent post-run logic.
	postRunSkipCommands = []string{"generate", "totp", "version", "config", "help", "completion"}
)

type VaultOptions struct {
	Path string

	vault *vault.Vault

	// create enables initializing a new vault at the given path.
	create bool

	logger zerolog.Logger
}

var _ genericclioptions.BaseOptions = &VaultOptions{}

// NewVaultOptions creates a new VaultOptions.
func NewVaultOptions() *VaultOptions {
	return &VaultOptions{logger: zerolog.Nop()}
}

// Complete sets the default vault file path if not provided.
func (o *VaultOptions) Complete() error {
	if len(o.Path) == 0 {
		p, err := defaultVaultPath()
		if err != nil {
			return err
		}

		o.Path = p
	}

	return nil
}

// Validate validates the vault options based on whether it's a new or existing vault.
func (o *VaultOptions) Validate() error {
	if o.create {
		return o.validateNewVault()
	}

	return o.validateExistingVault()
}

func (o *VaultOptions) validateNewVault() error {
	if _, err := os.Stat(o.Path); !errors.Is(err, fs.ErrNotExist) {
		return vaulterrors.ErrVaultFileExists
	}

	return nil
}

func (o *VaultOptions) validateExistingVault() error {
	if _, err := os.Stat(o.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return vaulterrors.ErrVaultFileNotFound
		}

		return fmt.Errorf("stat vault file: %w", err)
	}

	return nil
}

// Open prompts for the master passphrase and opens the vault session.
// The passphrase buffer is wiped once the key has been derived.
func (o *VaultOptions) Open(ctx context.Context, io *genericclioptions.StdioOptions) error {
	passphrase, err := o.readPassphrase(io)
	if err != nil {
		return err
	}
	defer secmem.Wipe(passphrase) //nolint:wsl

	opts := []vault.Option{
		vault.WithLogger(o.logger),
		vault.WithCreate(o.create),
	}

	v, err := vault.Open(ctx, o.Path, passphrase, opts...)
	if err != nil {
		return err
	}

	o.vault = v

	return nil
}

func (o *VaultOptions) readPassphrase(io *genericclioptions.StdioOptions) ([]byte, error) {
	if o.create && !io.StdinIsPiped {
		return input.PromptNewPassphrase(io.Out, int(io.In.Fd()), 1)
	}

	if io.StdinIsPiped {
		line, err := input.PromptRead(io.Out, io.In, "")
		if err != nil {
			return nil, fmt.Errorf("read passphrase: %w", err)
		}

		return []byte(line), nil
	}

	return input.PromptPassphrase(io.Out, int(io.In.Fd()), o.Path)
}

func defaultVaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, defaultDatabaseFilename), nil
}

type DefaultSecurepassOptions struct {
	*genericclioptions.StdioOptions

	vaultOptions  *VaultOptions
	configOptions *ConfigOptions

	debug bool
}

var _ genericclioptions.CmdOptions = &DefaultSecurepassOptions{}

func NewDefaultSecurepassOptions(iostreams *genericclioptions.IOStreams, vaultOptions *VaultOptions) *DefaultSecurepassOptions {
	return &DefaultSecurepassOptions{
		StdioOptions:  &genericclioptions.StdioOptions{IOStreams: iostreams},
		vaultOptions:  vaultOptions,
		configOptions: &ConfigOptions{},
	}
}

func (o *DefaultSecurepassOptions) Complete() error {
	if err := o.StdioOptions.Complete(); err != nil {
		return err
	}

	if err := o.configOptions.Complete(); err != nil {
		return err
	}

	copyCmd, pasteCmd := o.configOptions.resolved.Clipboard.CopyCmd, o.configOptions.resolved.Clipboard.PasteCmd

	var opts []clipboard.Opt
	if len(copyCmd) > 0 {
		opts = append(opts, clipboard.WithCopyCmd(copyCmd))
	}

	if len(pasteCmd) > 0 {
		opts = append(opts, clipboard.WithPasteCmd(pasteCmd))
	}

	if len(opts) > 0 {
		clipboard.SetDefault(clipboard.New(opts...))
	}

	// the --file flag wins over the config file; the config file wins
	// over the home-directory default.
	if p := o.configOptions.resolved.Vault.Path; len(p) > 0 && len(o.vaultOptions.Path) == 0 {
		o.vaultOptions.Path = p
	}

	return o.vaultOptions.Complete()
}

func (o *DefaultSecurepassOptions) Validate() error {
	if err := o.StdioOptions.Validate(); err != nil {
		return err
	}

	if err := o.configOptions.Validate(); err != nil {
		return err
	}

	return o.vaultOptions.Validate()
}

func (o *DefaultSecurepassOptions) Run(ctx context.Context, _ ...string) error {
	o.vaultOptions.logger = newLogger(o.ErrOut, o.debug)

	return o.vaultOptions.Open(ctx, o.StdioOptions)
}

// newLogger builds the diagnostics logger. Disabled unless debug is set.
func newLogger(w io.Writer, debug bool) zerolog.Logger {
	if !debug {
		return zerolog.Nop()
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: w}).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// NewDefaultSecurepassCommand creates the `securepass` command with its sub-commands.
func NewDefaultSecurepassCommand(iostreams *genericclioptions.IOStreams, args []string) *cobra.Command {
	o := NewDefaultSecurepassOptions(iostreams, NewVaultOptions())

	cmd := &cobra.Command{
		Use:   "securepass",
		Short: "Command-line credential vault",
		Long: `securepass is an encrypted command-line credential vault.

Entries (service, username, password, TOTP seed, recovery codes) are
stored in a single SQLite file; secret fields are sealed with
XChaCha20-Poly1305 under a key derived from the master passphrase
via Argon2id.

Environment Variables:
    SECUREPASS_CONFIG_PATH: overrides the default config path: "~/.securepass.toml".`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			clierror.DebugMode(o.debug)

			if slices.Contains(preRunSkipCommands, cmd.Name()) {
				return
			}

			if cmd.Name() == "create" {
				o.vaultOptions.create = true
			}

			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, cmd.Name()))
		},
		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if slices.Contains(postRunSkipCommands, cmd.Name()) {
				return
			}

			clierror.Check(o.vaultOptions.vault.Close())
		},
	}

	cmd.SetArgs(args)

	cmd.PersistentFlags().BoolVarP(&o.Verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&o.debug, "debug", "", false, "enable debug diagnostics")
	cmd.PersistentFlags().StringVarP(&o.vaultOptions.Path, "file", "f", "", "path to the vault file")
	cmd.PersistentFlags().StringVarP(&o.configOptions.path, "config", "", "", "path to the config file")

	cmd.AddCommand(
		NewCmdCreate(o),
		NewCmdAdd(o),
		NewCmdList(o),
		NewCmdShow(o),
		NewCmdUpdate(o),
		NewCmdRemove(o),
		NewCmdGenerate(o),
		NewCmdTotp(o),
		NewCmdAudit(o),
		NewCmdImport(o),
		NewCmdExport(o),
		NewCmdRotate(o),
		NewCmdVacuum(o),
		NewCmdConfig(o),
		newVersionCommand(o),
	)

	return cmd
}
