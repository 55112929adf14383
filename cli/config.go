package cli

import (
	"context"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
)

// ConfigOptions loads and resolves the file configuration.
type ConfigOptions struct {
	path string

	resolved *FileConfig
}

var _ genericclioptions.BaseOptions = &ConfigOptions{}

func (o *ConfigOptions) Complete() error {
	c, err := LoadFileConfig(o.path)
	if err != nil {
		return err
	}

	o.resolved = c

	return nil
}

func (o *ConfigOptions) Validate() error {
	return o.resolved.validate()
}

type configCmdOptions struct {
	*genericclioptions.StdioOptions

	configOptions *ConfigOptions
}

var _ genericclioptions.CmdOptions = &configCmdOptions{}

func (o *configCmdOptions) Complete() error {
	return o.configOptions.Complete()
}

func (o *configCmdOptions) Validate() error {
	return o.configOptions.Validate()
}

// Run prints the resolved configuration as TOML.
func (o *configCmdOptions) Run(context.Context, ...string) error {
	raw, err := toml.Marshal(o.configOptions.resolved)
	if err != nil {
		return err
	}

	if len(o.configOptions.resolved.path) > 0 {
		o.Debugf("config loaded from %q\n", o.configOptions.resolved.path)
	}

	o.Printf("%s", raw)

	return nil
}

// NewCmdConfig creates the config cobra command.
func NewCmdConfig(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := &configCmdOptions{
		StdioOptions:  defaults.StdioOptions,
		configOptions: defaults.configOptions,
	}

	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}
}
