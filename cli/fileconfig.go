package cli

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	// defaultConfigName is the config file name under the user's home directory.
	defaultConfigName = ".securepass.toml"

	// envConfigPathKey is the environment variable key for overriding
	// the config file path.
	envConfigPathKey = "SECUREPASS_CONFIG_PATH"
)

type ConfigError struct {
	Opt string
	Err error
}

func (e *ConfigError) Error() string {
	return "config: " + strings.Join([]string{e.Opt, e.Err.Error()}, ":")
}

func (e *ConfigError) Unwrap() error { return e.Err }

// FileConfig represents the full structure of the configuration file.
//
//nolint:tagalign
type FileConfig struct {
	Vault     VaultConfig      `toml:"vault" json:"vault"`
	Audit     *AuditConfig     `toml:"audit" comment:"Password health audit configuration" json:"audit"`
	Clipboard *ClipboardConfig `toml:"clipboard" comment:"Clipboard configuration: both copy and paste commands must be either both set or both unset." json:"clipboard"`

	path string // path to the loaded config file. Empty if no config file was used.
}

func newFileConfig() *FileConfig {
	return &FileConfig{
		Audit:     &AuditConfig{},
		Clipboard: &ClipboardConfig{},
	}
}

// VaultConfig holds vault-related configuration.
//
//nolint:tagalign,tagliatelle
type VaultConfig struct {
	Path string `toml:"path,commented" comment:"Vault database path (default: '~/.securepass.db' if not set)" json:"path,omitempty"`
}

// AuditConfig holds health-audit configuration.
//
//nolint:tagalign,tagliatelle
type AuditConfig struct {
	Workers     int    `toml:"workers,commented" comment:"Concurrent breach-check requests (default: 4)" json:"workers,omitempty"`
	HTTPTimeout string `toml:"http_timeout,commented" comment:"Per-request timeout for the breach range service (default: '10s')" json:"http_timeout,omitempty"`
}

// ClipboardConfig defines commands for clipboard ops.
//
//nolint:tagalign,tagliatelle
type ClipboardConfig struct {
	CopyCmd  []string `toml:"copy_cmd,commented"  comment:"The command used for copying to the clipboard (default: ['xsel', '-ib'] if not set)" json:"copy_cmd,omitempty"`
	PasteCmd []string `toml:"paste_cmd,commented" comment:"The command used for pasting from the clipboard (default: ['xsel', '-ob'] if not set)" json:"paste_cmd,omitempty"`
}

// LoadFileConfig loads the config from the given or default path.
func LoadFileConfig(path string) (*FileConfig, error) {
	defaultPath, err := defaultConfigPath()
	if err != nil {
		return nil, err
	}

	configPath := cmp.Or(path, defaultPath)

	c, err := parseFileConfig(configPath)
	if err != nil {
		// config file not found at default location; fallback to empty config
		if len(path) == 0 && errors.Is(err, fs.ErrNotExist) { //nolint:revive // clearer with explicit fallback logic
			c = newFileConfig()
		} else {
			return nil, err
		}
	} else {
		c.path = configPath
	}

	return c, c.validate()
}

func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("config: user home dir: %w", err)
	}

	path := filepath.Join(home, defaultConfigName)
	if p, ok := os.LookupEnv(envConfigPathKey); ok {
		path = p
	}

	return path, nil
}

func parseFileConfig(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config: stat file: %w", err)
	}

	raw, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, err
	}

	config := newFileConfig()
	if err := toml.Unmarshal(raw, config); err != nil {
		return nil, fmt.Errorf("config: parse file: %w", err)
	}

	return config, nil
}

func (c *FileConfig) validate() error {
	if c == nil {
		return &ConfigError{Err: errors.New("cannot validate a nil config")}
	}

	if c.hasPartialClipboard() {
		return &ConfigError{Opt: "clipboard", Err: errors.New("both 'copy_cmd' and 'paste_cmd' must be set or unset together")}
	}

	if c.Audit.Workers < 0 {
		return &ConfigError{Opt: "audit.workers", Err: errors.New("must be zero or a positive integer")}
	}

	return nil
}

// hasPartialClipboard checks if only one of the clipboard commands is set.
func (c *FileConfig) hasPartialClipboard() bool {
	return (len(c.Clipboard.CopyCmd) == 0) != (len(c.Clipboard.PasteCmd) == 0)
}
