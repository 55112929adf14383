package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "securepass.toml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestLoadFileConfig(t *testing.T) {
	path := writeConfig(t, `
[vault]
path = "/tmp/custom.db"

[audit]
workers = 8
http_timeout = "5s"

[clipboard]
copy_cmd = ["wl-copy"]
paste_cmd = ["wl-paste"]
`)

	c, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got, want := c.Vault.Path, "/tmp/custom.db"; got != want {
		t.Errorf("vault.path = %q, want %q", got, want)
	}

	if got, want := c.Audit.Workers, 8; got != want {
		t.Errorf("audit.workers = %d, want %d", got, want)
	}

	if got, want := c.Audit.HTTPTimeout, "5s"; got != want {
		t.Errorf("audit.http_timeout = %q, want %q", got, want)
	}

	if len(c.Clipboard.CopyCmd) != 1 || c.Clipboard.CopyCmd[0] != "wl-copy" {
		t.Errorf("clipboard.copy_cmd = %v", c.Clipboard.CopyCmd)
	}
}

func TestLoadFileConfig_PartialClipboard(t *testing.T) {
	path := writeConfig(t, `
[clipboard]
copy_cmd = ["wl-copy"]
`)

	_, err := LoadFileConfig(path)

	var configErr *ConfigError
	if !errors.As(err, &configErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}

	if configErr.Opt != "clipboard" {
		t.Errorf("ConfigError.Opt = %q, want %q", configErr.Opt, "clipboard")
	}
}

func TestLoadFileConfig_NegativeWorkers(t *testing.T) {
	path := writeConfig(t, `
[audit]
workers = -1
`)

	if _, err := LoadFileConfig(path); err == nil {
		t.Error("expected error for negative worker count")
	}
}

func TestLoadFileConfig_MissingExplicitPath(t *testing.T) {
	if _, err := LoadFileConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("expected error for missing explicit config path")
	}
}
