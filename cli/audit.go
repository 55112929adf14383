package cli

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fam007e/securepass/clierror"
	"github.com/fam007e/securepass/genericclioptions"
	"github.com/fam007e/securepass/healthcheck"
)

// AuditOptions holds data required to run the command.
type AuditOptions struct {
	*genericclioptions.StdioOptions
	*VaultOptions

	configOptions *ConfigOptions

	local   bool // local skips the remote breach check.
	workers int

	auditor *healthcheck.Auditor
}

var _ genericclioptions.CmdOptions = &AuditOptions{}

// NewAuditOptions initializes the options struct.
func NewAuditOptions(stdio *genericclioptions.StdioOptions, vaultOptions *VaultOptions, configOptions *ConfigOptions) *AuditOptions {
	return &AuditOptions{
		StdioOptions:  stdio,
		VaultOptions:  vaultOptions,
		configOptions: configOptions,
	}
}

// Complete builds the auditor from flags and file config.
func (o *AuditOptions) Complete() error {
	opts := []healthcheck.AuditorOpt{
		healthcheck.WithLogger(o.logger),
		healthcheck.WithPwnedCheck(!o.local),
	}

	workers := o.workers
	if workers == 0 && o.configOptions.resolved != nil {
		workers = o.configOptions.resolved.Audit.Workers
	}

	if workers > 0 {
		opts = append(opts, healthcheck.WithWorkers(workers))
	}

	if o.configOptions.resolved != nil && len(o.configOptions.resolved.Audit.HTTPTimeout) > 0 {
		timeout, err := time.ParseDuration(o.configOptions.resolved.Audit.HTTPTimeout)
		if err != nil {
			return &ConfigError{Opt: "audit.http_timeout", Err: err}
		}

		opts = append(opts, healthcheck.WithPwnedClient(
			healthcheck.NewPwnedClient(healthcheck.WithHTTPTimeout(timeout)),
		))
	}

	o.auditor = healthcheck.NewAuditor(opts...)

	return nil
}

func (*AuditOptions) Validate() error { return nil }

// Run audits all entries and prints one line per finding.
func (o *AuditOptions) Run(ctx context.Context, _ ...string) error {
	entries, err := o.vault.Entries(ctx)
	if err != nil {
		return err
	}

	records := make([]healthcheck.Entry, 0, len(entries))
	for _, e := range entries {
		records = append(records, healthcheck.Entry{
			ID:       e.ID,
			Service:  e.Service,
			Password: e.Password,
		})
	}

	found := 0

	for issue := range o.auditor.Audit(ctx, records) {
		found++

		o.printIssue(issue)
	}

	if found == 0 {
		o.Infof("no issues found across %d entries\n", len(records))
	}

	return nil
}

func (o *AuditOptions) printIssue(issue healthcheck.Issue) {
	switch issue.Kind {
	case healthcheck.KindShort:
		o.Printf("entry %d (%s): password is short (%d characters)\n", issue.EntryID, issue.Service, issue.Length)
	case healthcheck.KindMissingClasses:
		o.Printf("entry %d (%s): password is missing %s characters\n", issue.EntryID, issue.Service, issue.Missing)
	case healthcheck.KindReused:
		ids := make([]string, 0, len(issue.ReusedWith))
		for _, id := range issue.ReusedWith {
			ids = append(ids, strconv.Itoa(id))
		}

		o.Printf("entries %s: password is reused\n", strings.Join(ids, ", "))
	case healthcheck.KindPwned:
		o.Printf("entry %d (%s): password appears in %d known breaches\n", issue.EntryID, issue.Service, issue.PwnCount)
	case healthcheck.KindNetworkError:
		o.Errorf("entry %d (%s): breach check failed: %v\n", issue.EntryID, issue.Service, issue.Err)
	}
}

// NewCmdAudit creates the audit cobra command.
func NewCmdAudit(defaults *DefaultSecurepassOptions) *cobra.Command {
	o := NewAuditOptions(defaults.StdioOptions, defaults.vaultOptions, defaults.configOptions)

	cmd := &cobra.Command{
		Use:     "audit",
		Aliases: []string{"health"},
		Short:   "Audit password health",
		Long: `Audit all stored passwords for weaknesses: short length, missing
character classes, reuse across entries, and appearance in known
breaches via the Have-I-Been-Pwned k-anonymity range API.

Only the first five characters of each password's SHA-1 digest are ever
transmitted; the passwords themselves never leave this machine.`,
		Run: func(cmd *cobra.Command, args []string) {
			clierror.Check(genericclioptions.ExecuteCommand(cmd.Context(), o, args...))
		},
	}

	cmd.Flags().BoolVarP(&o.local, "local", "", false, "skip the remote breach check")
	cmd.Flags().IntVarP(&o.workers, "workers", "w", 0, "concurrent breach-check requests")

	return cmd
}
