// Package healthcheck analyzes stored credentials for weak, reused and
// breached passwords.
package healthcheck

import (
	"context"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fam007e/securepass/secmem"
	"github.com/fam007e/securepass/vaulterrors"
)

// MinPasswordLength is the threshold below which a password is flagged short.
const MinPasswordLength = 16

// DefaultWorkers bounds concurrent breach-check HTTP calls.
const DefaultWorkers = 4

// ClassFlags is a bit set of character classes missing from a password.
type ClassFlags uint8

const (
	ClassUpper ClassFlags = 1 << iota
	ClassLower
	ClassDigit
	ClassOther
)

// Has reports whether flag is set.
func (f ClassFlags) Has(flag ClassFlags) bool { return f&flag != 0 }

func (f ClassFlags) String() string {
	names := []struct {
		flag ClassFlags
		name string
	}{
		{ClassUpper, "uppercase"},
		{ClassLower, "lowercase"},
		{ClassDigit, "digit"},
		{ClassOther, "symbol"},
	}

	s := ""
	for _, n := range names {
		if !f.Has(n.flag) {
			continue
		}

		if len(s) > 0 {
			s += ","
		}

		s += n.name
	}

	return s
}

// Kind discriminates the issue variants.
type Kind int

const (
	KindShort Kind = iota + 1
	KindMissingClasses
	KindReused
	KindPwned
	KindNetworkError
)

// Issue is a single finding for an entry.
type Issue struct {
	EntryID int
	Service string
	Kind    Kind

	Length     int        // KindShort: password length
	Missing    ClassFlags // KindMissingClasses: absent classes
	ReusedWith []int      // KindReused: all entry ids sharing the password, insertion order
	PwnCount   int        // KindPwned: breach occurrence count
	Err        error      // KindNetworkError: the underlying failure
}

// Entry is the auditor's read-only view of a credential.
type Entry struct {
	ID       int
	Service  string
	Password string
}

// Auditor runs the local and remote password health checks.
type Auditor struct {
	pwned        *PwnedClient
	pwnedEnabled bool
	workers      int
	logger       zerolog.Logger
}

// AuditorOpt configures an [Auditor].
type AuditorOpt func(*Auditor)

// WithPwnedClient overrides the breach-check client.
func WithPwnedClient(c *PwnedClient) AuditorOpt {
	return func(a *Auditor) {
		a.pwned = c
	}
}

// WithWorkers sets the breach-check worker pool size.
func WithWorkers(n int) AuditorOpt {
	return func(a *Auditor) {
		if n > 0 {
			a.workers = n
		}
	}
}

// WithLogger sets the diagnostics logger. Secret material is never logged.
func WithLogger(l zerolog.Logger) AuditorOpt {
	return func(a *Auditor) {
		a.logger = l
	}
}

// WithPwnedCheck toggles the remote breach-check phase.
// Local checks always run.
func WithPwnedCheck(enabled bool) AuditorOpt {
	return func(a *Auditor) {
		a.pwnedEnabled = enabled
	}
}

// NewAuditor creates an auditor with the default breach-check client.
func NewAuditor(opts ...AuditorOpt) *Auditor {
	a := &Auditor{
		pwned:        NewPwnedClient(),
		pwnedEnabled: true,
		workers:      DefaultWorkers,
		logger:       nopLogger(),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Audit streams issues for the given entries.
//
// Local checks run first, then reuse groups, then breach checks on a
// bounded worker pool. Issues are delivered in entry-insertion order
// within each phase. A failed HTTP call for one entry yields a
// KindNetworkError issue for that entry only; the audit continues.
// Cancelling ctx stops outstanding HTTP work; accumulated results are
// still delivered before the channel closes.
func (a *Auditor) Audit(ctx context.Context, entries []Entry) <-chan Issue {
	out := make(chan Issue)

	go func() {
		defer close(out)

		for _, e := range entries {
			for _, issue := range localIssues(e) {
				if !send(ctx, out, issue) {
					return
				}
			}
		}

		for _, issue := range reuseIssues(entries) {
			if !send(ctx, out, issue) {
				return
			}
		}

		if !a.pwnedEnabled {
			return
		}

		for _, issue := range a.pwnedIssues(ctx, entries) {
			// deliver accumulated results even after cancellation
			out <- issue
		}
	}()

	return out
}

func send(ctx context.Context, out chan<- Issue, issue Issue) bool {
	select {
	case out <- issue:
		return true
	case <-ctx.Done():
		return false
	}
}

// localIssues runs the length and character-class checks for one entry.
func localIssues(e Entry) []Issue {
	var issues []Issue

	if n := len(e.Password); n > 0 && n < MinPasswordLength {
		issues = append(issues, Issue{
			EntryID: e.ID,
			Service: e.Service,
			Kind:    KindShort,
			Length:  n,
		})
	}

	if missing := missingClasses(e.Password); len(e.Password) > 0 && missing != 0 {
		issues = append(issues, Issue{
			EntryID: e.ID,
			Service: e.Service,
			Kind:    KindMissingClasses,
			Missing: missing,
		})
	}

	return issues
}

func missingClasses(password string) ClassFlags {
	var present ClassFlags

	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			present |= ClassUpper
		case unicode.IsLower(r):
			present |= ClassLower
		case unicode.IsDigit(r):
			present |= ClassDigit
		default:
			present |= ClassOther
		}
	}

	return ^present & (ClassUpper | ClassLower | ClassDigit | ClassOther)
}

// reuseIssues groups entries by exact password equality and emits one
// issue per group of size > 1, ids in insertion order. Comparisons within
// a group run in constant time.
func reuseIssues(entries []Entry) []Issue {
	var issues []Issue

	grouped := make([]bool, len(entries))

	for i, e := range entries {
		if grouped[i] || len(e.Password) == 0 {
			continue
		}

		ids := []int{e.ID}

		for j := i + 1; j < len(entries); j++ {
			if grouped[j] {
				continue
			}

			if secmem.Equal([]byte(e.Password), []byte(entries[j].Password)) {
				ids = append(ids, entries[j].ID)
				grouped[j] = true
			}
		}

		if len(ids) > 1 {
			issues = append(issues, Issue{
				EntryID:    e.ID,
				Service:    e.Service,
				Kind:       KindReused,
				ReusedWith: ids,
			})
		}
	}

	return issues
}

// pwnedIssues runs the breach check for every entry on a bounded worker
// pool and returns the findings in entry-insertion order.
func (a *Auditor) pwnedIssues(ctx context.Context, entries []Entry) []Issue {
	results := make([]*Issue, len(entries))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(a.workers)

	for i, e := range entries {
		if len(e.Password) == 0 {
			continue
		}

		g.Go(func() error {
			count, err := a.pwned.Check(ctx, e.Password)
			if err != nil {
				a.logger.Debug().Int("entry", e.ID).Err(err).Msg("breach range lookup failed")

				results[i] = &Issue{
					EntryID: e.ID,
					Service: e.Service,
					Kind:    KindNetworkError,
					Err:     &vaulterrors.NetworkError{ID: e.ID, Err: err},
				}

				return nil
			}

			a.logger.Debug().Int("entry", e.ID).Int("count", count).Msg("breach range lookup complete")

			if count > 0 {
				results[i] = &Issue{
					EntryID:  e.ID,
					Service:  e.Service,
					Kind:     KindPwned,
					PwnCount: count,
				}
			}

			return nil
		})
	}

	_ = g.Wait()

	issues := make([]Issue, 0, len(entries))
	for _, r := range results {
		if r != nil {
			issues = append(issues, *r)
		}
	}

	return issues
}
