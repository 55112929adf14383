package healthcheck_test

import (
	"context"
	"crypto/sha1" //nolint:gosec
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fam007e/securepass/healthcheck"
)

// rangeHandler serves a fake HIBP range endpoint that reports every
// password in pwned as breached count times.
func rangeHandler(t *testing.T, pwned map[string]int) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, healthcheck.DefaultUserAgent, r.Header.Get("User-Agent"))

		prefix := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/"))
		require.Len(t, prefix, 5)

		// pad the response with unrelated suffixes
		fmt.Fprintf(w, "0018A45C4D1DEF81644B54AB7F969B88D65:1\r\n")

		for password, count := range pwned {
			sum := sha1.Sum([]byte(password)) //nolint:gosec
			digest := strings.ToUpper(hex.EncodeToString(sum[:]))

			if digest[:5] == prefix {
				fmt.Fprintf(w, "%s:%d\r\n", digest[5:], count)
			}
		}
	}
}

func collect(ch <-chan healthcheck.Issue) []healthcheck.Issue {
	var issues []healthcheck.Issue
	for issue := range ch {
		issues = append(issues, issue)
	}

	return issues
}

func byKind(issues []healthcheck.Issue, kind healthcheck.Kind) []healthcheck.Issue {
	var filtered []healthcheck.Issue

	for _, issue := range issues {
		if issue.Kind == kind {
			filtered = append(filtered, issue)
		}
	}

	return filtered
}

func TestAudit_LocalChecks(t *testing.T) {
	auditor := healthcheck.NewAuditor(healthcheck.WithPwnedCheck(false))

	entries := []healthcheck.Entry{
		{ID: 1, Service: "a", Password: "short"},                          // short + missing classes
		{ID: 2, Service: "b", Password: "Long-Enough-Passw0rd-Indeed!!"},  // clean
		{ID: 3, Service: "c", Password: "all lower case but long enough"}, // missing classes only
	}

	issues := collect(auditor.Audit(context.Background(), entries))

	short := byKind(issues, healthcheck.KindShort)
	require.Len(t, short, 1)
	assert.Equal(t, 1, short[0].EntryID)
	assert.Equal(t, 5, short[0].Length)

	missing := byKind(issues, healthcheck.KindMissingClasses)
	require.Len(t, missing, 2)

	assert.Equal(t, 1, missing[0].EntryID)
	assert.True(t, missing[0].Missing.Has(healthcheck.ClassUpper))
	assert.True(t, missing[0].Missing.Has(healthcheck.ClassDigit))
	assert.True(t, missing[0].Missing.Has(healthcheck.ClassOther))
	assert.False(t, missing[0].Missing.Has(healthcheck.ClassLower))

	assert.Equal(t, 3, missing[1].EntryID)
	assert.True(t, missing[1].Missing.Has(healthcheck.ClassUpper))
	assert.True(t, missing[1].Missing.Has(healthcheck.ClassDigit))
	assert.False(t, missing[1].Missing.Has(healthcheck.ClassOther)) // spaces count as other
}

func TestAudit_Reuse(t *testing.T) {
	auditor := healthcheck.NewAuditor(healthcheck.WithPwnedCheck(false))

	entries := []healthcheck.Entry{
		{ID: 1, Service: "a", Password: "Shared-Passw0rd-One!"},
		{ID: 2, Service: "b", Password: "Unique-Passw0rd-Two!"},
		{ID: 3, Service: "c", Password: "Shared-Passw0rd-One!"},
		{ID: 5, Service: "d", Password: "Shared-Passw0rd-One!"},
	}

	issues := byKind(collect(auditor.Audit(context.Background(), entries)), healthcheck.KindReused)

	require.Len(t, issues, 1)
	assert.Equal(t, []int{1, 3, 5}, issues[0].ReusedWith)
}

func TestAudit_Pwned(t *testing.T) {
	server := httptest.NewServer(rangeHandler(t, map[string]int{"password": 10434004}))
	defer server.Close()

	auditor := healthcheck.NewAuditor(
		healthcheck.WithPwnedClient(healthcheck.NewPwnedClient(healthcheck.WithRangeURL(server.URL))),
	)

	entries := []healthcheck.Entry{
		{ID: 1, Service: "a", Password: "password"},
		{ID: 2, Service: "b", Password: "Xj9#mQ2$vLp8&wRt-Unbreached"},
	}

	issues := byKind(collect(auditor.Audit(context.Background(), entries)), healthcheck.KindPwned)

	require.Len(t, issues, 1)
	assert.Equal(t, 1, issues[0].EntryID)
	assert.Positive(t, issues[0].PwnCount)
	assert.Equal(t, 10434004, issues[0].PwnCount)
}

func TestAudit_NetworkErrorIsNonFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// fail only the range holding "password"
		if strings.HasSuffix(r.URL.Path, pwnedPrefix(t, "password")) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		fmt.Fprintf(w, "%s:%d\r\n", pwnedSuffix(t, "12345678"), 42)
	}))
	defer server.Close()

	client := healthcheck.NewPwnedClient(healthcheck.WithRangeURL(server.URL))
	auditor := healthcheck.NewAuditor(
		healthcheck.WithPwnedClient(client),
		healthcheck.WithWorkers(2),
	)

	entries := []healthcheck.Entry{
		{ID: 1, Service: "a", Password: "password"},
		{ID: 2, Service: "b", Password: "12345678"},
	}

	issues := collect(auditor.Audit(context.Background(), entries))

	netErrs := byKind(issues, healthcheck.KindNetworkError)
	require.Len(t, netErrs, 1)
	assert.Equal(t, 1, netErrs[0].EntryID)

	pwned := byKind(issues, healthcheck.KindPwned)
	require.Len(t, pwned, 1)
	assert.Equal(t, 2, pwned[0].EntryID)
	assert.Equal(t, 42, pwned[0].PwnCount)
}

func TestPwnedClient_PrefixOnly(t *testing.T) {
	var requestedPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestedPath = r.URL.Path

		fmt.Fprint(w, "")
	}))
	defer server.Close()

	client := healthcheck.NewPwnedClient(healthcheck.WithRangeURL(server.URL))

	count, err := client.Check(context.Background(), "password")
	require.NoError(t, err)
	assert.Zero(t, count)

	// SHA-1("password") = 5BAA61E4C9B93F3F0682250B6CF8331B7EE68FD8
	assert.Equal(t, "/5BAA6", requestedPath)
}

func TestPwnedClient_SuffixCaseInsensitive(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, "%s:7\r\n", strings.ToLower(pwnedSuffix(t, "password")))
	}))
	defer server.Close()

	client := healthcheck.NewPwnedClient(healthcheck.WithRangeURL(server.URL))

	count, err := client.Check(context.Background(), "password")
	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func pwnedPrefix(t *testing.T, password string) string {
	t.Helper()

	sum := sha1.Sum([]byte(password)) //nolint:gosec

	return strings.ToUpper(hex.EncodeToString(sum[:]))[:5]
}

func pwnedSuffix(t *testing.T, password string) string {
	t.Helper()

	sum := sha1.Sum([]byte(password)) //nolint:gosec

	return strings.ToUpper(hex.EncodeToString(sum[:]))[5:]
}
