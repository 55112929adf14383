package healthcheck

import (
	"bufio"
	"context"
	"crypto/sha1" //nolint:gosec // the HIBP range API is keyed by SHA-1
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

const (
	// DefaultRangeURL is the HIBP k-anonymity range endpoint.
	DefaultRangeURL = "https://api.pwnedpasswords.com/range/"

	// DefaultUserAgent identifies this client to the range service.
	DefaultUserAgent = "SecurePasswd-MGMT/2.0.0"

	defaultHTTPTimeout = 10 * time.Second
)

// PwnedClient queries the HIBP range API without ever transmitting a
// password or its full hash: only the first five hex characters of the
// SHA-1 digest leave the process.
type PwnedClient struct {
	client    *retryablehttp.Client
	rangeURL  string
	userAgent string
}

// PwnedClientOpt configures a [PwnedClient].
type PwnedClientOpt func(*PwnedClient)

// WithRangeURL overrides the range endpoint, mainly for tests.
func WithRangeURL(url string) PwnedClientOpt {
	return func(c *PwnedClient) {
		if !strings.HasSuffix(url, "/") {
			url += "/"
		}

		c.rangeURL = url
	}
}

// WithUserAgent overrides the request user agent.
func WithUserAgent(ua string) PwnedClientOpt {
	return func(c *PwnedClient) {
		c.userAgent = ua
	}
}

// WithHTTPTimeout overrides the per-request timeout.
func WithHTTPTimeout(d time.Duration) PwnedClientOpt {
	return func(c *PwnedClient) {
		c.client.HTTPClient.Timeout = d
	}
}

// NewPwnedClient creates a range-API client with retry support.
func NewPwnedClient(opts ...PwnedClientOpt) *PwnedClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.Logger = nil
	client.HTTPClient.Timeout = defaultHTTPTimeout

	c := &PwnedClient{
		client:    client,
		rangeURL:  DefaultRangeURL,
		userAgent: DefaultUserAgent,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Check reports how many times the password appears in known breaches,
// or 0 if it does not appear in the response for its hash range.
func (c *PwnedClient) Check(ctx context.Context, password string) (int, error) {
	sum := sha1.Sum([]byte(password)) //nolint:gosec
	digest := strings.ToUpper(hex.EncodeToString(sum[:]))

	prefix, suffix := digest[:5], digest[5:]

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.rangeURL+prefix, nil)
	if err != nil {
		return 0, fmt.Errorf("pwned check: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("pwned check: %w", err)
	}
	defer func() { _ = resp.Body.Close() }() //nolint:wsl

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pwned check: unexpected status %s", resp.Status)
	}

	return scanRange(resp.Body, suffix)
}

// scanRange parses the `<35-hex-suffix>:<decimal-count>` response lines
// and returns the count for the matching suffix, if any.
func scanRange(r io.Reader, suffix string) (int, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		lineSuffix, count, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		if strings.EqualFold(lineSuffix, suffix) {
			n, err := strconv.Atoi(strings.TrimSpace(count))
			if err != nil {
				return 0, fmt.Errorf("pwned check: malformed count %q: %w", count, err)
			}

			return n, nil
		}
	}

	if err := scanner.Err(); err != nil {
		return 0, fmt.Errorf("pwned check: read response: %w", err)
	}

	return 0, nil
}

// nopLogger is the default auditor logger.
func nopLogger() zerolog.Logger { return zerolog.Nop() }
