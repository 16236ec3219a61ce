// Package requester implements the rate-limited HTTP access layer shared
// by every fetch path that talks to SEC EDGAR.
//
// SEC fair-access rules cap automated traffic at a fixed requests-per-second
// ceiling and require an identifying User-Agent. Exceeding the ceiling is a
// policy violation that gets the caller blocked, so the limiter lives inside
// the client itself rather than being left to callers.
package requester

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	// HostWWW serves archives, directory indexes and reference pages.
	HostWWW = "www.sec.gov"
	// HostData serves the submissions and XBRL JSON APIs.
	HostData = "data.sec.gov"
)

// DefaultRateLimit is the SEC fair-access ceiling of 10 requests per second.
const DefaultRateLimit = rate.Limit(10)

// Identity identifies the requester to SEC EDGAR. All three fields are
// required for non-anonymous access; a missing field is a configuration
// error, not a retryable fault.
type Identity struct {
	Company string
	Name    string
	Email   string
}

func (id Identity) userAgent() string {
	return fmt.Sprintf("%s %s %s", id.Company, id.Name, id.Email)
}

func (id Identity) validate() error {
	if id.Company == "" || id.Name == "" || id.Email == "" {
		return fmt.Errorf("requester: identity requires company, name and email")
	}
	return nil
}

// FetchError reports a non-2xx response or a transport failure. Retry
// policy, if any, belongs to the caller.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Requester issues GET requests with the SEC identity headers attached and
// the request rate capped process-wide. It is safe for concurrent use: the
// limiter is the single serialized resource, so scrape tasks sharing one
// Requester keep correct call spacing.
type Requester struct {
	http     *resty.Client
	limiter  *rate.Limiter
	identity Identity
}

// Option customizes a Requester.
type Option func(*Requester)

// WithRateLimit overrides the default request ceiling. Burst stays at one
// so calls are evenly spaced rather than front-loaded.
func WithRateLimit(limit rate.Limit) Option {
	return func(r *Requester) { r.limiter = rate.NewLimiter(limit, 1) }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Requester) { r.http.SetTimeout(d) }
}

// New builds a Requester for the given identity. The identity is validated
// here because requests without it are rejected by the origin.
func New(identity Identity, opts ...Option) (*Requester, error) {
	if err := identity.validate(); err != nil {
		return nil, err
	}

	r := &Requester{
		http:     resty.New().SetTimeout(30 * time.Second),
		limiter:  rate.NewLimiter(DefaultRateLimit, 1),
		identity: identity,
	}
	for _, opt := range opts {
		opt(r)
	}

	// Every outbound request waits on the limiter first, so bypassing the
	// spacing is impossible by construction.
	r.http.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return r.limiter.Wait(req.Context())
	})
	return r, nil
}

// Get fetches url with the identity headers set. Non-2xx responses come
// back as *FetchError carrying the status code.
func (r *Requester) Get(ctx context.Context, rawURL string) (*resty.Response, error) {
	req := r.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", r.identity.userAgent()).
		SetHeader("Accept-Encoding", "gzip, deflate")
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		req.SetHeader("Host", u.Host)
	}

	resp, err := req.Get(rawURL)
	if err != nil {
		return nil, &FetchError{URL: rawURL, Err: err}
	}
	if resp.IsError() {
		return nil, &FetchError{URL: rawURL, StatusCode: resp.StatusCode()}
	}
	slog.Debug("request ok", "component", "requester", "url", rawURL, "status", resp.StatusCode())
	return resp, nil
}
