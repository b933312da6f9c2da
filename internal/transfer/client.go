package transfer

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"streamgrab/internal/services"
)

// ClientOptions tunes the shared HTTP client.
type ClientOptions struct {
	UserAgent             string
	ResponseHeaderTimeout time.Duration
	// RequestsPerSecond paces requests across all engines. Zero disables pacing.
	RequestsPerSecond float64
	// Transport overrides the default tuned transport (tests).
	Transport http.RoundTripper
}

// Client issues GET requests on behalf of the engines and the resolver.
type Client struct {
	http      *http.Client
	userAgent string
	limiter   *rate.Limiter
}

// NewClient builds a Client. No overall request timeout is set: a body
// download may legitimately take hours, so only header arrival is bounded.
func NewClient(opts ClientOptions) *Client {
	transport := opts.Transport
	if transport == nil {
		transport = newTransport(opts.ResponseHeaderTimeout)
	}
	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = max(1, int(opts.RequestsPerSecond))
	}
	return &Client{
		http:      &http.Client{Transport: transport},
		userAgent: strings.TrimSpace(opts.UserAgent),
		limiter:   rate.NewLimiter(limit, burst),
	}
}

func newTransport(headerTimeout time.Duration) *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 16
	t.IdleConnTimeout = 30 * time.Second
	if headerTimeout > 0 {
		t.ResponseHeaderTimeout = headerTimeout
	}
	return t
}

// Get fetches rawURL with the configured headers. Any non-2xx status is a
// network error; the caller owns the returned body.
func (c *Client) Get(ctx context.Context, rawURL, referer string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, services.Wrap(services.ErrNetwork, "http", "rate limit", rawURL, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, services.Wrap(services.ErrParse, "http", "build request", rawURL, err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if referer = strings.TrimSpace(referer); referer != "" {
		req.Header.Set("Referer", referer)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "http", "get", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, services.Wrap(services.ErrNetwork, "http", "get", fmt.Sprintf("%s returned %s", rawURL, resp.Status), nil)
	}
	return resp, nil
}

// Fetch returns the whole body of rawURL, bounded by limit bytes.
func (c *Client) Fetch(ctx context.Context, rawURL, referer string, limit int64) ([]byte, error) {
	resp, err := c.Get(ctx, rawURL, referer)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, services.Wrap(services.ErrNetwork, "http", "read body", rawURL, err)
	}
	return body, nil
}
