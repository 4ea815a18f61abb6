// Package hudson is a client for the job-management HTTP API of a
// Hudson/Jenkins CI server.
//
// Every call is a single request/response with no retries. Connection
// failures (refused, DNS, timeout) wrap ErrServerUnreachable; failures after
// the connection was made wrap ErrTransport.
package hudson

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alexander-akhmetov/hudson/internal/debug"
	"github.com/alexander-akhmetov/hudson/internal/domain"
	"github.com/alexander-akhmetov/hudson/internal/protocol"
)

// DefaultTimeout bounds every request when no other timeout is configured.
const DefaultTimeout = 5 * time.Second

// maxErrorBody caps how much of an error response body is kept.
const maxErrorBody = 512

var (
	// ErrServerUnreachable means the server could not be reached at all.
	ErrServerUnreachable = errors.New("server unreachable")
	// ErrTransport means a request failed after reaching the server.
	ErrTransport = errors.New("transport error")
	// ErrJobNotFound means the server has no job with the given name or URL.
	ErrJobNotFound = errors.New("job not found")
)

// StatusError is an unexpected HTTP response status.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unexpected status code: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status code: %d: %s", e.Code, e.Reason)
}

// Client talks to one server endpoint.
type Client struct {
	endpoint domain.Endpoint
	baseURL  *url.URL
	client   *http.Client
	withAuth func(req *http.Request)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the per-request timeout, and the dial and TLS handshake
// timeouts of the transport. Zero keeps the default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d <= 0 {
			return
		}
		transport := c.client.Transport
		if t, ok := transport.(*http.Transport); ok {
			t = t.Clone()
			t.DialContext = (&net.Dialer{Timeout: d}).DialContext
			t.TLSHandshakeTimeout = d
			transport = t
		}
		c.client = &http.Client{Timeout: d, Transport: transport}
	}
}

// WithBasicAuth authenticates every request.
func WithBasicAuth(username, password string) Option {
	return func(c *Client) {
		if username == "" {
			return
		}
		c.withAuth = func(req *http.Request) {
			req.SetBasicAuth(username, password)
		}
	}
}

// New creates a client for the server at ep.
func New(ep domain.Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint: ep,
		baseURL:  &url.URL{Scheme: "http", Host: ep.Address(), Path: "/"},
		client: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: newTransport(DefaultTimeout),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newTransport(timeout time.Duration) *http.Transport {
	return &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: timeout}).DialContext,
		TLSHandshakeTimeout: timeout,
	}
}

// Endpoint returns the server endpoint.
func (c *Client) Endpoint() domain.Endpoint {
	return c.endpoint
}

// JobURL returns the job's URL with a trailing slash, as the server lists it.
func (c *Client) JobURL(name string) string {
	return c.baseURL.JoinPath("job", url.PathEscape(name)).String() + "/"
}

// BuildURL returns the URL that triggers a build of the job.
func (c *Client) BuildURL(name string) string {
	return c.baseURL.JoinPath("job", url.PathEscape(name), "build").String()
}

func (c *Client) resolve(ref string) (*url.URL, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to parse url %q: %w", ref, err)
	}
	return c.baseURL.ResolveReference(u), nil
}

func (c *Client) newRequest(ctx context.Context, method string, u *url.URL, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.withAuth != nil {
		c.withAuth(req)
	}
	return req, nil
}

// do performs req and classifies network failures.
func (c *Client) do(req *http.Request) (*http.Response, error) {
	start := time.Now()
	res, err := c.client.Do(req)
	if err != nil {
		debug.Log().Str("method", req.Method).Stringer("url", req.URL).Str("took", debug.Since(start)).Err(err).Msg("hudson: request failed")
		return nil, c.classify(err)
	}
	debug.Log().Str("method", req.Method).Stringer("url", req.URL).Int("status", res.StatusCode).Str("took", debug.Since(start)).Msg("hudson: request")
	return res, nil
}

func (c *Client) classify(err error) error {
	if isUnreachable(err) {
		return fmt.Errorf("%w at %s: %v", ErrServerUnreachable, c.endpoint, err)
	}
	return fmt.Errorf("%w talking to %s: %v", ErrTransport, c.endpoint, err)
}

// isUnreachable reports whether err happened before a connection existed,
// or the server never answered in time.
func isUnreachable(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// readReason extracts the server's explanation for a failed request.
func readReason(res *http.Response) string {
	if msg := strings.TrimSpace(res.Header.Get(protocol.HeaderError)); msg != "" {
		return msg
	}
	body, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	return strings.TrimSpace(string(body))
}

// drain discards the rest of the body so the connection can be reused.
func drain(res *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(res.Body, 64<<10))
	res.Body.Close()
}
