// Package onboard implements the user-facing flows of hudson: registering a
// local project as a CI job, listing jobs, and tearing them down.
//
// Every flow prints its progress to the Orchestrator's writer and reports a
// failure as a single *Error whose message names the path or endpoint
// involved.
package onboard

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/alexander-akhmetov/hudson/internal/domain"
	"github.com/alexander-akhmetov/hudson/internal/hudson"
	"github.com/alexander-akhmetov/hudson/internal/jobconfig"
	"github.com/alexander-akhmetov/hudson/internal/scm"
)

// Client is the subset of the CI API the flows use.
type Client interface {
	Probe(ctx context.Context) (domain.ServerInfo, error)
	CreateJob(ctx context.Context, name string, cfg *jobconfig.Config) (hudson.CreateResult, error)
	Summary(ctx context.Context) ([]domain.JobSummary, error)
	DeleteJob(ctx context.Context, jobURL string) error
	DeleteJobByName(ctx context.Context, name string) error
	JobConfig(ctx context.Context, name string) ([]byte, error)
	BuildURL(name string) string
}

// ClientFactory creates a Client for an endpoint.
type ClientFactory func(ep domain.Endpoint) Client

// Discoverer finds the SCM managing a directory.
type Discoverer interface {
	Discover(dir string) (scm.Handle, error)
}

// Error is a failure reported to the user. Msg is printed as is; Err keeps
// the cause for errors.Is checks.
type Error struct {
	Msg string
	Err error
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Err }

func failf(cause error, format string, args ...any) *Error {
	return &Error{Msg: fmt.Sprintf(format, args...), Err: cause}
}

// connectionFailed reports a network failure talking to ep.
func connectionFailed(ep domain.Endpoint, cause error) *Error {
	return failf(cause, "Failed connection to %s", ep)
}

// isNetwork reports whether err came from talking to the server rather than
// from local validation.
func isNetwork(err error) bool {
	return errors.Is(err, hudson.ErrServerUnreachable) || errors.Is(err, hudson.ErrTransport)
}

// Orchestrator runs the flows.
type Orchestrator struct {
	out       io.Writer
	newClient ClientFactory
	detector  Discoverer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClientFactory replaces how API clients are created.
func WithClientFactory(f ClientFactory) Option {
	return func(o *Orchestrator) { o.newClient = f }
}

// WithDetector replaces the SCM detector.
func WithDetector(d Discoverer) Option {
	return func(o *Orchestrator) { o.detector = d }
}

// New creates an Orchestrator that prints to out.
func New(out io.Writer, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		out:       out,
		newClient: DefaultClientFactory(),
		detector:  scm.NewDetector(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// DefaultClientFactory returns a factory creating real API clients.
func DefaultClientFactory(opts ...hudson.Option) ClientFactory {
	return func(ep domain.Endpoint) Client {
		return hudson.New(ep, opts...)
	}
}

// client validates ep and creates a client for it.
func (o *Orchestrator) client(ep domain.Endpoint) (Client, error) {
	if err := ep.Validate(); err != nil {
		return nil, failf(err, "%s", err)
	}
	return o.newClient(ep), nil
}

func (o *Orchestrator) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(o.out, format, args...)
}
