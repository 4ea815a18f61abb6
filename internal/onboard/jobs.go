package onboard

import (
	"context"
	"errors"
	"time"

	"github.com/alexander-akhmetov/hudson/internal/control"
	"github.com/alexander-akhmetov/hudson/internal/domain"
	"github.com/alexander-akhmetov/hudson/internal/hudson"
	"github.com/alexander-akhmetov/hudson/internal/render"
)

// ListRequest selects the server to list and the output format.
type ListRequest struct {
	Endpoint domain.Endpoint
	Format   render.Format
	// Color forces colored text output; nil detects a terminal.
	Color *bool
}

// List prints every job on the server. An empty server is not an error.
func (o *Orchestrator) List(ctx context.Context, req ListRequest) ([]domain.JobSummary, error) {
	c, err := o.client(req.Endpoint)
	if err != nil {
		return nil, err
	}
	ep := req.Endpoint

	jobs, err := c.Summary(ctx)
	if err != nil {
		return nil, connectionFailed(ep, err)
	}

	var opts []render.Option
	if req.Color != nil {
		opts = append(opts, render.WithColor(*req.Color))
	}
	r := render.New(o.out, opts...)

	if req.Format == render.FormatJSON {
		if err := r.JobsJSON(ep, jobs); err != nil {
			return nil, failf(err, "%s", err)
		}
		return jobs, nil
	}

	if len(jobs) == 0 {
		o.printf("No jobs found on %s\n", ep)
		return jobs, nil
	}
	if err := r.Jobs(jobs); err != nil {
		return nil, failf(err, "%s", err)
	}
	return jobs, nil
}

// Delete removes the job called name.
func (o *Orchestrator) Delete(ctx context.Context, ep domain.Endpoint, name string) error {
	c, err := o.client(ep)
	if err != nil {
		return err
	}

	err = c.DeleteJobByName(ctx, name)
	switch {
	case err == nil:
		o.printf("Deleted project '%s' from %s.\n", name, ep)
		return nil
	case errors.Is(err, hudson.ErrJobNotFound):
		return failf(err, "Project '%s' does not exist on %s", name, ep)
	case errors.Is(err, hudson.ErrServerUnreachable):
		return connectionFailed(ep, err)
	default:
		return failf(err, "Failed to delete project '%s' on %s: %v", name, ep, err)
	}
}

// Reset deletes every job on the server and returns how many were removed.
// It stops at the first failure.
func (o *Orchestrator) Reset(ctx context.Context, ep domain.Endpoint) (int, error) {
	c, err := o.client(ep)
	if err != nil {
		return 0, err
	}

	jobs, err := c.Summary(ctx)
	if err != nil {
		return 0, connectionFailed(ep, err)
	}

	deleted := 0
	for _, j := range jobs {
		err := c.DeleteJob(ctx, j.URL)
		switch {
		case err == nil, errors.Is(err, hudson.ErrJobNotFound):
			deleted++
		case errors.Is(err, hudson.ErrServerUnreachable):
			return deleted, connectionFailed(ep, err)
		default:
			return deleted, failf(err, "Failed to delete project '%s' on %s: %v", j.Name, ep, err)
		}
	}

	if deleted == 0 {
		o.printf("No jobs found on %s\n", ep)
	} else {
		o.printf("Deleted %d project(s) from %s.\n", deleted, ep)
	}
	return deleted, nil
}

// Status probes the server and prints what it reports.
func (o *Orchestrator) Status(ctx context.Context, ep domain.Endpoint) (domain.ServerInfo, error) {
	c, err := o.client(ep)
	if err != nil {
		return domain.ServerInfo{}, err
	}

	info, err := c.Probe(ctx)
	if err != nil {
		return domain.ServerInfo{}, connectionFailed(ep, err)
	}

	version := info.Version
	if version == "" {
		version = "unknown version"
	}
	o.printf("Hudson %s at %s: %s, %d job(s)\n", version, ep, info.NodeDescription, info.Jobs)
	return info, nil
}

// Shutdown sends the stop signal to the server's control port.
func (o *Orchestrator) Shutdown(ctx context.Context, ep domain.Endpoint, timeout time.Duration) error {
	if err := ep.Validate(); err != nil {
		return failf(err, "%s", err)
	}
	if err := control.Shutdown(ctx, ep, timeout); err != nil {
		return connectionFailed(ep, err)
	}
	o.printf("Sent shutdown signal to %s.\n", ep)
	return nil
}
