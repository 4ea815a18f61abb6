package onboard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aymanbagabas/go-udiff"

	"github.com/alexander-akhmetov/hudson/internal/debug"
	"github.com/alexander-akhmetov/hudson/internal/domain"
	"github.com/alexander-akhmetov/hudson/internal/hudson"
	"github.com/alexander-akhmetov/hudson/internal/jobconfig"
	"github.com/alexander-akhmetov/hudson/internal/scm"
)

// AutoProjectType selects the project type from the files in the project.
const AutoProjectType = "auto"

// CreateRequest describes a project to register.
type CreateRequest struct {
	// Path is the project directory; relative paths resolve against the cwd.
	Path string
	// Name is the job name; defaults to the directory's base name.
	Name string
	// ProjectType is a jobconfig project type, "auto", or "" for generic.
	ProjectType string
	Endpoint    domain.Endpoint
	// DryRun prints the job configuration instead of submitting it.
	DryRun bool
}

// CreateOutcome is what a successful Create did.
type CreateOutcome struct {
	Name   string
	Status hudson.CreateStatus
	// BuildURL triggers a build of the job. Empty for dry runs.
	BuildURL string
	Config   *jobconfig.Config
}

// Create detects the project's SCM, synthesizes its job configuration and
// registers it on the server. Nothing is sent to the server unless detection
// and synthesis succeed. A job that already exists is not an error.
func (o *Orchestrator) Create(ctx context.Context, req CreateRequest) (CreateOutcome, error) {
	cfg, err := o.synthesize(req)
	if err != nil {
		return CreateOutcome{}, err
	}
	name := cfg.Name()

	if req.DryRun {
		doc, err := cfg.XML()
		if err != nil {
			return CreateOutcome{}, failf(err, "%s", err)
		}
		o.printf("%s", doc)
		return CreateOutcome{Name: name, Config: cfg}, nil
	}

	c, err := o.client(req.Endpoint)
	if err != nil {
		return CreateOutcome{}, err
	}
	ep := req.Endpoint

	res, err := c.CreateJob(ctx, name, cfg)
	if err != nil {
		if isNetwork(err) {
			return CreateOutcome{}, connectionFailed(ep, err)
		}
		return CreateOutcome{}, failf(err, "Failed to create project '%s' on %s: %v", name, ep, err)
	}

	out := CreateOutcome{Name: name, Status: res.Status, BuildURL: c.BuildURL(name), Config: cfg}
	switch res.Status {
	case hudson.Created:
		o.printf("Added project '%s' to Hudson.\n", name)
		o.printf("Trigger builds via: %s\n", out.BuildURL)
	case hudson.AlreadyExists:
		o.printf("Project '%s' already exists on %s.\n", name, ep)
		o.printf("Trigger builds via: %s\n", out.BuildURL)
	default:
		return out, failf(&hudson.StatusError{Code: res.Code, Reason: res.Reason},
			"Failed to create project '%s' on %s: %s", name, ep, res.Reason)
	}
	return out, nil
}

// Diff compares the job configuration the server holds for the project
// with the one Create would submit now. It prints a unified diff, or a note
// that they match, and returns the diff.
func (o *Orchestrator) Diff(ctx context.Context, req CreateRequest) (string, error) {
	cfg, err := o.synthesize(req)
	if err != nil {
		return "", err
	}
	name := cfg.Name()
	local, err := cfg.XML()
	if err != nil {
		return "", failf(err, "%s", err)
	}

	c, err := o.client(req.Endpoint)
	if err != nil {
		return "", err
	}
	ep := req.Endpoint

	remote, err := c.JobConfig(ctx, name)
	switch {
	case errors.Is(err, hudson.ErrJobNotFound):
		return "", failf(err, "Project '%s' does not exist on %s", name, ep)
	case err != nil && isNetwork(err):
		return "", connectionFailed(ep, err)
	case err != nil:
		return "", failf(err, "%s", err)
	}

	diff := udiff.Unified(ep.String()+"/job/"+name+"/config.xml", "local", normalizeNewlines(remote), string(local))
	if diff == "" {
		o.printf("Project '%s' on %s is up to date.\n", name, ep)
		return "", nil
	}
	o.printf("%s", diff)
	return diff, nil
}

// synthesize runs detection and synthesis for req. It never touches the
// network.
func (o *Orchestrator) synthesize(req CreateRequest) (*jobconfig.Config, error) {
	path := req.Path
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, failf(err, "Cannot resolve project path %s: %v", path, err)
	}

	handle, err := o.detector.Discover(abs)
	if err != nil {
		debug.Logf("onboard: SCM detection in %s failed: %v", abs, err)
		if errors.Is(err, scm.ErrNoSCMDetected) || errors.Is(err, scm.ErrNoRemoteConfigured) || errors.Is(err, scm.ErrInvalidRemote) {
			return nil, failf(err, "Cannot determine project SCM. Currently supported: %s", scm.SupportedList())
		}
		return nil, failf(err, "%s", err)
	}
	debug.Logf("onboard: %s is managed by %s", abs, handle)

	name := req.Name
	if name == "" {
		name = filepath.Base(abs)
	}

	pt, err := resolveProjectType(req.ProjectType, abs)
	if err != nil {
		return nil, failf(err, "%s", err)
	}

	cfg, err := jobconfig.Build(pt, jobconfig.Options{Name: name, SCM: handle})
	if err != nil {
		if errors.Is(err, jobconfig.ErrInvalidJobName) {
			return nil, failf(err, "Invalid project name '%s': %v", name, err)
		}
		return nil, failf(err, "%s", err)
	}
	return cfg, nil
}

func resolveProjectType(s, dir string) (jobconfig.ProjectType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return jobconfig.Generic, nil
	case AutoProjectType:
		pt := jobconfig.DetectProjectType(dir)
		debug.Logf("onboard: detected project type %s in %s", pt, dir)
		return pt, nil
	}
	pt, err := jobconfig.ParseProjectType(s)
	if err != nil {
		return "", fmt.Errorf("%w; use %s to detect it", err, AutoProjectType)
	}
	return pt, nil
}

func normalizeNewlines(b []byte) string {
	return strings.ReplaceAll(string(b), "\r\n", "\n")
}
