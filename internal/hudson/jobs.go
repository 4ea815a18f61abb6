package hudson

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/alexander-akhmetov/hudson/internal/domain"
	"github.com/alexander-akhmetov/hudson/internal/jobconfig"
	"github.com/alexander-akhmetov/hudson/internal/protocol"
)

// CreateStatus is the outcome of a job creation.
type CreateStatus int

const (
	// Rejected means the server refused the job for a reason other than
	// a name collision.
	Rejected CreateStatus = iota
	// Created means the job now exists.
	Created
	// AlreadyExists means a job with the same name was already registered.
	AlreadyExists
)

func (s CreateStatus) String() string {
	switch s {
	case Created:
		return "created"
	case AlreadyExists:
		return "already exists"
	default:
		return "rejected"
	}
}

// CreateResult describes how the server answered a create request.
type CreateResult struct {
	Status CreateStatus
	// Code is the HTTP status code of the response.
	Code int
	// Reason is the server's explanation when the job was not created.
	Reason string
}

// OK reports whether the job was created by this request.
func (r CreateResult) OK() bool {
	return r.Status == Created
}

// Probe checks that the server is alive and returns what it reports about itself.
func (c *Client) Probe(ctx context.Context) (domain.ServerInfo, error) {
	body, res, err := c.getAPI(ctx)
	if err != nil {
		return domain.ServerInfo{}, err
	}

	version := res.Header.Get(protocol.HeaderHudson)
	if version == "" {
		version = res.Header.Get(protocol.HeaderJenkins)
	}
	return domain.ServerInfo{
		NodeDescription: gjson.GetBytes(body, "nodeDescription").String(),
		Version:         version,
		Jobs:            int(gjson.GetBytes(body, "jobs.#").Int()),
	}, nil
}

// Summary returns every job on the server. A server without jobs yields an
// empty, non-nil slice.
func (c *Client) Summary(ctx context.Context) ([]domain.JobSummary, error) {
	body, _, err := c.getAPI(ctx)
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.JobSummary, 0)
	gjson.GetBytes(body, "jobs").ForEach(func(_, job gjson.Result) bool {
		jobs = append(jobs, domain.JobSummary{
			Name:  job.Get("name").String(),
			URL:   job.Get("url").String(),
			Color: protocol.Color(job.Get("color").String()),
		})
		return true
	})
	return jobs, nil
}

// getAPI fetches /api/json. Any failure, including a non-200 answer, means
// the server is not usable and wraps ErrServerUnreachable.
func (c *Client) getAPI(ctx context.Context) ([]byte, *http.Response, error) {
	u, err := c.resolve(strings.TrimPrefix(protocol.PathAPI, "/"))
	if err != nil {
		return nil, nil, err
	}
	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.do(req)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("%w at %s: %w", ErrServerUnreachable, c.endpoint, &StatusError{Code: res.StatusCode, Reason: readReason(res)})
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("%w reading %s: %v", ErrTransport, u, err)
	}
	if !gjson.ValidBytes(body) {
		return nil, nil, fmt.Errorf("%w at %s: response from %s is not JSON", ErrServerUnreachable, c.endpoint, u)
	}
	return body, res, nil
}

// CreateJob registers a new job named name. A refusal by the server is
// reported in the result, not as an error; errors are reserved for invalid
// input and failed requests.
func (c *Client) CreateJob(ctx context.Context, name string, cfg *jobconfig.Config) (CreateResult, error) {
	if err := jobconfig.ValidateName(name); err != nil {
		return CreateResult{}, err
	}
	if cfg == nil {
		return CreateResult{}, fmt.Errorf("create job %s: no job configuration", name)
	}
	doc, err := cfg.XML()
	if err != nil {
		return CreateResult{}, fmt.Errorf("create job %s: %w", name, err)
	}

	u, err := c.resolve(strings.TrimPrefix(protocol.PathCreateItem, "/"))
	if err != nil {
		return CreateResult{}, err
	}
	u.RawQuery = url.Values{"name": {name}}.Encode()

	req, err := c.newRequest(ctx, http.MethodPost, u, bytes.NewReader(doc))
	if err != nil {
		return CreateResult{}, err
	}
	req.Header.Set("Content-Type", protocol.ContentTypeXML)

	res, err := c.do(req)
	if err != nil {
		return CreateResult{}, err
	}
	defer drain(res)

	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return CreateResult{Status: Created, Code: res.StatusCode}, nil
	}

	reason := readReason(res)
	if res.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(reason), "already exists") {
		return CreateResult{Status: AlreadyExists, Code: res.StatusCode, Reason: reason}, nil
	}
	if reason == "" {
		reason = http.StatusText(res.StatusCode)
	}
	return CreateResult{Status: Rejected, Code: res.StatusCode, Reason: reason}, nil
}

// DeleteJob removes the job at jobURL, as listed by Summary.
func (c *Client) DeleteJob(ctx context.Context, jobURL string) error {
	if jobURL == "" {
		return fmt.Errorf("delete job: empty job URL")
	}
	if !strings.HasSuffix(jobURL, "/") {
		jobURL += "/"
	}
	u, err := c.resolve(jobURL + protocol.SuffixDelete)
	if err != nil {
		return err
	}

	req, err := c.newRequest(ctx, http.MethodPost, u, nil)
	if err != nil {
		return err
	}

	res, err := c.do(req)
	if err != nil {
		return err
	}
	defer drain(res)

	switch {
	case res.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrJobNotFound, jobURL)
	case res.StatusCode >= 400:
		return fmt.Errorf("%w deleting %s: %w", ErrTransport, jobURL, &StatusError{Code: res.StatusCode, Reason: readReason(res)})
	}
	return nil
}

// DeleteJobByName removes the job called name.
func (c *Client) DeleteJobByName(ctx context.Context, name string) error {
	if err := jobconfig.ValidateName(name); err != nil {
		return err
	}
	return c.DeleteJob(ctx, c.JobURL(name))
}

// JobConfig downloads the config.xml of an existing job.
func (c *Client) JobConfig(ctx context.Context, name string) ([]byte, error) {
	if err := jobconfig.ValidateName(name); err != nil {
		return nil, err
	}
	u, err := c.resolve(c.JobURL(name) + protocol.SuffixConfig)
	if err != nil {
		return nil, err
	}

	req, err := c.newRequest(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	res, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer drain(res)

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w fetching %s config: %w", ErrTransport, name, &StatusError{Code: res.StatusCode, Reason: readReason(res)})
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("%w reading %s config: %v", ErrTransport, name, err)
	}
	return body, nil
}
