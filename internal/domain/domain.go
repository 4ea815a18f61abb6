// Package domain defines the shared value types used across hudson:
// Endpoint, JobSummary, and ServerInfo.
package domain

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/alexander-akhmetov/hudson/internal/protocol"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Endpoint is the address of a CI server's HTTP API.
type Endpoint struct {
	Host string `validate:"required,hostname_rfc1123|ip"`
	Port int    `validate:"min=1,max=65535"`
}

// Validate checks that the endpoint names a usable host and port.
func (e Endpoint) Validate() error {
	err := validate.Struct(e)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		v := verrs[0]
		return fmt.Errorf("invalid endpoint %s: %s %q fails %q", e, strings.ToLower(v.Field()), fmt.Sprint(v.Value()), v.Tag())
	}
	return fmt.Errorf("invalid endpoint %s: %w", e, err)
}

// Address returns host:port, bracketing IPv6 hosts.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// BaseURL returns the root URL of the server's HTTP API.
func (e Endpoint) BaseURL() string {
	return "http://" + e.Address()
}

func (e Endpoint) String() string {
	return e.Address()
}

// JobSummary is a job as reported by the server's listing.
type JobSummary struct {
	Name  string
	URL   string
	Color protocol.Color
}

// ServerInfo describes a live server.
type ServerInfo struct {
	// NodeDescription is the master node description from /api/json.
	NodeDescription string
	// Version comes from the X-Hudson or X-Jenkins response header, if present.
	Version string
	// Jobs is the number of jobs the server reported.
	Jobs int
}
