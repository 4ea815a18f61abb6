// Package scm detects which version-control system manages a project
// directory and resolves the project's canonical fetch URL.
package scm

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-git/go-git/v5/plumbing/transport"
)

// Kind identifies a version-control system.
type Kind string

const (
	KindNone Kind = "none"
	KindGit  Kind = "git"
	KindHg   Kind = "hg"
	KindBzr  Kind = "bzr"
	KindSvn  Kind = "svn"
)

func (k Kind) String() string { return string(k) }

// priority is the detection order: distributed systems before centralized.
var priority = []Kind{KindGit, KindHg, KindBzr, KindSvn}

// Supported returns the recognized kinds in detection order.
func Supported() []Kind {
	out := make([]Kind, len(priority))
	copy(out, priority)
	return out
}

// SupportedList returns Supported joined for messages, e.g. "git, hg, bzr, svn".
func SupportedList() string {
	names := make([]string, len(priority))
	for i, k := range priority {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

var (
	// ErrNoSCMDetected means no recognized VCS metadata was found.
	ErrNoSCMDetected = errors.New("no SCM detected")
	// ErrNoRemoteConfigured means a VCS was found but it has no remote.
	ErrNoRemoteConfigured = errors.New("no remote configured")
	// ErrInvalidRemote means the configured remote is not a usable URL.
	ErrInvalidRemote = errors.New("invalid remote URL")
)

// Handle identifies the SCM of a project. The zero value is KindNone.
type Handle struct {
	kind      Kind
	remoteURL string
}

// None returns a handle for a project without a recognized SCM.
func None() Handle {
	return Handle{kind: KindNone}
}

// NewHandle returns a handle for kind with the given remote.
// Every kind other than KindNone needs a valid, non-empty remote URL.
func NewHandle(kind Kind, remoteURL string) (Handle, error) {
	if kind == KindNone || kind == "" {
		if remoteURL != "" {
			return Handle{}, fmt.Errorf("%w: SCM kind none cannot carry remote %q", ErrInvalidRemote, remoteURL)
		}
		return None(), nil
	}
	if !isKnown(kind) {
		return Handle{}, fmt.Errorf("unsupported SCM kind %q", kind)
	}
	remoteURL = strings.TrimSpace(remoteURL)
	if remoteURL == "" {
		return Handle{}, fmt.Errorf("%w for %s", ErrNoRemoteConfigured, kind)
	}
	if err := ValidateRemote(remoteURL); err != nil {
		return Handle{}, err
	}
	return Handle{kind: kind, remoteURL: remoteURL}, nil
}

// Kind returns the SCM kind.
func (h Handle) Kind() Kind {
	if h.kind == "" {
		return KindNone
	}
	return h.kind
}

// RemoteURL returns the canonical fetch URL, empty for KindNone.
func (h Handle) RemoteURL() string { return h.remoteURL }

// IsNone reports whether no SCM was detected.
func (h Handle) IsNone() bool { return h.Kind() == KindNone }

func (h Handle) String() string {
	if h.IsNone() {
		return string(KindNone)
	}
	return fmt.Sprintf("%s %s", h.kind, h.remoteURL)
}

// ValidateRemote checks that u parses as a fetchable remote: a URL with a
// scheme, an scp-style user@host:path, or a local path.
func ValidateRemote(u string) error {
	if u == "" {
		return fmt.Errorf("%w: empty", ErrInvalidRemote)
	}
	for _, r := range u {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: %q contains control characters", ErrInvalidRemote, u)
		}
	}
	if _, err := transport.NewEndpoint(u); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidRemote, u, err)
	}
	return nil
}

func isKnown(kind Kind) bool {
	for _, k := range priority {
		if k == kind {
			return true
		}
	}
	return false
}
