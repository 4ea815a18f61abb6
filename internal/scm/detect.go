package scm

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/alexander-akhmetov/hudson/internal/debug"
)

// CommandRunner runs an external command in dir and returns its stdout.
type CommandRunner func(dir, name string, args ...string) ([]byte, error)

// Detector probes project directories for VCS metadata.
type Detector struct {
	run CommandRunner
}

// Option configures a Detector.
type Option func(*Detector)

// WithCommandRunner replaces the runner used for systems whose remote can
// only be read through their own CLI (svn).
func WithCommandRunner(run CommandRunner) Option {
	return func(d *Detector) { d.run = run }
}

// NewDetector creates a Detector.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{run: execRunner}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Discover detects the SCM managing dir using the default Detector.
func Discover(dir string) (Handle, error) {
	return NewDetector().Discover(dir)
}

// Discover walks from dir towards the filesystem root. At each level the
// markers are checked in Supported order and the first match wins.
func (d *Detector) Discover(dir string) (Handle, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return Handle{}, fmt.Errorf("resolve %s: %w", dir, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return Handle{}, fmt.Errorf("stat %s: %w", abs, err)
	}
	if !info.IsDir() {
		return Handle{}, fmt.Errorf("%s is not a directory", abs)
	}

	for cur := abs; ; {
		for _, kind := range priority {
			if !hasMarker(kind, cur) {
				continue
			}
			debug.Logf("scm: found %s metadata in %s", kind, cur)
			remote, err := d.remote(kind, cur)
			if err != nil {
				return Handle{}, err
			}
			return NewHandle(kind, remote)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			break
		}
		cur = parent
	}
	return Handle{}, fmt.Errorf("%w in %s", ErrNoSCMDetected, abs)
}

// marker returns the metadata entry that identifies a working copy root.
func marker(kind Kind) string {
	switch kind {
	case KindGit:
		return ".git"
	case KindHg:
		return ".hg"
	case KindBzr:
		return ".bzr"
	case KindSvn:
		return ".svn"
	default:
		return ""
	}
}

func hasMarker(kind Kind, dir string) bool {
	info, err := os.Stat(filepath.Join(dir, marker(kind)))
	if err != nil {
		return false
	}
	// .git is a file in linked worktrees and submodules.
	return info.IsDir() || kind == KindGit
}

func (d *Detector) remote(kind Kind, root string) (string, error) {
	switch kind {
	case KindGit:
		return gitRemote(root)
	case KindHg:
		return hgRemote(root)
	case KindBzr:
		return bzrRemote(root)
	case KindSvn:
		return d.svnRemote(root)
	default:
		return "", fmt.Errorf("unsupported SCM kind %q", kind)
	}
}

// gitRemote returns the first URL of "origin", or of the first remote by name.
func gitRemote(root string) (string, error) {
	r, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return "", fmt.Errorf("open git repo at %s: %w", root, err)
	}

	remote, err := r.Remote(git.DefaultRemoteName)
	if errors.Is(err, git.ErrRemoteNotFound) {
		remotes, lerr := r.Remotes()
		if lerr != nil {
			return "", fmt.Errorf("list git remotes at %s: %w", root, lerr)
		}
		if len(remotes) == 0 {
			return "", fmt.Errorf("%w for git repo at %s", ErrNoRemoteConfigured, root)
		}
		sort.Slice(remotes, func(i, j int) bool {
			return remotes[i].Config().Name < remotes[j].Config().Name
		})
		remote, err = remotes[0], nil
	}
	if err != nil {
		return "", fmt.Errorf("read git remote at %s: %w", root, err)
	}

	urls := remote.Config().URLs
	if len(urls) == 0 || urls[0] == "" {
		return "", fmt.Errorf("%w for git remote %q at %s", ErrNoRemoteConfigured, remote.Config().Name, root)
	}
	return resolveLocal(root, urls[0]), nil
}

// hgRemote reads [paths] default (or default-push) from .hg/hgrc.
func hgRemote(root string) (string, error) {
	path := filepath.Join(root, ".hg", "hgrc")
	data, err := os.ReadFile(path) //nolint:gosec // repository metadata
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w for hg repo at %s", ErrNoRemoteConfigured, root)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	conf := parseHgrc(data)
	remote := conf.get("paths", "default")
	if remote == "" {
		remote = conf.get("paths", "default-push")
	}
	if remote == "" {
		return "", fmt.Errorf("%w for hg repo at %s", ErrNoRemoteConfigured, root)
	}
	return resolveLocal(root, remote), nil
}

// bzrRemote reads the parent, push, or bound location from branch.conf.
func bzrRemote(root string) (string, error) {
	path := filepath.Join(root, ".bzr", "branch", "branch.conf")
	data, err := os.ReadFile(path) //nolint:gosec // repository metadata
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w for bzr branch at %s", ErrNoRemoteConfigured, root)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}

	conf := parseBzrConf(data)
	for _, key := range []string{"parent_location", "push_location", "bound_location"} {
		if v := conf.get("", key); v != "" {
			return resolveLocal(root, v), nil
		}
	}
	return "", fmt.Errorf("%w for bzr branch at %s", ErrNoRemoteConfigured, root)
}

// svnRemote asks the svn client for the working copy URL.
func (d *Detector) svnRemote(root string) (string, error) {
	out, err := d.run(root, "svn", "info", "--show-item", "url", root)
	if err != nil {
		return "", fmt.Errorf("%w for svn working copy at %s: svn info: %v", ErrNoRemoteConfigured, root, err)
	}
	remote := strings.TrimSpace(string(out))
	if remote == "" {
		return "", fmt.Errorf("%w for svn working copy at %s", ErrNoRemoteConfigured, root)
	}
	return remote, nil
}

// resolveLocal makes relative filesystem remotes absolute against root.
func resolveLocal(root, remote string) string {
	if strings.Contains(remote, "://") || strings.Contains(remote, ":") || filepath.IsAbs(remote) {
		return remote
	}
	return filepath.Clean(filepath.Join(root, remote))
}

func execRunner(dir, name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	return cmd.Output()
}
