// Package jobconfig synthesizes server-side job definitions for a project.
//
// A Config is built once from a ProjectType template and caller Options,
// and is never mutated afterwards. Build is pure: identical inputs produce
// identical configs and byte-identical XML.
package jobconfig

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/alexander-akhmetov/hudson/internal/scm"
)

var (
	// ErrInvalidJobName means the server cannot represent the job name.
	ErrInvalidJobName = errors.New("invalid job name")
	// ErrNoSCM means the job has no SCM to build from.
	ErrNoSCM = errors.New("job has no SCM")
	// ErrUnknownProjectType means no template exists for the project type.
	ErrUnknownProjectType = errors.New("unknown project type")
)

// unsafeNameChars are rejected by the server in job names.
const unsafeNameChars = `?*/\%!@#$^&|<>[]:;`

// ProjectType selects the default build steps and triggers.
type ProjectType string

const (
	Generic ProjectType = "generic"
	RubyGem ProjectType = "rubygem"
	Rails   ProjectType = "rails"
	Golang  ProjectType = "golang"
	Node    ProjectType = "node"
)

func (p ProjectType) String() string { return string(p) }

// TriggerKind is the kind of build trigger.
type TriggerKind string

const (
	// TriggerPoll polls the SCM on a cron schedule.
	TriggerPoll TriggerKind = "poll"
	// TriggerTimer builds on a cron schedule regardless of changes.
	TriggerTimer TriggerKind = "timer"
)

// Trigger starts builds on a cron-style schedule.
type Trigger struct {
	Kind TriggerKind
	Spec string
}

// Step is a shell build step.
type Step struct {
	Command string
}

type template struct {
	steps    []string
	triggers []Trigger
}

const defaultPollSpec = "*/5 * * * *"

var templates = map[ProjectType]template{
	Generic: {
		steps:    []string{"make"},
		triggers: []Trigger{{Kind: TriggerPoll, Spec: defaultPollSpec}},
	},
	RubyGem: {
		steps:    []string{"bundle install", "bundle exec rake"},
		triggers: []Trigger{{Kind: TriggerPoll, Spec: defaultPollSpec}},
	},
	Rails: {
		steps:    []string{"bundle install", "bundle exec rake db:schema:load", "bundle exec rake"},
		triggers: []Trigger{{Kind: TriggerPoll, Spec: defaultPollSpec}},
	},
	Golang: {
		steps:    []string{"go vet ./...", "go test ./..."},
		triggers: []Trigger{{Kind: TriggerPoll, Spec: defaultPollSpec}},
	},
	Node: {
		steps:    []string{"npm ci", "npm test"},
		triggers: []Trigger{{Kind: TriggerPoll, Spec: defaultPollSpec}},
	},
}

// ProjectTypes returns all project types in a stable order.
func ProjectTypes() []ProjectType {
	return []ProjectType{Generic, RubyGem, Rails, Golang, Node}
}

// ParseProjectType parses a project type name.
func ParseProjectType(s string) (ProjectType, error) {
	p := ProjectType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := templates[p]; !ok {
		return "", fmt.Errorf("%w %q (expected one of %s)", ErrUnknownProjectType, s, projectTypeList())
	}
	return p, nil
}

func projectTypeList() string {
	names := make([]string, 0, len(templates))
	for _, p := range ProjectTypes() {
		names = append(names, p.String())
	}
	return strings.Join(names, ", ")
}

// Options are the caller-supplied settings for a job.
type Options struct {
	// Name is the job name on the server.
	Name string
	// SCM is the project's source control; must not be KindNone.
	SCM scm.Handle
	// Description overrides the generated description.
	Description string
	// Branch overrides the branch to build (git "**", hg "default").
	Branch string
	// Steps replaces the template's build steps when non-empty.
	Steps []Step
	// Triggers replaces the template's triggers when non-nil.
	Triggers []Trigger
}

// Config is a complete job definition.
type Config struct {
	name        string
	projectType ProjectType
	scm         scm.Handle
	description string
	branch      string
	triggers    []Trigger
	steps       []Step
}

// Build synthesizes a job definition from the template for projectType.
func Build(projectType ProjectType, opts Options) (*Config, error) {
	tmpl, ok := templates[projectType]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownProjectType, projectType)
	}
	if err := ValidateName(opts.Name); err != nil {
		return nil, err
	}
	if opts.SCM.IsNone() {
		return nil, fmt.Errorf("%w: %s", ErrNoSCM, opts.Name)
	}

	cfg := &Config{
		name:        opts.Name,
		projectType: projectType,
		scm:         opts.SCM,
		description: opts.Description,
		branch:      opts.Branch,
	}
	if cfg.description == "" {
		cfg.description = fmt.Sprintf("%s build for %s (%s)", projectType, opts.Name, opts.SCM.RemoteURL())
	}
	if cfg.branch == "" {
		cfg.branch = defaultBranch(opts.SCM.Kind())
	}

	if len(opts.Steps) > 0 {
		for _, s := range opts.Steps {
			if strings.TrimSpace(s.Command) == "" {
				return nil, errors.New("build step has an empty command")
			}
		}
		cfg.steps = append([]Step(nil), opts.Steps...)
	} else {
		for _, c := range tmpl.steps {
			cfg.steps = append(cfg.steps, Step{Command: c})
		}
	}

	triggers := tmpl.triggers
	if opts.Triggers != nil {
		triggers = opts.Triggers
	}
	normalized, err := normalizeTriggers(triggers)
	if err != nil {
		return nil, err
	}
	cfg.triggers = normalized

	return cfg, nil
}

// normalizeTriggers dedupes triggers and orders them by kind, then spec.
func normalizeTriggers(in []Trigger) ([]Trigger, error) {
	seen := make(map[Trigger]struct{}, len(in))
	out := make([]Trigger, 0, len(in))
	for _, t := range in {
		t.Spec = strings.TrimSpace(t.Spec)
		switch t.Kind {
		case TriggerPoll, TriggerTimer:
		default:
			return nil, fmt.Errorf("unknown trigger kind %q", t.Kind)
		}
		if len(strings.Fields(t.Spec)) != 5 {
			return nil, fmt.Errorf("trigger %s: spec %q must have five cron fields", t.Kind, t.Spec)
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Kind != out[j].Kind {
			return out[i].Kind < out[j].Kind
		}
		return out[i].Spec < out[j].Spec
	})
	return out, nil
}

func defaultBranch(kind scm.Kind) string {
	switch kind {
	case scm.KindGit:
		return "**"
	case scm.KindHg:
		return "default"
	default:
		return ""
	}
}

// ValidateName checks that name can be used as a job name on the server.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: name is empty", ErrInvalidJobName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("%w: %q is reserved", ErrInvalidJobName, name)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("%w: %q is not valid UTF-8", ErrInvalidJobName, name)
	}
	for _, r := range name {
		if unicode.IsControl(r) || r == '\uFFFE' || r == '\uFFFF' {
			return fmt.Errorf("%w: %q contains a character XML cannot represent", ErrInvalidJobName, name)
		}
		if strings.ContainsRune(unsafeNameChars, r) {
			return fmt.Errorf("%w: %q contains unsafe character %q", ErrInvalidJobName, name, r)
		}
	}
	return nil
}

// Name returns the job name.
func (c *Config) Name() string { return c.name }

// ProjectType returns the template the job was built from.
func (c *Config) ProjectType() ProjectType { return c.projectType }

// SCM returns the job's source control handle.
func (c *Config) SCM() scm.Handle { return c.scm }

// Description returns the job description.
func (c *Config) Description() string { return c.description }

// Branch returns the branch to build, empty for systems without one.
func (c *Config) Branch() string { return c.branch }

// Triggers returns a copy of the build triggers.
func (c *Config) Triggers() []Trigger { return append([]Trigger(nil), c.triggers...) }

// Steps returns a copy of the build steps.
func (c *Config) Steps() []Step { return append([]Step(nil), c.steps...) }
