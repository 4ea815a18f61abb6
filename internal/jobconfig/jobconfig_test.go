package jobconfig

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexander-akhmetov/hudson/internal/scm"
)

func mustHandle(t *testing.T, kind scm.Kind, url string) scm.Handle {
	t.Helper()
	h, err := scm.NewHandle(kind, url)
	require.NoError(t, err)
	return h
}

func TestBuild_GenericDefaults(t *testing.T) {
	h := mustHandle(t, scm.KindGit, "git@host:repo.git")

	cfg, err := Build(Generic, Options{Name: "proj", SCM: h})
	require.NoError(t, err)

	assert.Equal(t, "proj", cfg.Name())
	assert.Equal(t, Generic, cfg.ProjectType())
	assert.Equal(t, "git@host:repo.git", cfg.SCM().RemoteURL())
	assert.Equal(t, "**", cfg.Branch())
	assert.Equal(t, []Step{{Command: "make"}}, cfg.Steps())
	assert.Equal(t, []Trigger{{Kind: TriggerPoll, Spec: "*/5 * * * *"}}, cfg.Triggers())
	assert.Contains(t, cfg.Description(), "proj")
}

func TestBuild_Templates(t *testing.T) {
	h := mustHandle(t, scm.KindGit, "https://example.com/r.git")
	for _, p := range ProjectTypes() {
		t.Run(p.String(), func(t *testing.T) {
			cfg, err := Build(p, Options{Name: "x", SCM: h})
			require.NoError(t, err)
			assert.NotEmpty(t, cfg.Steps())
			assert.NotEmpty(t, cfg.Triggers())
		})
	}

	cfg, err := Build(RubyGem, Options{Name: "gem", SCM: h})
	require.NoError(t, err)
	assert.Equal(t, []Step{{Command: "bundle install"}, {Command: "bundle exec rake"}}, cfg.Steps())
}

func TestBuild_Overrides(t *testing.T) {
	h := mustHandle(t, scm.KindHg, "https://hg.example.com/repo")

	cfg, err := Build(Generic, Options{
		Name:        "proj",
		SCM:         h,
		Description: "custom",
		Branch:      "stable",
		Steps:       []Step{{Command: "./ci.sh"}},
		Triggers: []Trigger{
			{Kind: TriggerTimer, Spec: "0 2 * * *"},
			{Kind: TriggerPoll, Spec: " * * * * * "},
			{Kind: TriggerPoll, Spec: "* * * * *"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "custom", cfg.Description())
	assert.Equal(t, "stable", cfg.Branch())
	assert.Equal(t, []Step{{Command: "./ci.sh"}}, cfg.Steps())
	assert.Equal(t, []Trigger{
		{Kind: TriggerPoll, Spec: "* * * * *"},
		{Kind: TriggerTimer, Spec: "0 2 * * *"},
	}, cfg.Triggers(), "triggers are a set, ordered by kind then spec")
}

func TestBuild_EmptyTriggersOverride(t *testing.T) {
	h := mustHandle(t, scm.KindGit, "git@host:repo.git")
	cfg, err := Build(Generic, Options{Name: "proj", SCM: h, Triggers: []Trigger{}})
	require.NoError(t, err)
	assert.Empty(t, cfg.Triggers())
}

func TestBuild_Errors(t *testing.T) {
	h := mustHandle(t, scm.KindGit, "git@host:repo.git")

	tests := []struct {
		name    string
		ptype   ProjectType
		opts    Options
		wantErr error
		wantMsg string
	}{
		{name: "no scm", ptype: Generic, opts: Options{Name: "proj"}, wantErr: ErrNoSCM},
		{name: "bad name", ptype: Generic, opts: Options{Name: "a/b", SCM: h}, wantErr: ErrInvalidJobName},
		{name: "empty name", ptype: Generic, opts: Options{Name: "", SCM: h}, wantErr: ErrInvalidJobName},
		{name: "unknown type", ptype: ProjectType("cobol"), opts: Options{Name: "x", SCM: h}, wantErr: ErrUnknownProjectType},
		{name: "empty step", ptype: Generic, opts: Options{Name: "x", SCM: h, Steps: []Step{{Command: " "}}}, wantMsg: "empty command"},
		{name: "bad trigger kind", ptype: Generic, opts: Options{Name: "x", SCM: h, Triggers: []Trigger{{Kind: "webhook", Spec: "* * * * *"}}}, wantMsg: "unknown trigger kind"},
		{name: "bad cron", ptype: Generic, opts: Options{Name: "x", SCM: h, Triggers: []Trigger{{Kind: TriggerPoll, Spec: "hourly"}}}, wantMsg: "five cron fields"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Build(tc.ptype, tc.opts)
			require.Error(t, err)
			assert.Nil(t, cfg)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestBuild_AccessorsReturnCopies(t *testing.T) {
	h := mustHandle(t, scm.KindGit, "git@host:repo.git")
	steps := []Step{{Command: "make"}}
	cfg, err := Build(Generic, Options{Name: "proj", SCM: h, Steps: steps})
	require.NoError(t, err)

	steps[0].Command = "rm -rf /"
	got := cfg.Steps()
	got[0].Command = "changed"
	trig := cfg.Triggers()
	trig[0].Spec = "changed"

	assert.Equal(t, "make", cfg.Steps()[0].Command)
	assert.Equal(t, "*/5 * * * *", cfg.Triggers()[0].Spec)
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"proj", true},
		{"my project", true},
		{"proj-1.2_beta", true},
		{"проект", true},
		{"", false},
		{"   ", false},
		{".", false},
		{"..", false},
		{"a/b", false},
		{`a\b`, false},
		{"what?", false},
		{"100%", false},
		{"a:b", false},
		{"<tag>", false},
		{"tab\there", false},
		{"line\nbreak", false},
		{"bad\xffutf8", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateName(tc.name)
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidJobName)
			}
		})
	}
}

func TestParseProjectType(t *testing.T) {
	p, err := ParseProjectType(" RubyGem ")
	require.NoError(t, err)
	assert.Equal(t, RubyGem, p)

	_, err = ParseProjectType("cobol")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownProjectType)
	assert.Contains(t, err.Error(), "generic, rubygem, rails, golang, node")
}

func TestDetectProjectType(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  ProjectType
	}{
		{"empty", nil, Generic},
		{"rails", []string{"Gemfile", "config/application.rb"}, Rails},
		{"gem", []string{"Gemfile", "hudson.gemspec"}, RubyGem},
		{"go", []string{"go.mod"}, Golang},
		{"node", []string{"package.json"}, Node},
		{"makefile", []string{"Makefile"}, Generic},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tc.files {
				path := filepath.Join(dir, f)
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
				require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
			}
			assert.Equal(t, tc.want, DetectProjectType(dir))
		})
	}
}

func TestXML_Git(t *testing.T) {
	h := mustHandle(t, scm.KindGit, "git@host:repo.git")
	cfg, err := Build(Generic, Options{Name: "proj", SCM: h})
	require.NoError(t, err)

	out, err := cfg.XML()
	require.NoError(t, err)

	s := string(out)
	assert.True(t, strings.HasPrefix(s, xml.Header))
	assert.Contains(t, s, `<scm class="hudson.plugins.git.GitSCM">`)
	assert.Contains(t, s, "<url>git@host:repo.git</url>")
	assert.Contains(t, s, "<hudson.plugins.git.BranchSpec>")
	assert.Contains(t, s, `<triggers class="vector">`)
	assert.Contains(t, s, "<hudson.triggers.SCMTrigger>")
	assert.Contains(t, s, "<spec>*/5 * * * *</spec>")
	assert.Contains(t, s, "<hudson.tasks.Shell>")
	assert.Contains(t, s, "<command>make</command>")
}

func TestXML_SCMKinds(t *testing.T) {
	tests := []struct {
		kind  scm.Kind
		url   string
		wants []string
	}{
		{scm.KindHg, "https://hg.example.com/repo", []string{
			`<scm class="hudson.plugins.mercurial.MercurialSCM">`,
			"<source>https://hg.example.com/repo</source>",
			"<branch>default</branch>",
		}},
		{scm.KindBzr, "bzr+ssh://bzr.example.com/trunk", []string{
			`<scm class="hudson.plugins.bazaar.BazaarSCM">`,
			"<source>bzr+ssh://bzr.example.com/trunk</source>",
		}},
		{scm.KindSvn, "https://svn.example.com/trunk", []string{
			`<scm class="hudson.scm.SubversionSCM">`,
			"<hudson.scm.SubversionSCM_-ModuleLocation>",
			"<remote>https://svn.example.com/trunk</remote>",
			"<useUpdate>true</useUpdate>",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.kind.String(), func(t *testing.T) {
			cfg, err := Build(Generic, Options{Name: "proj", SCM: mustHandle(t, tc.kind, tc.url)})
			require.NoError(t, err)
			out, err := cfg.XML()
			require.NoError(t, err)
			for _, want := range tc.wants {
				assert.Contains(t, string(out), want)
			}
			assert.NotContains(t, string(out), "userRemoteConfigs")
		})
	}
}

func TestXML_EscapesValues(t *testing.T) {
	h := mustHandle(t, scm.KindGit, "https://example.com/r.git?a=1&b=<2>")
	cfg, err := Build(Generic, Options{
		Name:        "Tom's \"build\"",
		SCM:         h,
		Description: "a & b <c>",
		Steps:       []Step{{Command: `echo "x" && test 1 -lt 2`}},
	})
	require.NoError(t, err)

	out, err := cfg.XML()
	require.NoError(t, err)
	s := string(out)
	assert.Contains(t, s, "a &amp; b &lt;c&gt;")
	assert.Contains(t, s, "r.git?a=1&amp;b=&lt;2&gt;")
	assert.NotContains(t, s, "a & b")

	var back xmlProject
	require.NoError(t, xml.Unmarshal(out, &back))
	assert.Equal(t, "a & b <c>", back.Description)
	require.Len(t, back.Builders.Shell, 1)
	assert.Equal(t, `echo "x" && test 1 -lt 2`, back.Builders.Shell[0].Command)
}

func TestXML_Deterministic(t *testing.T) {
	h := mustHandle(t, scm.KindGit, "git@host:repo.git")
	opts := Options{
		Name: "proj",
		SCM:  h,
		Triggers: []Trigger{
			{Kind: TriggerTimer, Spec: "0 2 * * *"},
			{Kind: TriggerPoll, Spec: "*/5 * * * *"},
		},
	}
	reordered := opts
	reordered.Triggers = []Trigger{opts.Triggers[1], opts.Triggers[0]}

	a, err := Build(Rails, opts)
	require.NoError(t, err)
	b, err := Build(Rails, opts)
	require.NoError(t, err)
	c, err := Build(Rails, reordered)
	require.NoError(t, err)

	xa, err := a.XML()
	require.NoError(t, err)
	xb, err := b.XML()
	require.NoError(t, err)
	xc, err := c.XML()
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Equal(t, xa, xb)
	assert.Equal(t, xa, xc)
}

func TestXML_NoSCM(t *testing.T) {
	var cfg Config
	cfg.name = "proj"
	_, err := cfg.XML()
	assert.ErrorIs(t, err, ErrNoSCM)
}
