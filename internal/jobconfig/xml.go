package jobconfig

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/alexander-akhmetov/hudson/internal/scm"
)

// SCM plugin classes understood by the server.
const (
	classGitSCM       = "hudson.plugins.git.GitSCM"
	classMercurialSCM = "hudson.plugins.mercurial.MercurialSCM"
	classBazaarSCM    = "hudson.plugins.bazaar.BazaarSCM"
	classSubversion   = "hudson.scm.SubversionSCM"
	classNullSCM      = "hudson.scm.NullSCM"
)

type (
	xmlProject struct {
		XMLName                          xml.Name    `xml:"project"`
		Actions                          struct{}    `xml:"actions"`
		Description                      string      `xml:"description"`
		KeepDependencies                 bool        `xml:"keepDependencies"`
		Properties                       struct{}    `xml:"properties"`
		SCM                              xmlSCM      `xml:"scm"`
		CanRoam                          bool        `xml:"canRoam"`
		Disabled                         bool        `xml:"disabled"`
		BlockBuildWhenUpstreamBuilding   bool        `xml:"blockBuildWhenUpstreamBuilding"`
		BlockBuildWhenDownstreamBuilding bool        `xml:"blockBuildWhenDownstreamBuilding"`
		Triggers                         xmlTriggers `xml:"triggers"`
		ConcurrentBuild                  bool        `xml:"concurrentBuild"`
		Builders                         xmlBuilders `xml:"builders"`
		Publishers                       struct{}    `xml:"publishers"`
		BuildWrappers                    struct{}    `xml:"buildWrappers"`
	}

	xmlSCM struct {
		Class string `xml:"class,attr"`

		// git
		ConfigVersion     string          `xml:"configVersion,omitempty"`
		UserRemoteConfigs *xmlGitRemotes  `xml:"userRemoteConfigs,omitempty"`
		Branches          *xmlGitBranches `xml:"branches,omitempty"`
		Extensions        *struct{}       `xml:"extensions,omitempty"`

		// hg, bzr
		Source string `xml:"source,omitempty"`
		Branch string `xml:"branch,omitempty"`
		Clean  *bool  `xml:"clean,omitempty"`

		// svn
		Locations *xmlSvnLocations `xml:"locations,omitempty"`
		UseUpdate *bool            `xml:"useUpdate,omitempty"`
	}

	xmlGitRemotes struct {
		Remotes []xmlGitRemote `xml:"hudson.plugins.git.UserRemoteConfig"`
	}

	xmlGitRemote struct {
		Name string `xml:"name"`
		URL  string `xml:"url"`
	}

	xmlGitBranches struct {
		Branches []xmlGitBranch `xml:"hudson.plugins.git.BranchSpec"`
	}

	xmlGitBranch struct {
		Name string `xml:"name"`
	}

	xmlSvnLocations struct {
		Locations []xmlSvnLocation `xml:"hudson.scm.SubversionSCM_-ModuleLocation"`
	}

	xmlSvnLocation struct {
		Remote string `xml:"remote"`
		Local  string `xml:"local"`
	}

	xmlTriggers struct {
		Class string `xml:"class,attr"`
		Items []xmlTrigger
	}

	xmlTrigger struct {
		XMLName xml.Name
		Spec    string `xml:"spec"`
	}

	xmlBuilders struct {
		Shell []xmlShell `xml:"hudson.tasks.Shell"`
	}

	xmlShell struct {
		Command string `xml:"command"`
	}
)

// XML serializes the job to the server's config.xml format.
func (c *Config) XML() ([]byte, error) {
	if c.scm.IsNone() {
		return nil, fmt.Errorf("%w: %s", ErrNoSCM, c.name)
	}

	doc := xmlProject{
		Description: c.description,
		SCM:         c.xmlSCM(),
		CanRoam:     true,
		Triggers:    xmlTriggers{Class: "vector"},
	}
	for _, t := range c.triggers {
		doc.Triggers.Items = append(doc.Triggers.Items, xmlTrigger{
			XMLName: xml.Name{Local: triggerClass(t.Kind)},
			Spec:    t.Spec,
		})
	}
	for _, s := range c.steps {
		doc.Builders.Shell = append(doc.Builders.Shell, xmlShell{Command: s.Command})
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode config.xml for %s: %w", c.name, err)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func (c *Config) xmlSCM() xmlSCM {
	no, yes := false, true
	url := c.scm.RemoteURL()

	switch c.scm.Kind() {
	case scm.KindGit:
		return xmlSCM{
			Class:             classGitSCM,
			ConfigVersion:     "2",
			UserRemoteConfigs: &xmlGitRemotes{Remotes: []xmlGitRemote{{Name: "origin", URL: url}}},
			Branches:          &xmlGitBranches{Branches: []xmlGitBranch{{Name: c.branch}}},
			Extensions:        &struct{}{},
		}
	case scm.KindHg:
		return xmlSCM{Class: classMercurialSCM, Source: url, Branch: c.branch, Clean: &no}
	case scm.KindBzr:
		return xmlSCM{Class: classBazaarSCM, Source: url, Clean: &no}
	case scm.KindSvn:
		return xmlSCM{
			Class:     classSubversion,
			Locations: &xmlSvnLocations{Locations: []xmlSvnLocation{{Remote: url, Local: "."}}},
			UseUpdate: &yes,
		}
	default:
		return xmlSCM{Class: classNullSCM}
	}
}

func triggerClass(kind TriggerKind) string {
	if kind == TriggerTimer {
		return "hudson.triggers.TimerTrigger"
	}
	return "hudson.triggers.SCMTrigger"
}
