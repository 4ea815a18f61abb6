package main

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVersionFromSettings(t *testing.T) {
	const rev = "9f3c2a1b7e6d5c4b"
	const when = "2026-03-02T08:30:00Z"

	tests := []struct {
		name       string
		settings   []debug.BuildSetting
		wantCommit string
		wantDate   string
	}{
		{"no vcs info", nil, "unknown", "unknown"},
		{
			"revision and time",
			[]debug.BuildSetting{{Key: "vcs.revision", Value: rev}, {Key: "vcs.time", Value: when}},
			"9f3c2a1", when,
		},
		{
			"modified tree is marked dirty",
			[]debug.BuildSetting{{Key: "vcs.modified", Value: "true"}, {Key: "vcs.revision", Value: rev}},
			"9f3c2a1-dirty", "unknown",
		},
		{
			"clean tree",
			[]debug.BuildSetting{{Key: "vcs.revision", Value: rev}, {Key: "vcs.modified", Value: "false"}},
			"9f3c2a1", "unknown",
		},
		{
			"short revision is ignored",
			[]debug.BuildSetting{{Key: "vcs.revision", Value: "9f3c"}},
			"unknown", "unknown",
		},
		{
			"dirty flag alone",
			[]debug.BuildSetting{{Key: "vcs.modified", Value: "true"}},
			"unknown", "unknown",
		},
		{
			"unrelated settings",
			[]debug.BuildSetting{{Key: "GOOS", Value: "linux"}, {Key: "-trimpath", Value: "true"}},
			"unknown", "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCommit, gotDate := versionFromSettings(tt.settings)
			assert.Equal(t, tt.wantCommit, gotCommit)
			assert.Equal(t, tt.wantDate, gotDate)
		})
	}
}
