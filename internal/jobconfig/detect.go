package jobconfig

import (
	"os"
	"path/filepath"
)

// DetectProjectType guesses the project type from files in dir.
// It never fails: unrecognized projects are Generic.
func DetectProjectType(dir string) ProjectType {
	switch {
	case exists(dir, "Gemfile") && exists(dir, "config", "application.rb"):
		return Rails
	case globExists(dir, "*.gemspec"):
		return RubyGem
	case exists(dir, "go.mod"):
		return Golang
	case exists(dir, "package.json"):
		return Node
	default:
		return Generic
	}
}

func exists(dir string, elem ...string) bool {
	_, err := os.Stat(filepath.Join(append([]string{dir}, elem...)...))
	return err == nil
}

func globExists(dir, pattern string) bool {
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	return err == nil && len(matches) > 0
}
