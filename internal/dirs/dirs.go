// Package dirs provides XDG Base Directory Specification compliant paths
// for hudson configuration.
package dirs

import (
	"os"
	"path/filepath"
)

// LocalDirName is the per-project configuration directory.
const LocalDirName = ".hudson"

// ConfigDir returns the hudson configuration directory.
// Resolution order: HUDSON_CONFIG_DIR > XDG_CONFIG_HOME/hudson > ~/.config/hudson.
func ConfigDir() string {
	if dir := os.Getenv("HUDSON_CONFIG_DIR"); dir != "" {
		return dir
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "hudson")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "hudson")
	}
	return filepath.Join(home, ".config", "hudson")
}

// LocalDir returns the project's .hudson directory if it exists, or "".
func LocalDir(projectDir string) string {
	candidate := filepath.Join(projectDir, LocalDirName)
	if info, err := os.Stat(candidate); err == nil && info.IsDir() {
		return candidate
	}
	return ""
}
