// Package config provides unified configuration management for hudson.
// Configuration is loaded from multiple sources with the following precedence:
// embedded defaults → global file → .env → env vars → local file → CLI flags
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alexander-akhmetov/hudson/internal/dirs"
	"github.com/alexander-akhmetov/hudson/internal/domain"
)

//go:embed defaults/config.yaml
var defaultsFS embed.FS

const fileName = "config.yaml"

// Environment variables read by the loader.
const (
	EnvHost        = "HUDSON_HOST"
	EnvPort        = "HUDSON_PORT"
	EnvControlPort = "HUDSON_CONTROL_PORT"
	EnvTimeout     = "HUDSON_TIMEOUT"
	EnvProjectType = "HUDSON_PROJECT_TYPE"
	EnvUsername    = "HUDSON_USERNAME"
	EnvAPIToken    = "HUDSON_API_TOKEN"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds all configuration settings for hudson.
// Fields ending in *Set track whether that field was explicitly set in config.
// This allows distinguishing explicit 0 from "not set" when merging layers.
type Config struct {
	Host        string `yaml:"host" validate:"required"`
	Port        int    `yaml:"port" validate:"min=1,max=65535"`
	ControlPort int    `yaml:"control_port" validate:"min=1,max=65535"`
	Timeout     int    `yaml:"timeout" validate:"min=1"` // seconds

	// ProjectType is the default for `create`; "auto" detects it from files.
	ProjectType string `yaml:"project_type"`

	Username string `yaml:"username"`
	APIToken string `yaml:"api_token"`

	// Set tracking for merge behavior
	PortSet        bool `yaml:"-"`
	ControlPortSet bool `yaml:"-"`
	TimeoutSet     bool `yaml:"-"`

	// Private: track where config was loaded from
	configDir  string
	projectDir string
	localDir   string
	sources    []string // ordered list of sources that contributed to this config
}

// Sources returns the ordered list of sources that contributed to this config.
func (c *Config) Sources() []string {
	return c.sources
}

// ConfigDir returns the global config directory.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// LocalDir returns the project's .hudson directory if one was detected.
func (c *Config) LocalDir() string {
	return c.localDir
}

// Endpoint returns the validated HTTP API endpoint.
func (c *Config) Endpoint() (domain.Endpoint, error) {
	ep := domain.Endpoint{Host: c.Host, Port: c.Port}
	if err := ep.Validate(); err != nil {
		return domain.Endpoint{}, err
	}
	return ep, nil
}

// ControlEndpoint returns the validated control-port endpoint.
func (c *Config) ControlEndpoint() (domain.Endpoint, error) {
	ep := domain.Endpoint{Host: c.Host, Port: c.ControlPort}
	if err := ep.Validate(); err != nil {
		return domain.Endpoint{}, err
	}
	return ep, nil
}

// TimeoutDuration returns the configured timeout.
func (c *Config) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// Validate checks the merged configuration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Load loads all configuration for the project at projectDir from the
// default locations.
func Load(projectDir string) (*Config, error) {
	return LoadWithDirs(dirs.ConfigDir(), projectDir)
}

// LoadWithDirs loads configuration with an explicit global directory.
// projectDir may be empty, in which case .env and the local
// .hudson/config.yaml are skipped.
func LoadWithDirs(globalDir, projectDir string) (*Config, error) {
	// Load in order: embedded → global → .env → env → local
	// Each layer only overwrites fields that were explicitly set

	// 1. Start with embedded defaults
	cfg, err := loadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load embedded defaults: %w", err)
	}
	cfg.sources = append(cfg.sources, "embedded")

	// 2. Merge global config
	globalPath := filepath.Join(globalDir, fileName)
	if globalCfg, err := loadFile(globalPath); err == nil {
		cfg.mergeFrom(globalCfg)
		cfg.sources = append(cfg.sources, globalPath)
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("load global config: %w", err)
	}

	var localDir string
	if projectDir != "" {
		// 3. .env in the project dir, read without touching the process env
		envPath := filepath.Join(projectDir, ".env")
		if vars, err := godotenv.Read(envPath); err == nil {
			if err := cfg.applyVars(func(key string) string { return vars[key] }, "dotenv"); err != nil {
				return nil, fmt.Errorf("load %s: %w", envPath, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load %s: %w", envPath, err)
		}
		localDir = dirs.LocalDir(projectDir)
	}

	// 4. Apply environment variables (between .env and local)
	if err := cfg.applyVars(os.Getenv, "env"); err != nil {
		return nil, err
	}

	// 5. Merge local config (highest file precedence)
	if localDir != "" {
		localPath := filepath.Join(localDir, fileName)
		if localCfg, err := loadFile(localPath); err == nil {
			cfg.mergeFrom(localCfg)
			cfg.sources = append(cfg.sources, localPath)
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("load local config: %w", err)
		}
	}

	cfg.configDir = globalDir
	cfg.projectDir = projectDir
	cfg.localDir = localDir

	return cfg, nil
}

// InstallDefaults creates the config directory and writes the default config
// file if none exists.
func InstallDefaults(configDir string) (string, error) {
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}

	configPath := filepath.Join(configDir, fileName)
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		data, err := defaultsFS.ReadFile("defaults/" + fileName)
		if err != nil {
			return "", fmt.Errorf("read embedded config: %w", err)
		}
		if err := os.WriteFile(configPath, data, 0o600); err != nil {
			return "", fmt.Errorf("write config file: %w", err)
		}
	}

	return configPath, nil
}

// loadEmbedded loads config from the embedded defaults.
func loadEmbedded() (*Config, error) {
	data, err := defaultsFS.ReadFile("defaults/" + fileName)
	if err != nil {
		return nil, fmt.Errorf("read embedded defaults: %w", err)
	}
	return parseConfig(data)
}

// loadFile loads config from a file path.
func loadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // user's config file
	if err != nil {
		return nil, err
	}
	cfg, err := parseConfigWithTracking(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// parseConfig parses YAML config data into a Config struct.
func parseConfig(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// parseConfigWithTracking parses YAML config and tracks which fields were set.
func parseConfigWithTracking(data []byte) (*Config, error) {
	cfg, err := parseConfig(data)
	if err != nil {
		return nil, err
	}

	// Parse into a map to detect which fields were explicitly set
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	if _, ok := raw["port"]; ok {
		cfg.PortSet = true
	}
	if _, ok := raw["control_port"]; ok {
		cfg.ControlPortSet = true
	}
	if _, ok := raw["timeout"]; ok {
		cfg.TimeoutSet = true
	}

	return cfg, nil
}

// applyVars applies HUDSON_* variables looked up with get. A numeric
// variable that does not parse is an error naming the variable.
func (c *Config) applyVars(get func(string) string, origin string) error {
	note := func(key string) {
		c.sources = append(c.sources, origin+":"+key)
	}
	setInt := func(key string, dst *int, set *bool) error {
		v := strings.TrimSpace(get(key))
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s %q: must be an integer", key, v)
		}
		*dst = n
		*set = true
		note(key)
		return nil
	}

	if v := strings.TrimSpace(get(EnvHost)); v != "" {
		c.Host = v
		note(EnvHost)
	}
	if err := setInt(EnvPort, &c.Port, &c.PortSet); err != nil {
		return err
	}
	if err := setInt(EnvControlPort, &c.ControlPort, &c.ControlPortSet); err != nil {
		return err
	}
	if err := setInt(EnvTimeout, &c.Timeout, &c.TimeoutSet); err != nil {
		return err
	}

	if v := strings.TrimSpace(get(EnvProjectType)); v != "" {
		c.ProjectType = v
		note(EnvProjectType)
	}
	if v := get(EnvUsername); v != "" {
		c.Username = v
		note(EnvUsername)
	}
	if v := get(EnvAPIToken); v != "" {
		c.APIToken = v
		note(EnvAPIToken)
	}
	return nil
}

// mergeFrom merges non-empty/set values from src into c.
func (c *Config) mergeFrom(src *Config) {
	if src.Host != "" {
		c.Host = src.Host
	}
	if src.PortSet {
		c.Port = src.Port
		c.PortSet = true
	}
	if src.ControlPortSet {
		c.ControlPort = src.ControlPort
		c.ControlPortSet = true
	}
	if src.TimeoutSet {
		c.Timeout = src.Timeout
		c.TimeoutSet = true
	}
	if src.ProjectType != "" {
		c.ProjectType = src.ProjectType
	}
	if src.Username != "" {
		c.Username = src.Username
	}
	if src.APIToken != "" {
		c.APIToken = src.APIToken
	}
}

// Flags carries CLI overrides. Zero values mean "not given".
type Flags struct {
	Host        string
	Port        int
	ControlPort int
	Timeout     int
	ProjectType string
}

// ApplyCLIFlags applies CLI flag overrides to the config.
// CLI flags have the highest precedence.
func (c *Config) ApplyCLIFlags(f Flags) {
	if f.Host != "" {
		c.Host = f.Host
		c.sources = append(c.sources, "cli:host")
	}
	if f.Port > 0 {
		c.Port = f.Port
		c.PortSet = true
		c.sources = append(c.sources, "cli:port")
	}
	if f.ControlPort > 0 {
		c.ControlPort = f.ControlPort
		c.ControlPortSet = true
		c.sources = append(c.sources, "cli:control")
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
		c.TimeoutSet = true
		c.sources = append(c.sources, "cli:timeout")
	}
	if f.ProjectType != "" {
		c.ProjectType = f.ProjectType
		c.sources = append(c.sources, "cli:type")
	}
}

// YAML renders the effective configuration. The API token is masked.
func (c *Config) YAML() ([]byte, error) {
	shown := *c
	if shown.APIToken != "" {
		shown.APIToken = "********"
	}
	return yaml.Marshal(&shown)
}
