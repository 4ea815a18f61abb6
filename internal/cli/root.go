// Package cli implements the command-line interface for hudson.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/hudson/internal/config"
	"github.com/alexander-akhmetov/hudson/internal/debug"
	"github.com/alexander-akhmetov/hudson/internal/hudson"
	"github.com/alexander-akhmetov/hudson/internal/onboard"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

// Global flags, shared by every command that talks to a server.
var (
	flagHost    string
	flagPort    int
	flagTimeout int
	flagDebug   bool
)

var rootCmd = &cobra.Command{
	Use:   "hudson",
	Short: "Put your projects under continuous integration",
	Long: `Hudson registers local projects as jobs on a Hudson/Jenkins CI server.

It detects the project's source control (git, hg, bzr or svn), builds a job
configuration for it and submits it through the server's HTTP API.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagDebug {
			debug.SetEnabled(true)
		}
	},
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flagHost, "host", "", "connect to the CI server on this host (default from config, localhost)")
	pf.IntVar(&flagPort, "port", 0, "connect to the CI server on this port (default from config, 3001)")
	pf.IntVar(&flagTimeout, "timeout", 0, "request timeout in seconds (default from config, 5)")
	pf.BoolVar(&flagDebug, "debug", false, "log requests and detection steps to stderr (same as HUDSON_DEBUG=1)")

	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(shutdownCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig resolves the configuration for dir with the global flags and
// extra applied on top.
func loadConfig(dir string, extra config.Flags) (*config.Config, error) {
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	extra.Host = flagHost
	extra.Port = flagPort
	extra.Timeout = flagTimeout
	cfg.ApplyCLIFlags(extra)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	debug.Logf("cli: config sources: %v", cfg.Sources())
	return cfg, nil
}

// newOrchestrator creates an Orchestrator printing to the command's output.
func newOrchestrator(cmd *cobra.Command, cfg *config.Config) *onboard.Orchestrator {
	factory := onboard.DefaultClientFactory(
		hudson.WithTimeout(cfg.TimeoutDuration()),
		hudson.WithBasicAuth(cfg.Username, cfg.APIToken),
	)
	return onboard.New(cmd.OutOrStdout(), onboard.WithClientFactory(factory))
}
