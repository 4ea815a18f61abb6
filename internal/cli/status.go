package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/hudson/internal/config"
)

var shutdownControl int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check that the CI server is up",
	Long: `Probe the CI server and print its version, node description and
number of jobs.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

var shutdownCmd = &cobra.Command{
	Use:   "shutdown",
	Short: "Send the shutdown signal to the CI server's control port",
	Args:  cobra.NoArgs,
	RunE:  runShutdown,
}

func init() {
	shutdownCmd.Flags().IntVar(&shutdownControl, "control", 0, "the server's shutdown/control port (default from config, 3002)")
}

func runStatus(cmd *cobra.Command, _ []string) error {
	dir, err := projectDir(nil)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir, config.Flags{})
	if err != nil {
		return err
	}
	ep, err := cfg.Endpoint()
	if err != nil {
		return err
	}
	_, err = newOrchestrator(cmd, cfg).Status(cmd.Context(), ep)
	return err
}

func runShutdown(cmd *cobra.Command, _ []string) error {
	dir, err := projectDir(nil)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir, config.Flags{ControlPort: shutdownControl})
	if err != nil {
		return err
	}
	ep, err := cfg.ControlEndpoint()
	if err != nil {
		return err
	}
	return newOrchestrator(cmd, cfg).Shutdown(cmd.Context(), ep, cfg.TimeoutDuration())
}
