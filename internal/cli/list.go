package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/hudson/internal/config"
	"github.com/alexander-akhmetov/hudson/internal/onboard"
	"github.com/alexander-akhmetov/hudson/internal/render"
)

var (
	listJSON bool

	resetYes bool
)

var listCmd = &cobra.Command{
	Use:   "list [path]",
	Short: "List builds on a CI server",
	Long: `List every job on the server with its URL, colored by build status.

The optional path selects the project whose .env and .hudson/config.yaml
are used to find the server.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a job from the CI server",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every job from the CI server",
	Args:  cobra.NoArgs,
	RunE:  runReset,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the listing as JSON")
	resetCmd.Flags().BoolVar(&resetYes, "yes", false, "confirm deleting every job")
}

func runList(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(args)
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

	format := render.FormatText
	if listJSON {
		format = render.FormatJSON
	}
	_, err = newOrchestrator(cmd, cfg).List(cmd.Context(), onboard.ListRequest{Endpoint: ep, Format: format})
	return err
}

func runDelete(cmd *cobra.Command, args []string) error {
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
	return newOrchestrator(cmd, cfg).Delete(cmd.Context(), ep, args[0])
}

func runReset(cmd *cobra.Command, _ []string) error {
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
	if !resetYes {
		return fmt.Errorf("refusing to delete every job on %s without --yes", ep)
	}
	_, err = newOrchestrator(cmd, cfg).Reset(cmd.Context(), ep)
	return err
}
