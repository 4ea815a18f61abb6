package cli

import (
	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/hudson/internal/config"
	"github.com/alexander-akhmetov/hudson/internal/onboard"
)

var (
	createName   string
	createType   string
	createDryRun bool

	diffName string
	diffType string
)

var createCmd = &cobra.Command{
	Use:   "create [path]",
	Short: "Create a continuous build for your project",
	Long: `Create a CI job for the project at path (default: the current directory).

The project's source control is detected from the directory or its parents,
a job configuration is generated for the project type, and the job is
submitted to the server. An existing job with the same name is left as is.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCreate,
}

var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "Compare a project's job on the server with a freshly generated one",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runDiff,
}

func init() {
	createCmd.Flags().StringVar(&createName, "name", "", "name of the job (default: the directory name)")
	createCmd.Flags().StringVarP(&createType, "type", "t", "", "project type: generic, rubygem, rails, golang, node or auto")
	createCmd.Flags().BoolVar(&createDryRun, "dry-run", false, "print the job configuration instead of submitting it")

	diffCmd.Flags().StringVar(&diffName, "name", "", "name of the job (default: the directory name)")
	diffCmd.Flags().StringVarP(&diffType, "type", "t", "", "project type: generic, rubygem, rails, golang, node or auto")
}

func runCreate(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir, config.Flags{ProjectType: createType})
	if err != nil {
		return err
	}
	ep, err := cfg.Endpoint()
	if err != nil {
		return err
	}

	_, err = newOrchestrator(cmd, cfg).Create(cmd.Context(), onboard.CreateRequest{
		Path:        dir,
		Name:        createName,
		ProjectType: cfg.ProjectType,
		Endpoint:    ep,
		DryRun:      createDryRun,
	})
	return err
}

func runDiff(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir, config.Flags{ProjectType: diffType})
	if err != nil {
		return err
	}
	ep, err := cfg.Endpoint()
	if err != nil {
		return err
	}

	_, err = newOrchestrator(cmd, cfg).Diff(cmd.Context(), onboard.CreateRequest{
		Path:        dir,
		Name:        diffName,
		ProjectType: cfg.ProjectType,
		Endpoint:    ep,
	})
	return err
}
