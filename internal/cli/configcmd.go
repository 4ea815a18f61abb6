package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alexander-akhmetov/hudson/internal/config"
	"github.com/alexander-akhmetov/hudson/internal/dirs"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage hudson configuration",
	Long:  `View and manage hudson configuration.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Show resolved configuration with source annotations",
	Long: `Show the fully resolved configuration for the project at path (default:
the current directory) and the sources it was assembled from.

Configuration is loaded from multiple sources with the following precedence:
  1. Embedded defaults (built into binary)
  2. Global config (~/.config/hudson/config.yaml)
  3. Project .env file (HUDSON_* variables)
  4. HUDSON_* environment variables
  5. Local config (<path>/.hudson/config.yaml)
  6. CLI flags (highest precedence)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default global config file if it does not exist",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir, config.Flags{})
	if err != nil {
		return err
	}
	data, err := cfg.YAML()
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "# Hudson Configuration")
	fmt.Fprintln(out)
	fmt.Fprintln(out, "## Sources (in order of precedence)")
	for _, src := range cfg.Sources() {
		fmt.Fprintf(out, "  - %s\n", src)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "## Directories")
	fmt.Fprintf(out, "  Global config: %s\n", cfg.ConfigDir())
	if cfg.LocalDir() != "" {
		fmt.Fprintf(out, "  Local config:  %s\n", cfg.LocalDir())
	} else {
		fmt.Fprintf(out, "  Local config:  (none detected)\n")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "## Settings")
	fmt.Fprint(out, string(data))
	return nil
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path, err := config.InstallDefaults(dirs.ConfigDir())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Config file: %s\n", path)
	return nil
}
