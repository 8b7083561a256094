package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"patientdesk/internal/config"
)

// NewConfigCommand creates the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Create or locate the config file",
	}

	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigPathCommand())

	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var (
		path  string
		force bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a config file with install defaults",
		Long: `Write a config file with install defaults.

The file goes to --path, or $XDG_CONFIG_HOME/patientdesk/config.yaml
(~/.config/patientdesk/config.yaml) by default. The database and its
snapshot are placed under $XDG_DATA_HOME/patientdesk
(~/.local/share/patientdesk).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				path = config.DefaultConfigPath()
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			cfg := config.InstallConfig()
			if err := cfg.Save(path); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "wrote %s\n", path)
			fmt.Fprintf(out, "database: %s\n", cfg.Database.Path)
			fmt.Fprintf(out, "snapshot: %s\n", cfg.Database.SnapshotPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "config file to write")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")

	return cmd
}

func newConfigPathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "List config file locations, marking the one in use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			found := config.FindConfigPath()
			for _, path := range config.SearchPaths() {
				marker := "  "
				if abs, err := filepath.Abs(path); err == nil && abs == found {
					marker = "* "
				}
				fmt.Fprintln(cmd.OutOrStdout(), marker+path)
			}
			return nil
		},
	}
}
