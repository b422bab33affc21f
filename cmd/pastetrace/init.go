package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pastetrace/pastetrace/internal/config"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new pastetrace configuration file",
		Long: `Initialize creates a new ` + config.DefaultConfigFile + ` configuration file.

The generated file documents every setting with its default value
commented out: target domain, scoring thresholds, fetch behavior, seed
feeds, Tor proxy, and serve-mode options.

Examples:
  # Create ` + config.DefaultConfigFile + ` in the current directory
  pastetrace init

  # Create the config file at a specific path
  pastetrace init -o myconfig.yaml

  # Force overwrite an existing file
  pastetrace init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if force {
		if err := os.Remove(outputPath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove existing file: %w", err)
		}
	}

	if err := config.WriteStarterFile(outputPath); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)
	return nil
}
