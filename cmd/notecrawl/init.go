package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/notecrawl/internal/config"
)

//go:embed templates/notecrawl.yaml
var configTemplate embed.FS

// templatePath is the embedded path of the configuration template.
const templatePath = "templates/notecrawl.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new notecrawl configuration file",
		Long: `Initialize creates a new .notecrawl configuration file in the current directory.

The generated file includes:
- Default target, pacing and rate-limit settings
- Commented examples for keywords, blacklist and search filters
- Storage settings for the run database and the seen journal

The session cookie is never read from this file. Put it in a .env file as
NOTECRAWL_COOKIE=... instead.

Examples:
  # Create .notecrawl in current directory
  notecrawl init

  # Create config file at a specific path
  notecrawl init -o myconfig.yaml

  # Force overwrite existing file
  notecrawl init -f`,
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

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to set at least:")
	fmt.Fprintln(out, "  - keywords to search")
	fmt.Fprintln(out, "  - api.baseURL of the search gateway")
	fmt.Fprintln(out, "  - target number of media files")

	return nil
}
