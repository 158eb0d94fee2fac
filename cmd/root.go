package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/himansukumarhkr/Click/internal/config"
)

// settings holds the sidecar settings, populated in PersistentPreRunE.
var settings config.Config

// settingsPath is where settings were read from.
var settingsPath string

var rootCmd = &cobra.Command{
	Use:   "click",
	Short: "Capture screenshots into an evidence document or folder",
	Long: `click collects screen captures on a hotkey into a growing .docx document
(rotated into parts past a size limit) or a flat folder of JPEG images,
and mirrors every capture to the clipboard.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		p, err := config.Path()
		if err != nil {
			return fmt.Errorf("resolving settings path: %w", err)
		}
		settingsPath = p

		loaded, err := config.Load(p)
		if err != nil {
			return fmt.Errorf("loading settings: %w", err)
		}
		settings = *loaded
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetSettings returns the loaded settings for use by subcommands.
func GetSettings() config.Config {
	return settings
}
