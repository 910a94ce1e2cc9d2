package cli

import (
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vigil",
	Short: "Runtime safety gate for agent actions",
	Long:  "Classifies proposed agent actions, escalates through Flow/Nudge/Pause/Block/Protect, snapshots before anything irreversible, and gates permanent memory behind explicit user consent.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config YAML (default ~/.vigil/config.yaml)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
