package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/openvigil/vigil/internal/classify"
	"github.com/openvigil/vigil/internal/config"
)

var initForce bool

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config files")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Bootstrap the vigil configuration directory",
	Long: `Creates the config directory with a default config.yaml and the
built-in classifier patterns as rules.yaml.

Writes to ~/.vigil/ by default; set VIGIL_HOME to relocate.`,
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	base := config.Dir()
	for _, sub := range []string{"", "snapshots", "consent"} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0700); err != nil {
			return fmt.Errorf("create %s: %w", filepath.Join(base, sub), err)
		}
	}

	cfg := config.DefaultConfig()
	cfg.RulesetPath = filepath.Join(base, "rules.yaml")

	if err := writeYAML(filepath.Join(base, "config.yaml"), cfg); err != nil {
		return err
	}
	if err := writeYAML(cfg.RulesetPath, classify.DefaultPatterns); err != nil {
		return err
	}

	fmt.Printf("initialized %s\n", base)
	return nil
}

func writeYAML(path string, v any) error {
	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Printf("skipping %s (exists, use --force to overwrite)\n", path)
		return nil
	}

	data, err := yaml.Marshal(v)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
