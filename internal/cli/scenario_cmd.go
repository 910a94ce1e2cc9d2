package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openvigil/vigil/internal/scenario"
)

var (
	scenarioRuleset string
	scenarioFormat  string
)

func init() {
	scenarioCmd.Flags().StringVar(&scenarioRuleset, "ruleset", "", "Path to ruleset YAML (default: built-in patterns)")
	scenarioCmd.Flags().StringVarP(&scenarioFormat, "format", "f", "text", "Output format (text|json)")
	rootCmd.AddCommand(scenarioCmd)
}

var scenarioCmd = &cobra.Command{
	Use:   "scenario <glob>",
	Short: "Run guardian assertions from scenario files",
	Long: "Loads scenario YAML files matching a glob pattern, dry-runs each\n" +
		"case through classification and the state machine, and reports\n" +
		"pass/fail.\n\n" +
		"Exit code 0 if all cases pass, 1 if any fail.\n" +
		"Use in CI to gate ruleset changes on expected guardian behavior.",
	Args: cobra.ExactArgs(1),
	RunE: runScenario,
}

func runScenario(cmd *cobra.Command, args []string) error {
	matches, err := filepath.Glob(args[0])
	if err != nil {
		return fmt.Errorf("invalid glob pattern: %w", err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("no scenario files match pattern: %s", args[0])
	}

	var results []*scenario.RunResult
	for _, path := range matches {
		r, err := scenario.LoadAndRun(path, scenarioRuleset)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		results = append(results, r)
	}

	switch scenarioFormat {
	case "json":
		out, err := scenario.FormatJSON(results)
		if err != nil {
			return err
		}
		fmt.Println(out)
	default:
		fmt.Print(scenario.FormatText(results))
	}

	for _, r := range results {
		if r.Failed > 0 {
			os.Exit(1)
		}
	}

	return nil
}
