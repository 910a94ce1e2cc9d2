package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/openvigil/vigil/internal/model"
)

var (
	checkKind          string
	checkTarget        string
	checkReversibility string
	checkSignals       []string
	checkSession       string
	checkFormat        string
)

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().StringVar(&checkKind, "kind", "", "Action kind: write|delete|execute|network|permanent_memory_write (required)")
	checkCmd.Flags().StringVar(&checkTarget, "target", "", "Path or resource the action would touch (required)")
	checkCmd.Flags().StringVar(&checkReversibility, "reversibility", "", "Orchestrator hint: reversible|irreversible|unknown")
	checkCmd.Flags().StringSliceVar(&checkSignals, "signal", nil, "Risk signal (repeatable)")
	checkCmd.Flags().StringVar(&checkSession, "session", "", "Session id (default: one-shot session)")
	checkCmd.Flags().StringVarP(&checkFormat, "format", "f", "text", "Output format (text|json)")
	checkCmd.MarkFlagRequired("kind")
	checkCmd.MarkFlagRequired("target")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate a proposed action against the guardian",
	Long: "Runs one action through classification and the state machine,\n" +
		"records the decision in the audit log, and prints the outcome.\n\n" +
		"Exit code 0 if the action is permitted, 1 if it is refused.",
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	g, cleanup, err := openGuardian(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	sess := g.NewSession(checkSession)
	d, evalErr := sess.Evaluate(context.Background(), model.ActionRequest{
		Kind:          model.ActionKind(checkKind),
		Target:        checkTarget,
		Reversibility: model.Reversibility(checkReversibility),
		Signals:       checkSignals,
	})

	switch checkFormat {
	case "json":
		out, err := json.MarshalIndent(d, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		printDecision(d)
	}

	if evalErr != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", evalErr)
	}
	if !d.Allowed() {
		os.Exit(1)
	}
	return nil
}

func printDecision(d model.Decision) {
	fmt.Printf("state:    %s\n", d.State)
	if d.Message != "" {
		fmt.Printf("message:  %s\n", d.Message)
	}
	if d.SnapshotID != "" {
		fmt.Printf("snapshot: %s\n", d.SnapshotID)
	}
	if len(d.AxiomIDs) > 0 {
		fmt.Printf("axioms:   %s\n", strings.Join(d.AxiomIDs, ", "))
	}
	if len(d.Alternatives) > 0 {
		fmt.Println("alternatives:")
		for _, a := range d.Alternatives {
			fmt.Printf("  - %s\n", a)
		}
	}
}
