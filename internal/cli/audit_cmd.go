package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvigil/vigil/internal/audit"
)

var (
	replaySession string
	replayFormat  string
)

func init() {
	auditReplayCmd.Flags().StringVar(&replaySession, "session", "", "Filter by session id")
	auditReplayCmd.Flags().StringVarP(&replayFormat, "format", "f", "text", "Output format (text|json)")

	auditCmd.AddCommand(auditVerifyCmd)
	auditCmd.AddCommand(auditReplayCmd)
	rootCmd.AddCommand(auditCmd)
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Verify and replay the decision log",
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Validate the decision log hash chain",
	Long: "Recomputes the hash chain from genesis to head. A single flipped\n" +
		"byte anywhere in the log breaks every later link.\n\n" +
		"Exit code 0 if the chain is intact, 1 if it is broken.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		res := audit.Verify(cfg.AuditLogPath)
		if res.Valid {
			fmt.Printf("ok: %d entries, head %s\n", res.Lines, res.HeadHash)
			return nil
		}
		fmt.Printf("INVALID at line %d: %s\n", res.ErrorLine, res.Error)
		os.Exit(1)
		return nil
	},
}

var auditReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay logged decisions for a session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		res, err := audit.Replay(cfg.AuditLogPath, audit.ReplayFilter{SessionID: replaySession})
		if err != nil {
			return err
		}

		if replayFormat == "json" {
			out, err := json.MarshalIndent(res, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		}

		for _, e := range res.Entries {
			fmt.Printf("%s %-8s %-10s %-40s %s\n",
				e.Timestamp,
				e.State,
				e.Action.Kind,
				truncate(e.Action.Target, 40),
				e.SnapshotID,
			)
		}
		s := res.Summary
		fmt.Printf("\n%d decisions (flow=%d nudge=%d pause=%d block=%d protect=%d), max state %s\n",
			s.Total, s.FlowCount, s.NudgeCount, s.PauseCount, s.BlockCount, s.ProtectCount, s.MaxState)
		return nil
	},
}
