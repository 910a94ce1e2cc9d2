package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvigil/vigil/internal/attest"
	"github.com/openvigil/vigil/internal/consent"
	"github.com/openvigil/vigil/internal/snapshot"
)

var attestOut string

func init() {
	attestCmd.Flags().StringVarP(&attestOut, "out", "o", "", "Write the bundle to a file instead of stdout")
	rootCmd.AddCommand(attestCmd)
}

var attestCmd = &cobra.Command{
	Use:   "attest",
	Short: "Export an attestation bundle for external verification",
	Long: "Gathers the decision log head hash, snapshot hashes, and the\n" +
		"consent ledger, and runs the cross-checks an independent verifier\n" +
		"would run.\n\n" +
		"Exit code 0 if every check passes, 1 otherwise.",
	RunE: runAttest,
}

func runAttest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	snaps, err := snapshot.NewManager(cfg.SnapshotDir)
	if err != nil {
		return err
	}
	consents, err := consent.NewStore(cfg.ConsentDir)
	if err != nil {
		return err
	}

	e := &attest.Exporter{
		LogPath:    cfg.AuditLogPath,
		Snapshots:  snaps,
		LedgerPath: consents.LedgerPath(),
	}
	bundle, err := e.Export()
	if err != nil {
		return err
	}

	if attestOut != "" {
		if err := bundle.WriteFile(attestOut); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", attestOut)
	} else {
		out, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	}

	if !bundle.Passed() {
		os.Exit(1)
	}
	return nil
}
