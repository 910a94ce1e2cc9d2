package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openvigil/vigil/internal/snapshot"
)

func init() {
	snapshotCmd.AddCommand(snapshotListCmd)
	snapshotCmd.AddCommand(snapshotRestoreCmd)
	snapshotCmd.AddCommand(snapshotVerifyCmd)
	rootCmd.AddCommand(snapshotCmd)
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect and restore pre-action snapshots",
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := openSnapshots()
		if err != nil {
			return err
		}
		manifests, err := snaps.List()
		if err != nil {
			return err
		}
		if len(manifests) == 0 {
			fmt.Println("No snapshots.")
			return nil
		}
		fmt.Printf("%-30s %-22s %s\n", "ID", "CREATED", "ENTRIES")
		for _, m := range manifests {
			fmt.Printf("%-30s %-22s %d\n", m.ID, m.CreatedAt, len(m.Entries))
		}
		return nil
	},
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore <snapshot-id>",
	Short: "Restore every path in a snapshot to its captured state",
	Long:  "Restore is idempotent: running it twice produces bit-identical state.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := openSnapshots()
		if err != nil {
			return err
		}
		if err := snaps.Restore(args[0]); err != nil {
			return err
		}
		fmt.Printf("restored %s\n", args[0])
		return nil
	},
}

var snapshotVerifyCmd = &cobra.Command{
	Use:   "verify <snapshot-id>",
	Short: "Recompute a snapshot's manifest and blob hashes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		snaps, err := openSnapshots()
		if err != nil {
			return err
		}
		if err := snaps.Verify(args[0]); err != nil {
			return err
		}
		fmt.Printf("ok %s\n", args[0])
		return nil
	},
}

func openSnapshots() (*snapshot.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return snapshot.NewManager(cfg.SnapshotDir)
}
