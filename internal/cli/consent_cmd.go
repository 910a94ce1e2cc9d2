package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openvigil/vigil/internal/consent"
)

func init() {
	consentCmd.AddCommand(consentPendingCmd)
	consentCmd.AddCommand(consentApproveCmd)
	consentCmd.AddCommand(consentDenyCmd)
	consentCmd.AddCommand(consentCancelCmd)
	rootCmd.AddCommand(consentCmd)
}

var consentCmd = &cobra.Command{
	Use:   "consent",
	Short: "Manage memory-write consent requests",
}

var consentPendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List consent requests awaiting a decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConsents()
		if err != nil {
			return err
		}
		pending, err := store.Pending()
		if err != nil {
			return fmt.Errorf("list pending requests: %w", err)
		}
		if len(pending) == 0 {
			fmt.Println("No pending consent requests.")
			return nil
		}
		fmt.Printf("%-30s %-40s %s\n", "REQUEST", "SCOPE", "CREATED")
		for _, r := range pending {
			fmt.Printf("%-30s %-40s %s\n",
				r.RequestID,
				truncate(r.Scope, 40),
				r.CreatedAt.Format("2006-01-02 15:04:05"),
			)
		}
		return nil
	},
}

var consentApproveCmd = &cobra.Command{
	Use:   "approve <request-id>",
	Short: "Approve a pending consent request",
	Long:  "Approval is a one-time grant: the next matching memory write consumes it.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveConsent(args[0], true)
	},
}

var consentDenyCmd = &cobra.Command{
	Use:   "deny <request-id>",
	Short: "Deny a pending consent request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolveConsent(args[0], false)
	},
}

var consentCancelCmd = &cobra.Command{
	Use:   "cancel <request-id>",
	Short: "Cancel a pending consent request",
	Long:  "Cancellation is terminal for the request; retrying the write opens a new one.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openConsents()
		if err != nil {
			return err
		}
		if err := store.Cancel(args[0]); err != nil {
			return err
		}
		fmt.Printf("cancelled %s\n", args[0])
		return nil
	},
}

func openConsents() (*consent.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	store, err := consent.NewStore(cfg.ConsentDir)
	if err != nil {
		return nil, fmt.Errorf("open consent store: %w", err)
	}
	return store, nil
}

func resolveConsent(requestID string, approved bool) error {
	store, err := openConsents()
	if err != nil {
		return err
	}
	if err := store.Resolve(requestID, approved); err != nil {
		return err
	}
	verdict := "approved"
	if !approved {
		verdict = "denied"
	}
	fmt.Printf("%s %s\n", verdict, requestID)
	return nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
