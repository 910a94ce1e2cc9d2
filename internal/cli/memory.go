package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openvigil/vigil/internal/consent"
	"github.com/openvigil/vigil/internal/memstore"
)

var (
	memLayer     int
	memTarget    string
	memContent   string
	memConsentID string
	memSession   string

	memReadLayer    int
	memReadTarget   string
	memReadContains string
)

func init() {
	memoryWriteCmd.Flags().IntVar(&memLayer, "layer", 3, "Memory layer (3+ writable with consent)")
	memoryWriteCmd.Flags().StringVar(&memTarget, "target", "", "Key the item is stored under (required)")
	memoryWriteCmd.Flags().StringVar(&memContent, "content", "", "Item content (required)")
	memoryWriteCmd.Flags().StringVar(&memConsentID, "consent", "", "Approved consent request id")
	memoryWriteCmd.Flags().StringVar(&memSession, "session", "cli", "Source session id")
	memoryWriteCmd.MarkFlagRequired("target")
	memoryWriteCmd.MarkFlagRequired("content")

	memoryReadCmd.Flags().IntVar(&memReadLayer, "layer", -1, "Restrict to one layer (-1 for all)")
	memoryReadCmd.Flags().StringVar(&memReadTarget, "target", "", "Exact target key")
	memoryReadCmd.Flags().StringVar(&memReadContains, "contains", "", "Substring filter over content")

	memoryCmd.AddCommand(memoryWriteCmd)
	memoryCmd.AddCommand(memoryReadCmd)
	rootCmd.AddCommand(memoryCmd)
}

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Read and write the layered memory store",
}

var memoryWriteCmd = &cobra.Command{
	Use:   "write",
	Short: "Write an item to an operational memory layer",
	Long: "Layers 0-2 (axioms, purpose, principles) always refuse.\n" +
		"Layers 3+ require an approved consent request; a write without one\n" +
		"opens a request and prints its id.",
	RunE: runMemoryWrite,
}

func runMemoryWrite(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	memory, consents, cleanup, err := openMemory(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	var rec *consent.Record
	if memConsentID != "" {
		rec, err = consents.Get(memConsentID)
		if err != nil {
			return fmt.Errorf("consent %s: %w", memConsentID, err)
		}
	}

	id, err := memory.Write(context.Background(), memstore.Item{
		Layer:         memLayer,
		Target:        memTarget,
		Content:       memContent,
		SourceSession: memSession,
	}, rec)
	if err != nil {
		var needs *memstore.ConsentRequiredError
		if errors.As(err, &needs) {
			fmt.Printf("consent required: %s\n", needs.RequestID)
			fmt.Printf("approve with: vigil consent approve %s\n", needs.RequestID)
			os.Exit(1)
		}
		return err
	}

	fmt.Printf("written: %s\n", id)
	return nil
}

var memoryReadCmd = &cobra.Command{
	Use:   "read",
	Short: "Query the memory store",
	RunE:  runMemoryRead,
}

func runMemoryRead(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	memory, _, cleanup, err := openMemory(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	q := memstore.Query{Target: memReadTarget, Contains: memReadContains}
	if memReadLayer >= 0 {
		q.Layer = &memReadLayer
	}

	items, err := memory.Read(context.Background(), q)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No matching items.")
		return nil
	}

	fmt.Printf("%-30s %-5s %-30s %s\n", "ID", "LAYER", "TARGET", "CONTENT")
	for _, it := range items {
		fmt.Printf("%-30s %-5d %-30s %s\n",
			it.ID,
			it.Layer,
			truncate(it.Target, 30),
			truncate(it.Content, 60),
		)
	}
	return nil
}
