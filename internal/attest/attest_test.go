package attest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/openvigil/vigil/internal/audit"
	"github.com/openvigil/vigil/internal/consent"
	"github.com/openvigil/vigil/internal/guardian"
	"github.com/openvigil/vigil/internal/model"
	"github.com/openvigil/vigil/internal/snapshot"
)

func buildTrace(t *testing.T) (*Exporter, string) {
	t.Helper()
	dir := t.TempDir()

	snaps, err := snapshot.NewManager(filepath.Join(dir, "snapshots"))
	if err != nil {
		t.Fatal(err)
	}
	logPath := filepath.Join(dir, "decisions.jsonl")
	log, err := audit.Open(logPath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { log.Close() })

	g, err := guardian.New(nil, snaps, log, nil)
	if err != nil {
		t.Fatal(err)
	}
	s := g.NewSession("sess-attest")

	target := filepath.Join(dir, "doomed.txt")
	if err := os.WriteFile(target, []byte("bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind: model.KindDelete, Target: target,
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind: model.KindWrite, Target: "/tmp/benign.txt", Reversibility: model.Reversible,
	}); err != nil {
		t.Fatal(err)
	}

	consents, err := consent.NewStore(filepath.Join(dir, "consent"))
	if err != nil {
		t.Fatal(err)
	}
	if err := consents.Request("req-attest-1", "memory:3:fact/x", "test"); err != nil {
		t.Fatal(err)
	}
	if err := consents.Resolve("req-attest-1", true); err != nil {
		t.Fatal(err)
	}

	return &Exporter{
		LogPath:    logPath,
		Snapshots:  snaps,
		LedgerPath: consents.LedgerPath(),
	}, dir
}

func TestExportCleanTracePasses(t *testing.T) {
	e, _ := buildTrace(t)

	b, err := e.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !b.Passed() {
		t.Errorf("clean trace should pass all checks: %+v", b.Checks)
	}
	if !b.DecisionLog.Valid || b.DecisionLog.Lines != 2 {
		t.Errorf("decision log ref wrong: %+v", b.DecisionLog)
	}
	if len(b.Snapshots) != 1 || !b.Snapshots[0].Verified {
		t.Errorf("snapshot refs wrong: %+v", b.Snapshots)
	}
	if b.ConsentLedger.Events != 2 {
		t.Errorf("expected 2 ledger events, got %d", b.ConsentLedger.Events)
	}
}

func TestExportDetectsTamperedLog(t *testing.T) {
	e, _ := buildTrace(t)

	data, err := os.ReadFile(e.LogPath)
	if err != nil {
		t.Fatal(err)
	}
	tampered := []byte(string(data[:20]) + "X" + string(data[21:]))
	if err := os.WriteFile(e.LogPath, tampered, 0600); err != nil {
		t.Fatal(err)
	}

	b, err := e.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if b.Passed() {
		t.Error("tampered log must fail the chain check")
	}
	if b.DecisionLog.Valid {
		t.Error("DecisionLog.Valid should be false after tampering")
	}
}

func TestExportDetectsCorruptedSnapshot(t *testing.T) {
	e, dir := buildTrace(t)

	blobs := filepath.Join(dir, "snapshots", "blobs")
	entries, err := os.ReadDir(blobs)
	if err != nil || len(entries) == 0 {
		t.Fatalf("no blobs to corrupt: %v", err)
	}
	if err := os.WriteFile(filepath.Join(blobs, entries[0].Name()), []byte("garbage"), 0600); err != nil {
		t.Fatal(err)
	}

	b, err := e.Export()
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if b.Passed() {
		t.Error("corrupted snapshot must fail verification")
	}
}

func TestBundleWriteFile(t *testing.T) {
	e, dir := buildTrace(t)
	b, err := e.Export()
	if err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "attestation.json")
	if err := b.WriteFile(out); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Error("empty attestation file")
	}
}
