package guardian

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/openvigil/vigil/internal/audit"
	"github.com/openvigil/vigil/internal/classify"
	"github.com/openvigil/vigil/internal/model"
	"github.com/openvigil/vigil/internal/snapshot"
)

func newTestGuardian(t *testing.T) (*Guardian, string) {
	t.Helper()
	dir := t.TempDir()

	snaps, err := snapshot.NewManager(filepath.Join(dir, "snapshots"))
	if err != nil {
		t.Fatalf("snapshot manager: %v", err)
	}
	logPath := filepath.Join(dir, "decisions.jsonl")
	log, err := audit.Open(logPath)
	if err != nil {
		t.Fatalf("audit log: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	g, err := New(nil, snaps, log, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g, logPath
}

func TestEvaluateReversibleWriteNudges(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	d, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind:          model.KindWrite,
		Target:        "/tmp/scratch.log",
		Reversibility: model.Reversible,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.State != model.Nudge {
		t.Errorf("reversible write should land at Nudge, got %s", d.State)
	}
	if !d.Allowed() {
		t.Error("Nudge decision must permit the action")
	}
	if d.Message == "" {
		t.Error("Nudge should carry a suggestion message")
	}
	if d.SnapshotID != "" {
		t.Error("Nudge must not snapshot")
	}
	if s.State() != model.Nudge {
		t.Errorf("session state = %s, want nudge", s.State())
	}
}

func TestEvaluateDeleteSingleFilePausesWithSnapshot(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	target := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(target, []byte("keep me"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind:   model.KindDelete,
		Target: target,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.State != model.Pause {
		t.Fatalf("single-file delete should Pause, got %s", d.State)
	}
	if d.SnapshotID == "" {
		t.Fatal("Pause requires a snapshot before the action may run")
	}
	if d.Message == "" {
		t.Error("Pause requires a user-facing message")
	}

	// The snapshot must actually restore the file after the delete.
	if err := os.Remove(target); err != nil {
		t.Fatal(err)
	}
	if err := s.Rollback(d.SnapshotID); err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	data, err := os.ReadFile(target)
	if err != nil || string(data) != "keep me" {
		t.Errorf("rollback did not restore content: %q, %v", data, err)
	}
}

func TestEvaluateWideDeleteBlocksWithAlternatives(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "ledger.db"), []byte("rows"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind:    model.KindDelete,
		Target:  dir,
		Signals: []string{"recursive"},
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.State != model.Block {
		t.Fatalf("recursive delete should Block, got %s", d.State)
	}
	if d.Allowed() {
		t.Error("Block must not permit the action")
	}
	want := []string{"archive then delete", "move to trash"}
	if len(d.Alternatives) != len(want) {
		t.Fatalf("alternatives = %v, want %v", d.Alternatives, want)
	}
	for i := range want {
		if d.Alternatives[i] != want[i] {
			t.Errorf("alternatives[%d] = %q, want %q", i, d.Alternatives[i], want[i])
		}
	}
	if d.SnapshotID == "" {
		t.Error("Block still captures the pre-state")
	}
	if len(d.AxiomIDs) == 0 {
		t.Error("Block decision should name its grounding axioms")
	}
}

func TestEvaluateMemoryWriteProtects(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	d, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind:   model.KindMemoryWrite,
		Target: "preference/editor",
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.State != model.Protect {
		t.Fatalf("permanent memory write should Protect, got %s", d.State)
	}
	if d.Allowed() {
		t.Error("Protect must not permit the action")
	}
	if len(d.Alternatives) == 0 {
		t.Error("Protect requires alternatives")
	}
}

func TestSessionEscalationIsSticky(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	dir := t.TempDir()
	if _, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind:    model.KindDelete,
		Target:  dir,
		Signals: []string{"recursive"},
	}); err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if s.State() != model.Block {
		t.Fatalf("session should sit at Block, got %s", s.State())
	}

	// A benign follow-up does not walk the session back down.
	d, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind:          model.KindWrite,
		Target:        "/tmp/harmless.txt",
		Reversibility: model.Reversible,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.State != model.Block {
		t.Errorf("session must not de-escalate, got %s", d.State)
	}
}

func TestProtectRetriesAreIdempotent(t *testing.T) {
	g, logPath := newTestGuardian(t)
	s := g.NewSession("")

	req := model.ActionRequest{Kind: model.KindMemoryWrite, Target: "preference/editor"}
	var first model.Decision
	for i := 0; i < 3; i++ {
		d, err := s.Evaluate(context.Background(), req)
		if err != nil {
			t.Fatalf("Evaluate failed: %v", err)
		}
		if d.State != model.Protect {
			t.Fatalf("retry %d escaped Protect: %s", i, d.State)
		}
		if i == 0 {
			first = d
		} else if d.SnapshotID != first.SnapshotID {
			t.Errorf("retry %d produced a different snapshot: %s vs %s", i, d.SnapshotID, first.SnapshotID)
		}
	}

	// Every retry is still individually audited.
	res := audit.Verify(logPath)
	if !res.Valid {
		t.Fatalf("audit chain invalid: %v", res.Error)
	}
	if res.Lines != 3 {
		t.Errorf("expected 3 audit lines, got %d", res.Lines)
	}
}

func TestSnapshotFailureForcesProtect(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	// A path whose parent is a regular file makes Stat fail with ENOTDIR,
	// which is not the benign not-exist case.
	parent := filepath.Join(t.TempDir(), "plainfile")
	if err := os.WriteFile(parent, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	d, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind:   model.KindDelete,
		Target: filepath.Join(parent, "child"),
	})
	if err == nil {
		t.Fatal("expected an error when the pre-state cannot be captured")
	}
	if d.State != model.Protect {
		t.Errorf("capture failure must force Protect, got %s", d.State)
	}
	if d.Allowed() {
		t.Error("a decision without a rollback point must not permit")
	}
	if s.State() != model.Protect {
		t.Errorf("session state = %s, want protect", s.State())
	}
}

func TestRollbackFailureEscalatesToProtect(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	err := s.Rollback("snap-000000000000000000000000")
	if err == nil {
		t.Fatal("expected error for unknown snapshot")
	}
	var re *snapshot.RestoreError
	if !errors.As(err, &re) {
		t.Errorf("error should wrap *snapshot.RestoreError, got %v", err)
	}
	if s.State() != model.Protect {
		t.Errorf("failed restore must leave the session at Protect, got %s", s.State())
	}
}

func TestEvaluateCancelledContextRefuses(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := s.Evaluate(ctx, model.ActionRequest{Kind: model.KindWrite, Target: "/tmp/x"})
	if err == nil {
		t.Fatal("expected context error")
	}
	if d.State != model.Protect {
		t.Errorf("cancelled evaluation must refuse, got %s", d.State)
	}
}

func TestEvaluateAuditChainVerifies(t *testing.T) {
	g, logPath := newTestGuardian(t)
	s := g.NewSession("sess-audit")

	reqs := []model.ActionRequest{
		{Kind: model.KindWrite, Target: "/tmp/a", Reversibility: model.Reversible},
		{Kind: model.KindDelete, Target: filepath.Join(t.TempDir(), "gone")},
		{Kind: model.KindMemoryWrite, Target: "fact/x"},
	}
	for _, r := range reqs {
		if _, err := s.Evaluate(context.Background(), r); err != nil {
			t.Fatalf("Evaluate(%s) failed: %v", r.Kind, err)
		}
	}

	res := audit.Verify(logPath)
	if !res.Valid {
		t.Fatalf("audit chain invalid at line %d: %v", res.ErrorLine, res.Error)
	}
	if res.Lines != len(reqs) {
		t.Errorf("expected %d audit lines, got %d", len(reqs), res.Lines)
	}
}

func TestHotReloadTightensNextEvaluate(t *testing.T) {
	g, _ := newTestGuardian(t)
	s := g.NewSession("")

	d, err := s.Evaluate(context.Background(), model.ActionRequest{
		Kind:          model.KindWrite,
		Target:        "/workspace/report.txt",
		Reversibility: model.Reversible,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.State != model.Nudge {
		t.Fatalf("baseline should be Nudge, got %s", d.State)
	}

	p := classify.DefaultPatterns
	p.DestructiveVerbs = append([]string{"report"}, p.DestructiveVerbs...)
	tightened, err := classify.Compile(p)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	g.SetRuleset(tightened)

	d, err = s.Evaluate(context.Background(), model.ActionRequest{
		Kind:          model.KindWrite,
		Target:        "/workspace/report.txt",
		Reversibility: model.Reversible,
	})
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if d.State < model.Pause {
		t.Errorf("tightened ruleset should escalate, got %s", d.State)
	}
}
