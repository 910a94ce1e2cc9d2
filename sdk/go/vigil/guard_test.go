package vigil

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestWrapRefusedToolNeverRuns(t *testing.T) {
	c := newTestClient(t)

	ran := false
	wrapped := c.Wrap(func(ctx context.Context, action Action) (any, error) {
		ran = true
		return nil, nil
	})

	_, err := wrapped(context.Background(), Action{
		Kind:    "delete",
		Target:  t.TempDir(),
		Signals: []string{"recursive"},
	})
	if err == nil {
		t.Fatal("expected refusal")
	}
	var refused *RefusedError
	if !errors.As(err, &refused) {
		t.Fatalf("expected *RefusedError, got %v", err)
	}
	if refused.State != Block {
		t.Errorf("expected block, got %s", refused.State)
	}
	if len(refused.Alternatives) == 0 {
		t.Error("refusal must carry alternatives")
	}
	if ran {
		t.Error("tool must not run after a refusal")
	}
}

func TestWrapPermittedToolRuns(t *testing.T) {
	c := newTestClient(t)

	wrapped := c.Wrap(func(ctx context.Context, action Action) (any, error) {
		return "done", nil
	})

	out, err := wrapped(context.Background(), Action{
		Kind:          "write",
		Target:        "/tmp/report.md",
		Reversibility: "reversible",
	})
	if err != nil {
		t.Fatalf("expected permit: %v", err)
	}
	if out != "done" {
		t.Errorf("out = %v", out)
	}
}

func TestWrapRollsBackOnToolFailure(t *testing.T) {
	c := newTestClient(t)

	target := filepath.Join(t.TempDir(), "ledger.txt")
	if err := os.WriteFile(target, []byte("before"), 0644); err != nil {
		t.Fatal(err)
	}

	// A single-file delete lands at Pause: permitted, but snapshotted.
	wrapped := c.Wrap(func(ctx context.Context, action Action) (any, error) {
		// The tool clobbers the file, then fails partway.
		if err := os.WriteFile(target, []byte("half-done"), 0644); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("disk full")
	})

	_, err := wrapped(context.Background(), Action{Kind: "delete", Target: target})
	if err == nil || err.Error() != "disk full" {
		t.Fatalf("expected the tool error, got %v", err)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "before" {
		t.Errorf("pre-state not restored after tool failure: %q", data)
	}
}

func TestRefusedErrorMessage(t *testing.T) {
	e := &RefusedError{State: Block, Message: "too wide"}
	if e.Error() != "vigil refused (block): too wide" {
		t.Errorf("unexpected message: %s", e.Error())
	}
}
