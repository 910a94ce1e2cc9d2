package consent

import (
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return s
}

func TestRequestCreatesPending(t *testing.T) {
	s := newTestStore(t)
	if err := s.Request("req-1", "layer=5 target=preference", "agent wants to persist a preference"); err != nil {
		t.Fatalf("Request failed: %v", err)
	}

	status, err := s.Check("req-1")
	if err != nil {
		t.Fatalf("Check failed: %v", err)
	}
	if status != StatusPending {
		t.Errorf("expected pending, got %s", status)
	}
}

func TestRequestIdempotent(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope-a", "first")
	s.Request("req-1", "scope-b", "second") // must not overwrite

	r, err := s.Get("req-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if r.Scope != "scope-a" {
		t.Errorf("expected original scope preserved, got %s", r.Scope)
	}
}

func TestResolveApprove(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope", "reason")

	if err := s.Resolve("req-1", true); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	r, _ := s.Get("req-1")
	if r.Status != StatusApproved {
		t.Errorf("expected approved, got %s", r.Status)
	}
	if r.ApprovedBy != Approver {
		t.Errorf("approved_by must be %q, got %q", Approver, r.ApprovedBy)
	}
	if r.ResolvedAt == nil {
		t.Error("expected resolved_at to be set")
	}
}

func TestResolveDeny(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope", "reason")

	if err := s.Resolve("req-1", false); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	r, _ := s.Get("req-1")
	if r.Status != StatusDenied {
		t.Errorf("expected denied, got %s", r.Status)
	}
	if r.ApprovedBy != "" {
		t.Errorf("denied request must not carry an approver, got %q", r.ApprovedBy)
	}
}

func TestResolveNonPendingFails(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope", "reason")
	s.Resolve("req-1", true)

	if err := s.Resolve("req-1", false); err == nil {
		t.Error("expected error resolving an already-resolved request")
	}
}

func TestCancelIsTerminal(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope", "reason")

	if err := s.Cancel("req-1"); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if err := s.Resolve("req-1", true); err == nil {
		t.Error("expected error approving a cancelled request")
	}
	if err := s.Cancel("req-1"); err == nil {
		t.Error("expected error cancelling twice")
	}
}

func TestConsumeOnce(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope", "reason")
	s.Resolve("req-1", true)

	if err := s.Consume("req-1"); err != nil {
		t.Fatalf("Consume failed: %v", err)
	}
	if err := s.Consume("req-1"); err == nil {
		t.Error("expected error consuming twice")
	}
}

func TestConsumeUnapprovedFails(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope", "reason")
	if err := s.Consume("req-1"); err == nil {
		t.Error("expected error consuming a pending request")
	}
}

func TestNoTimeoutExpiry(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope", "reason")

	// A pending request has no clock-based lifecycle: it stays pending
	// until a human answers or the caller cancels.
	r, _ := s.Get("req-1")
	if r.ResolvedAt != nil {
		t.Error("pending request must not have a resolution time")
	}
	status, _ := s.Check("req-1")
	if status != StatusPending {
		t.Errorf("expected pending, got %s", status)
	}
}

func TestPendingFilter(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "a", "")
	s.Request("req-2", "b", "")
	s.Resolve("req-2", true)

	pending, err := s.Pending()
	if err != nil {
		t.Fatalf("Pending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].RequestID != "req-1" {
		t.Errorf("expected only req-1 pending, got %+v", pending)
	}
}

func TestInvalidRequestIDRejected(t *testing.T) {
	s := newTestStore(t)
	for _, bad := range []string{"", "../etc/passwd", "a b", "x/y"} {
		if err := s.Request(bad, "scope", ""); err == nil {
			t.Errorf("expected rejection for request id %q", bad)
		}
	}
}

func TestLedgerRecordsLifecycle(t *testing.T) {
	s := newTestStore(t)
	s.Request("req-1", "scope", "reason")
	s.Resolve("req-1", true)
	s.Consume("req-1")

	events, err := ReadLedger(s.LedgerPath())
	if err != nil {
		t.Fatalf("ReadLedger failed: %v", err)
	}
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	got := strings.Join(kinds, ",")
	if got != "requested,approved,consumed" {
		t.Errorf("unexpected ledger sequence: %s", got)
	}
	for _, e := range events {
		if e.Timestamp == "" {
			t.Error("ledger event missing timestamp")
		}
	}
}
