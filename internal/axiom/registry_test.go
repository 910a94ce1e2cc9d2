package axiom

import (
	"errors"
	"testing"
)

func TestGetKnownIDs(t *testing.T) {
	for _, id := range []ID{A0, A1, A2, A3, A4, A5} {
		a, err := Get(id)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", id, err)
		}
		if a.ID() != id {
			t.Errorf("expected ID %s, got %s", id, a.ID())
		}
		if a.Name() == "" || a.Tenet() == "" {
			t.Errorf("axiom %s has empty name or tenet", id)
		}
	}
}

func TestGetUnknownID(t *testing.T) {
	_, err := Get("A9")
	if err == nil {
		t.Fatal("expected error for unknown axiom")
	}
	var unknown *ErrUnknownAxiom
	if !errors.As(err, &unknown) {
		t.Fatalf("expected ErrUnknownAxiom, got %T", err)
	}
	if unknown.ID != "A9" {
		t.Errorf("expected ID A9 in error, got %s", unknown.ID)
	}
}

func TestAllReturnsSixInOrder(t *testing.T) {
	all := All()
	if len(all) != 6 {
		t.Fatalf("expected 6 axioms, got %d", len(all))
	}
	want := []ID{A0, A1, A2, A3, A4, A5}
	for i, a := range all {
		if a.ID() != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], a.ID())
		}
	}
}

func TestAllReturnsCopy(t *testing.T) {
	first := All()
	first[0] = Axiom{}
	second := All()
	if second[0].ID() != A0 {
		t.Error("mutating All() result leaked into the registry")
	}
}

func TestMustGetPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for unknown axiom")
		}
	}()
	MustGet("bogus")
}
