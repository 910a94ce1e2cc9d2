// Package axiom holds the process-wide immutable value registry. The six
// axioms are built once at init and exposed through value-returning
// accessors only; no mutation path exists at the package boundary.
package axiom

import "fmt"

// ID names one of the six fixed axioms.
type ID string

const (
	// A0 is the foundational triad every derived axiom traces back to.
	A0 ID = "A0"
	// A1 transparency: the user can always see what was done and why.
	A1 ID = "A1"
	// A2 user primacy: the user's explicit intent outranks the agent's.
	A2 ID = "A2"
	// A3 derivability: every rule must derive from A0, not from precedent.
	A3 ID = "A3"
	// A4 non-harm: no action may destroy user work or exceed its mandate.
	A4 ID = "A4"
	// A5 consistency: equal inputs receive equal treatment across sessions.
	A5 ID = "A5"
)

// Axiom is an immutable named value. Fields are unexported so a caller
// holding an Axiom copy cannot forge or alter registry state.
type Axiom struct {
	id    ID
	name  string
	tenet string
}

// ID returns the axiom identifier.
func (a Axiom) ID() ID { return a.id }

// Name returns the short human-readable name.
func (a Axiom) Name() string { return a.name }

// Tenet returns the one-line statement of the axiom.
func (a Axiom) Tenet() string { return a.tenet }

// ErrUnknownAxiom is returned by Get for an identifier outside the closed
// set. Reaching it is a programmer error, not a runtime condition.
type ErrUnknownAxiom struct {
	ID ID
}

func (e *ErrUnknownAxiom) Error() string {
	return fmt.Sprintf("unknown axiom %q", string(e.ID))
}

// registry is the closed, fixed table. Populated once below; nothing in
// this package or outside it appends, deletes, or reassigns entries.
var registry = map[ID]Axiom{
	A0: {id: A0, name: "foundational triad", tenet: "Love, Truth, Beauty ground every derived rule."},
	A1: {id: A1, name: "transparency", tenet: "Every decision and its justification are visible to the user."},
	A2: {id: A2, name: "user primacy", tenet: "Explicit user intent outranks agent initiative."},
	A3: {id: A3, name: "derivability", tenet: "Rules derive from the triad, never from accumulated precedent."},
	A4: {id: A4, name: "non-harm", tenet: "User work is never destroyed or silently lost."},
	A5: {id: A5, name: "consistency", tenet: "Identical situations receive identical treatment."},
}

// order fixes the iteration order for All.
var order = []ID{A0, A1, A2, A3, A4, A5}

// Get looks up an axiom by identifier.
func Get(id ID) (Axiom, error) {
	a, ok := registry[id]
	if !ok {
		return Axiom{}, &ErrUnknownAxiom{ID: id}
	}
	return a, nil
}

// MustGet is Get for the fixed identifiers declared in this package.
// It panics on an unknown ID because that can only be a typo in code.
func MustGet(id ID) Axiom {
	a, err := Get(id)
	if err != nil {
		panic(err)
	}
	return a
}

// All returns the six axioms in declaration order. The returned slice is
// a fresh copy each call.
func All() []Axiom {
	out := make([]Axiom, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}
