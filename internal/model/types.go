package model

import "time"

// ActionKind identifies the class of side effect an action would have.
type ActionKind string

const (
	KindWrite       ActionKind = "write"
	KindDelete      ActionKind = "delete"
	KindExecute     ActionKind = "execute"
	KindNetwork     ActionKind = "network"
	KindMemoryWrite ActionKind = "permanent_memory_write"
)

// KnownKinds is the closed set of action kinds the classifier understands.
// Anything outside this set is treated as unknown and fails closed.
var KnownKinds = map[ActionKind]bool{
	KindWrite:       true,
	KindDelete:      true,
	KindExecute:     true,
	KindNetwork:     true,
	KindMemoryWrite: true,
}

// Reversibility describes whether an action's effects can be undone.
type Reversibility string

const (
	Reversible   Reversibility = "reversible"
	Irreversible Reversibility = "irreversible"
	RevUnknown   Reversibility = "unknown"
)

// Scope describes the blast radius of an action.
type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeWide   Scope = "wide"
)

// RiskCategory is the classifier's verdict on a proposed action.
type RiskCategory string

const (
	RiskBenign       RiskCategory = "benign"
	RiskMinor        RiskCategory = "minor"
	RiskIrreversible RiskCategory = "irreversible"
	RiskCatastrophic RiskCategory = "catastrophic"
)

// RiskRank maps categories to comparable integers for monotonic escalation.
var RiskRank = map[RiskCategory]int{
	RiskBenign:       0,
	RiskMinor:        1,
	RiskIrreversible: 2,
	RiskCatastrophic: 3,
}

// ActionRequest is one proposed side-effecting operation, created by the
// orchestrator and consumed exactly once by the Guardian.
type ActionRequest struct {
	Kind ActionKind `json:"kind"`
	// Target is the path or resource identifier the action would touch.
	Target string `json:"target"`
	// Reversibility is the orchestrator-declared hint. It is advisory:
	// the classifier may only tighten it, never relax it.
	Reversibility Reversibility `json:"reversibility"`
	Signals       []string      `json:"signals,omitempty"`
}

// Assessment is the Risk Classifier output.
type Assessment struct {
	Category       RiskCategory  `json:"category"`
	Reversibility  Reversibility `json:"reversibility"`
	Scope          Scope         `json:"scope"`
	MatchedSignals []string      `json:"matched_signals,omitempty"`
	AxiomIDs       []string      `json:"axiom_ids,omitempty"`
	ConsentGated   bool          `json:"consent_gated,omitempty"`
}

// State is one of the five guardian intervention levels. The integer
// backing gives the total order Flow < Nudge < Pause < Block < Protect.
type State int

const (
	Flow State = iota
	Nudge
	Pause
	Block
	Protect
)

// String returns the lowercase level name.
func (s State) String() string {
	switch s {
	case Flow:
		return "flow"
	case Nudge:
		return "nudge"
	case Pause:
		return "pause"
	case Block:
		return "block"
	case Protect:
		return "protect"
	default:
		return "unknown"
	}
}

// ParseState maps a level name back to a State. Unrecognized names map to
// Protect: a corrupted or unknown level must fail toward safety.
func ParseState(s string) State {
	switch s {
	case "flow":
		return Flow
	case "nudge":
		return Nudge
	case "pause":
		return Pause
	case "block":
		return Block
	default:
		return Protect
	}
}

// Decision is the Guardian's answer to one ActionRequest. Immutable once
// returned; Alternatives is non-empty whenever State >= Block.
type Decision struct {
	SessionID    string    `json:"session_id"`
	State        State     `json:"state"`
	Message      string    `json:"message,omitempty"`
	Alternatives []string  `json:"alternatives,omitempty"`
	SnapshotID   string    `json:"snapshot_id,omitempty"`
	AxiomIDs     []string  `json:"axiom_ids,omitempty"`
	DecidedAt    time.Time `json:"decided_at"`
}

// Allowed reports whether the original action may execute under this
// decision. Pause requires the notification to have been surfaced first,
// which Evaluate guarantees before returning.
func (d Decision) Allowed() bool {
	return d.State <= Pause
}
