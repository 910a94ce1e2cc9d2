package guardian

import "github.com/openvigil/vigil/internal/model"

// Outcome is the pure result of one transition: the next state plus the
// intents the caller must honor before the action may proceed. Side
// effects (snapshotting, notification) are performed by Evaluate, not
// here, so the table stays unit-testable in isolation.
type Outcome struct {
	Next         model.State
	Notify       bool
	Alternatives bool
	Snapshot     bool
}

// Transition computes the next guardian state for an assessment.
//
// The function is total over both closed enums and monotonic: the session
// never de-escalates on its own. Protect is sticky by construction:
// max(Protect, anything) is Protect. Escalation-only also covers the
// failure semantics: a degraded assessment can only tighten the state,
// and a retry re-evaluates from the already-escalated level.
func Transition(current model.State, a model.Assessment) Outcome {
	next := target(a)
	if current > next {
		next = current
	}
	notify, alts, snap := requirements(next)
	return Outcome{Next: next, Notify: notify, Alternatives: alts, Snapshot: snap}
}

// target maps an assessment to the minimum intervention level it demands.
func target(a model.Assessment) model.State {
	if a.ConsentGated {
		return model.Protect
	}

	switch a.Category {
	case model.RiskBenign:
		return model.Flow

	case model.RiskMinor:
		if a.Reversibility == model.Reversible {
			return model.Nudge
		}
		// Minor but not provably reversible is not in the benign half
		// of the table; take the more restrictive neighbor.
		return model.Pause

	case model.RiskIrreversible:
		if a.Scope == model.ScopeWide {
			return model.Block
		}
		return model.Pause

	case model.RiskCatastrophic:
		return model.Protect

	default:
		// A category outside the closed set means the classifier and
		// this table disagree about the world. Refuse.
		return model.Protect
	}
}

// requirements returns the obligations attached to a resulting state:
// Pause and above notify the user, Block and above carry alternatives,
// and anything at Pause or above snapshots before the action may run.
func requirements(s model.State) (notify, alternatives, snapshot bool) {
	switch s {
	case model.Pause:
		return true, false, true
	case model.Block, model.Protect:
		return true, true, true
	default:
		return false, false, false
	}
}
