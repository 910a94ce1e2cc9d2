package vigil

import (
	"fmt"

	"github.com/openvigil/vigil/internal/model"
)

// State is a guardian intervention level.
type State string

const (
	Flow    State = "flow"
	Nudge   State = "nudge"
	Pause   State = "pause"
	Block   State = "block"
	Protect State = "protect"
)

// Action describes what a tool intends to do.
type Action struct {
	Kind          string   // "write", "delete", "execute", "network", "permanent_memory_write"
	Target        string   // path, resource identifier, URL
	Reversibility string   // optional hint: "reversible", "irreversible", "unknown"
	Signals       []string // optional risk signals
}

// Result is a guardian evaluation outcome.
type Result struct {
	State        State
	Message      string
	Alternatives []string
	SnapshotID   string
	AxiomIDs     []string
}

// Allowed returns true if the decision permits the action.
func (r Result) Allowed() bool {
	switch r.State {
	case Flow, Nudge, Pause:
		return true
	}
	return false
}

// RefusedError is returned when the guardian refuses an action.
type RefusedError struct {
	Action       Action
	State        State
	Message      string
	Alternatives []string
	SnapshotID   string
}

func (e *RefusedError) Error() string {
	return fmt.Sprintf("vigil refused (%s): %s", e.State, e.Message)
}

func toRequest(a Action) model.ActionRequest {
	return model.ActionRequest{
		Kind:          model.ActionKind(a.Kind),
		Target:        a.Target,
		Reversibility: model.Reversibility(a.Reversibility),
		Signals:       a.Signals,
	}
}

func toResult(d model.Decision) Result {
	return Result{
		State:        State(d.State.String()),
		Message:      d.Message,
		Alternatives: d.Alternatives,
		SnapshotID:   d.SnapshotID,
		AxiomIDs:     d.AxiomIDs,
	}
}
