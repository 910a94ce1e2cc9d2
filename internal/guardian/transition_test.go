package guardian

import (
	"testing"

	"github.com/openvigil/vigil/internal/model"
)

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		name string
		a    model.Assessment
		want model.State
	}{
		{"benign", model.Assessment{Category: model.RiskBenign, Reversibility: model.Reversible}, model.Flow},
		{"minor reversible", model.Assessment{Category: model.RiskMinor, Reversibility: model.Reversible}, model.Nudge},
		{"minor unknown reversibility", model.Assessment{Category: model.RiskMinor, Reversibility: model.RevUnknown}, model.Pause},
		{"minor irreversible", model.Assessment{Category: model.RiskMinor, Reversibility: model.Irreversible}, model.Pause},
		{"irreversible single", model.Assessment{Category: model.RiskIrreversible, Reversibility: model.Irreversible, Scope: model.ScopeSingle}, model.Pause},
		{"irreversible wide", model.Assessment{Category: model.RiskIrreversible, Reversibility: model.Irreversible, Scope: model.ScopeWide}, model.Block},
		{"catastrophic", model.Assessment{Category: model.RiskCatastrophic}, model.Protect},
		{"consent gated", model.Assessment{Category: model.RiskCatastrophic, ConsentGated: true}, model.Protect},
		{"unknown category refuses", model.Assessment{Category: model.RiskCategory("weird")}, model.Protect},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Transition(model.Flow, tt.a)
			if out.Next != tt.want {
				t.Errorf("Transition(Flow, %s) = %s, want %s", tt.name, out.Next, tt.want)
			}
		})
	}
}

func TestTransitionMonotonic(t *testing.T) {
	benign := model.Assessment{Category: model.RiskBenign, Reversibility: model.Reversible}

	states := []model.State{model.Flow, model.Nudge, model.Pause, model.Block, model.Protect}
	for _, from := range states {
		out := Transition(from, benign)
		if out.Next < from {
			t.Errorf("Transition(%s, benign) de-escalated to %s", from, out.Next)
		}
	}
}

func TestTransitionProtectSticky(t *testing.T) {
	for _, a := range []model.Assessment{
		{Category: model.RiskBenign, Reversibility: model.Reversible},
		{Category: model.RiskMinor, Reversibility: model.Reversible},
		{Category: model.RiskIrreversible, Scope: model.ScopeWide},
	} {
		out := Transition(model.Protect, a)
		if out.Next != model.Protect {
			t.Errorf("Protect must be sticky, got %s for %+v", out.Next, a)
		}
	}
}

func TestTransitionRequirements(t *testing.T) {
	tests := []struct {
		state                 model.State
		notify, alts, snap bool
	}{
		{model.Flow, false, false, false},
		{model.Nudge, false, false, false},
		{model.Pause, true, false, true},
		{model.Block, true, true, true},
		{model.Protect, true, true, true},
	}
	for _, tt := range tests {
		notify, alts, snap := requirements(tt.state)
		if notify != tt.notify || alts != tt.alts || snap != tt.snap {
			t.Errorf("requirements(%s) = (%v,%v,%v), want (%v,%v,%v)",
				tt.state, notify, alts, snap, tt.notify, tt.alts, tt.snap)
		}
	}
}

func TestAlternativesNeverEmpty(t *testing.T) {
	kinds := []model.ActionKind{
		model.KindWrite, model.KindDelete, model.KindExecute,
		model.KindNetwork, model.KindMemoryWrite, model.ActionKind("other"),
	}
	for _, k := range kinds {
		alts := alternativesFor(model.ActionRequest{Kind: k, Target: "/x"})
		if len(alts) == 0 {
			t.Errorf("alternativesFor(%s) returned no alternatives", k)
		}
	}
}
