// Package classify maps a proposed action to a risk assessment. The
// classifier is a pure function over a compiled ruleset: no I/O, no clock,
// no randomness. Ambiguous or malformed input classifies at the unknown
// tier or above, never as safe.
package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openvigil/vigil/internal/axiom"
	"github.com/openvigil/vigil/internal/model"
)

// Classify assesses one action request against the ruleset.
//
// Matching order (must not be changed):
//  1. Malformed input: unknown kind or empty target fails closed
//  2. Permanent memory writes: consent-gated, handled by the store
//  3. Secret-shaped content: catastrophic, credential loss is unrecoverable
//  4. Destructive verbs: irreversible; scope decides Pause vs Block
//  5. Kind baseline: delete irreversible, write/network minor, else benign
//
// The orchestrator's reversibility hint can only tighten the result.
func (rs *Ruleset) Classify(req model.ActionRequest) model.Assessment {
	target := strings.ToLower(req.Target)
	haystack := target + " " + strings.ToLower(strings.Join(req.Signals, " "))

	// Step 1: fail closed on input we cannot reason about.
	if !model.KnownKinds[req.Kind] || strings.TrimSpace(req.Target) == "" {
		return model.Assessment{
			Category:       model.RiskIrreversible,
			Reversibility:  model.RevUnknown,
			Scope:          model.ScopeWide,
			MatchedSignals: []string{"unclassifiable_input"},
			AxiomIDs:       []string{string(axiom.A4)},
		}
	}

	// Step 2: permanent memory writes are consent territory regardless of
	// how harmless the content looks.
	if req.Kind == model.KindMemoryWrite {
		return model.Assessment{
			Category:       model.RiskCatastrophic,
			Reversibility:  model.Irreversible,
			Scope:          rs.scopeOf(req, haystack),
			MatchedSignals: []string{"permanent_memory_write"},
			AxiomIDs:       []string{string(axiom.A1), string(axiom.A2)},
			ConsentGated:   true,
		}
	}

	var matched []string

	// Step 3: secret-shaped content in the target or signals.
	for _, re := range rs.secrets {
		if re.MatchString(req.Target) || re.MatchString(strings.Join(req.Signals, " ")) {
			matched = append(matched, "secret:"+re.String())
		}
	}
	if len(matched) > 0 {
		return model.Assessment{
			Category:       model.RiskCatastrophic,
			Reversibility:  model.Irreversible,
			Scope:          model.ScopeWide,
			MatchedSignals: matched,
			AxiomIDs:       []string{string(axiom.A4)},
		}
	}

	// Step 4: destructive verbs.
	for _, verb := range rs.destructive {
		if strings.Contains(haystack, verb) {
			matched = append(matched, "destructive:"+verb)
		}
	}
	if len(matched) > 0 || req.Kind == model.KindDelete {
		if req.Kind == model.KindDelete && len(matched) == 0 {
			matched = append(matched, "destructive:delete")
		}
		return model.Assessment{
			Category:       model.RiskIrreversible,
			Reversibility:  model.Irreversible,
			Scope:          rs.scopeOf(req, haystack),
			MatchedSignals: matched,
			AxiomIDs:       []string{string(axiom.A4)},
		}
	}

	// Step 5: kind baseline, tightened by the orchestrator hint.
	cat := model.RiskBenign
	rev := model.Reversible
	switch req.Kind {
	case model.KindWrite, model.KindNetwork:
		cat = model.RiskMinor
	case model.KindExecute:
		// An execute with no recognizable pattern is unknown territory.
		cat = model.RiskMinor
		rev = model.RevUnknown
	}
	if req.Reversibility == model.Irreversible || req.Reversibility == model.RevUnknown {
		if model.RiskRank[cat] < model.RiskRank[model.RiskIrreversible] {
			cat = model.RiskIrreversible
		}
		rev = req.Reversibility
	}

	return model.Assessment{
		Category:       cat,
		Reversibility:  rev,
		Scope:          rs.scopeOf(req, haystack),
		MatchedSignals: matched,
		AxiomIDs:       axiomsFor(cat),
	}
}

// scopeOf decides single-target vs wide blast radius.
func (rs *Ruleset) scopeOf(req model.ActionRequest, haystack string) model.Scope {
	for _, w := range rs.wideScope {
		if strings.Contains(haystack, w) {
			return model.ScopeWide
		}
	}
	if rs.protected[strings.TrimRight(req.Target, "/")] || rs.protected[req.Target] {
		return model.ScopeWide
	}
	for _, s := range req.Signals {
		if strings.EqualFold(s, "recursive") || strings.EqualFold(s, "wide") {
			return model.ScopeWide
		}
	}
	return model.ScopeSingle
}

// axiomsFor attaches the justifying axioms for a non-benign category.
func axiomsFor(cat model.RiskCategory) []string {
	switch cat {
	case model.RiskBenign:
		return nil
	case model.RiskMinor:
		return []string{string(axiom.A1)}
	default:
		return []string{string(axiom.A4)}
	}
}

// hashPatterns returns "sha256:<hex>" over the canonical YAML encoding of
// the raw patterns.
func hashPatterns(p Patterns) string {
	data, err := yaml.Marshal(p)
	if err != nil {
		return "sha256:unhashable"
	}
	h := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(h[:])
}
