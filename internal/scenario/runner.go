// Package scenario runs guardian assertions from YAML files. Each case is
// a dry run through classification and the transition table only (no
// snapshots, no audit entries) so CI can gate on ruleset correctness
// without touching state.
package scenario

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/openvigil/vigil/internal/classify"
	"github.com/openvigil/vigil/internal/guardian"
	"github.com/openvigil/vigil/internal/model"
)

// Run evaluates all cases in a scenario against the given ruleset. Each
// case gets a fresh session state (cases are independent).
func Run(s *Scenario, rules *classify.Ruleset) *RunResult {
	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	for i, c := range s.Cases {
		a := rules.Classify(model.ActionRequest{
			Kind:          model.ActionKind(c.Action.Kind),
			Target:        c.Action.Target,
			Reversibility: model.Reversibility(c.Action.Reversibility),
			Signals:       c.Action.Signals,
		})
		out := guardian.Transition(model.Flow, a)

		actual := out.Next.String()
		expected := strings.ToLower(c.Expect)

		cr := CaseResult{
			Index:    i + 1,
			Kind:     c.Action.Kind,
			Target:   c.Action.Target,
			Expected: expected,
			Actual:   actual,
		}

		if actual == expected {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}

		result.Cases = append(result.Cases, cr)
	}

	return result
}

// LoadAndRun loads a scenario YAML file and evaluates it. The ruleset
// named in the file wins over the path argument; both empty means the
// built-in defaults.
func LoadAndRun(path, rulesetPath string) (*RunResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(s.Cases) == 0 {
		return nil, fmt.Errorf("scenario %s has no cases", path)
	}

	if s.Ruleset != "" {
		rulesetPath = s.Ruleset
	}
	rules, err := classify.Load(rulesetPath)
	if err != nil {
		return nil, fmt.Errorf("load ruleset: %w", err)
	}

	result := Run(&s, rules)
	result.File = path

	return result, nil
}
