package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/openvigil/vigil/internal/classify"
)

func TestRunAllPass(t *testing.T) {
	s := &Scenario{
		Name: "baseline",
		Cases: []Case{
			{Action: Action{Kind: "write", Target: "/tmp/a.txt", Reversibility: "reversible"}, Expect: "nudge"},
			{Action: Action{Kind: "delete", Target: "/tmp/a.txt"}, Expect: "pause"},
			{Action: Action{Kind: "delete", Target: "/tmp", Signals: []string{"recursive"}}, Expect: "block"},
			{Action: Action{Kind: "permanent_memory_write", Target: "fact/x"}, Expect: "protect"},
			{Action: Action{Kind: "sorcery", Target: "/tmp/a.txt"}, Expect: "block"},
		},
	}

	r := Run(s, classify.Default())
	if r.Failed != 0 {
		t.Fatalf("expected all passing, got %+v", r.Cases)
	}
	if r.Passed != 5 {
		t.Errorf("passed = %d, want 5", r.Passed)
	}
}

func TestRunReportsFailure(t *testing.T) {
	s := &Scenario{
		Name: "mismatch",
		Cases: []Case{
			{Action: Action{Kind: "delete", Target: "/tmp/a.txt"}, Expect: "flow"},
		},
	}

	r := Run(s, classify.Default())
	if r.Failed != 1 {
		t.Fatalf("expected 1 failure, got %d", r.Failed)
	}
	c := r.Cases[0]
	if c.Passed || c.Actual != "pause" {
		t.Errorf("case = %+v", c)
	}
}

func TestCasesAreIndependent(t *testing.T) {
	// An escalating case must not bleed into the next one.
	s := &Scenario{
		Name: "independent",
		Cases: []Case{
			{Action: Action{Kind: "delete", Target: "/tmp", Signals: []string{"recursive"}}, Expect: "block"},
			{Action: Action{Kind: "write", Target: "/tmp/b.txt", Reversibility: "reversible"}, Expect: "nudge"},
		},
	}

	r := Run(s, classify.Default())
	if r.Failed != 0 {
		t.Fatalf("cases leaked state: %+v", r.Cases)
	}
}

func TestLoadAndRun(t *testing.T) {
	content := `name: file-scenario
cases:
  - action:
      kind: write
      target: /tmp/x.txt
      reversibility: reversible
    expect: nudge
  - action:
      kind: delete
      target: /data
      signals: [recursive]
    expect: block
`
	path := filepath.Join(t.TempDir(), "s.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	r, err := LoadAndRun(path, "")
	if err != nil {
		t.Fatalf("LoadAndRun failed: %v", err)
	}
	if r.Failed != 0 {
		t.Errorf("expected all passing: %+v", r.Cases)
	}
	if r.File != path {
		t.Errorf("File = %q", r.File)
	}
}

func TestLoadAndRunRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: hollow\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAndRun(path, ""); err == nil {
		t.Fatal("expected error for scenario with no cases")
	}
}

func TestFormatText(t *testing.T) {
	r := &RunResult{
		Name: "fmt", Total: 2, Passed: 1, Failed: 1,
		Cases: []CaseResult{
			{Index: 1, Passed: true, Kind: "write", Target: "/a", Expected: "nudge", Actual: "nudge"},
			{Index: 2, Kind: "delete", Target: "/b", Expected: "flow", Actual: "pause"},
		},
	}
	out := FormatText([]*RunResult{r})
	if !strings.Contains(out, "FAIL  fmt (1/2)") {
		t.Errorf("missing scenario line: %s", out)
	}
	if !strings.Contains(out, "expected flow, got pause") {
		t.Errorf("missing case detail: %s", out)
	}
}
