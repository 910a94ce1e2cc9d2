package scenario

// Action defines the action under test.
type Action struct {
	Kind          string   `yaml:"kind"`
	Target        string   `yaml:"target"`
	Reversibility string   `yaml:"reversibility,omitempty"`
	Signals       []string `yaml:"signals,omitempty"`
}

// Case is one test case within a scenario. Each case starts its own
// session at Flow; Expect names the state the guardian must land on.
type Case struct {
	Action Action `yaml:"action"`
	Expect string `yaml:"expect"`
}

// Scenario is a named collection of guardian test cases.
type Scenario struct {
	Name    string `yaml:"name"`
	Ruleset string `yaml:"ruleset,omitempty"`
	Cases   []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index    int    `json:"index"`
	Passed   bool   `json:"passed"`
	Kind     string `json:"kind"`
	Target   string `json:"target"`
	Expected string `json:"expected"`
	Actual   string `json:"actual"`
	Message  string `json:"message,omitempty"`
}

// RunResult is the outcome of running all cases in one scenario file.
type RunResult struct {
	File   string       `json:"file"`
	Name   string       `json:"name"`
	Total  int          `json:"total"`
	Passed int          `json:"passed"`
	Failed int          `json:"failed"`
	Cases  []CaseResult `json:"cases"`
}
