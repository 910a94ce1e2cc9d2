package audit

// EntryAction is the flattened action recorded in each audit entry.
type EntryAction struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
}

// EntryAssessment is the flattened classifier verdict.
type EntryAssessment struct {
	Category      string `json:"category"`
	Reversibility string `json:"reversibility"`
	Scope         string `json:"scope"`
}

// Entry is one line in the hash-chained JSONL decision log. All fields
// are structs (no map[string]any) to guarantee deterministic json.Marshal
// field order for reproducible hashing.
type Entry struct {
	Timestamp   string          `json:"ts"`
	SessionID   string          `json:"session_id"`
	Action      EntryAction     `json:"action"`
	Assessment  EntryAssessment `json:"assessment"`
	State       string          `json:"state"`
	Message     string          `json:"message,omitempty"`
	SnapshotID  string          `json:"snapshot_id,omitempty"`
	AxiomIDs    []string        `json:"axiom_ids,omitempty"`
	RulesetHash string          `json:"ruleset_hash,omitempty"`
	PrevHash    string          `json:"prev_hash"`
}
