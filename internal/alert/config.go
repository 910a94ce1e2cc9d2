// Package alert delivers guardian notifications to webhook sinks. The
// in-band Decision.Message satisfies the notify obligation toward the
// orchestrator; this package carries the same event to wherever the
// human actually watches.
package alert

// Config defines a webhook alert destination.
type Config struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack", "pagerduty"
	States  []string          `yaml:"states"  json:"states"` // ["pause", "block", "protect"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp   string `json:"timestamp"`
	SessionID   string `json:"session_id"`
	Kind        string `json:"kind"`
	Target      string `json:"target"`
	State       string `json:"state"`
	Message     string `json:"message"`
	SnapshotID  string `json:"snapshot_id,omitempty"`
	RulesetHash string `json:"ruleset_hash,omitempty"`
}
