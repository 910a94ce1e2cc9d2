package vigil

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	configPath string
	stateDir   string
	rulesPath  string
	sessionID  string
}

// WithConfig sets the path to a vigil config YAML file.
func WithConfig(path string) Option {
	return func(c *clientConfig) { c.configPath = path }
}

// WithStateDir roots the snapshot store, decision log, consent store and
// memory db under one directory, overriding the config paths.
func WithStateDir(dir string) Option {
	return func(c *clientConfig) { c.stateDir = dir }
}

// WithRuleset sets the path to a classifier pattern YAML file.
func WithRuleset(path string) Option {
	return func(c *clientConfig) { c.rulesPath = path }
}

// WithSessionID names the client's guardian session. Escalation is
// monotonic within a session; distinct agents should use distinct ids.
func WithSessionID(id string) Option {
	return func(c *clientConfig) { c.sessionID = id }
}

// WrapOption configures a single Wrap call.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	sessionID string
}

// WrapWithSession routes this wrapped tool through its own session.
func WrapWithSession(id string) WrapOption {
	return func(w *wrapConfig) { w.sessionID = id }
}
