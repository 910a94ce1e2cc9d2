package alert

// Dispatcher fans out guardian events to matching webhook configurations.
type Dispatcher struct {
	configs []Config
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if configs is empty (callers should nil-check).
func NewDispatcher(configs []Config) *Dispatcher {
	if len(configs) == 0 {
		return nil
	}
	return &Dispatcher{configs: configs}
}

// Dispatch sends the event to all webhooks whose States list matches.
// Fires goroutines; does not block the evaluate path.
func (d *Dispatcher) Dispatch(event Event) {
	for _, cfg := range d.configs {
		if matches(cfg.States, event.State) {
			go Send(cfg, event)
		}
	}
}

func matches(states []string, state string) bool {
	if len(states) == 0 {
		// No filter means every notifying state.
		return true
	}
	for _, s := range states {
		if s == state {
			return true
		}
	}
	return false
}
