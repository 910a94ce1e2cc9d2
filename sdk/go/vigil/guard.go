package vigil

import (
	"context"
)

// ToolFunc is the function signature that Wrap guards. The caller
// provides an Action describing the intended operation.
type ToolFunc func(ctx context.Context, action Action) (any, error)

// Wrap returns a new ToolFunc that evaluates the guardian before calling
// fn. A refusal returns a *RefusedError without calling fn; the wrapped
// tool never observes a refused action.
func (c *Client) Wrap(fn ToolFunc, opts ...WrapOption) ToolFunc {
	wcfg := wrapConfig{sessionID: c.cfg.sessionID}
	for _, o := range opts {
		o(&wcfg)
	}

	return func(ctx context.Context, action Action) (any, error) {
		sess := c.session(wcfg.sessionID)

		d, err := sess.Evaluate(ctx, toRequest(action))
		if err != nil || !d.Allowed() {
			return nil, &RefusedError{
				Action:       action,
				State:        State(d.State.String()),
				Message:      d.Message,
				Alternatives: d.Alternatives,
				SnapshotID:   d.SnapshotID,
			}
		}

		out, err := fn(ctx, action)
		if err != nil && d.SnapshotID != "" {
			// The tool failed mid-flight; put the pre-state back.
			if rerr := sess.Rollback(d.SnapshotID); rerr != nil {
				return nil, rerr
			}
		}
		return out, err
	}
}
