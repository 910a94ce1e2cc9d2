// Package vigil provides in-process safety gating for Go agent
// frameworks. It wraps tool functions, classifies each proposed action,
// walks the Flow/Nudge/Pause/Block/Protect ladder, snapshots before
// anything irreversible, and refuses at boundaries agents cannot bypass.
//
// Usage:
//
//	v, err := vigil.New(vigil.WithStateDir("/var/lib/myagent/vigil"))
//	wrapped := v.Wrap(myTool)
//	result, err := wrapped(ctx, vigil.Action{
//	    Kind:   "delete",
//	    Target: "/data/cache",
//	})
//
// The SDK links directly against internal packages for zero-subprocess
// overhead. External users import github.com/openvigil/vigil/sdk/go/vigil.
package vigil
