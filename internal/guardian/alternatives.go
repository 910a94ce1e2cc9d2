package guardian

import (
	"fmt"

	"github.com/openvigil/vigil/internal/model"
)

// alternativesFor produces concrete substitute actions for a refused
// request. The list is never empty: a refusal with no way forward teaches
// the orchestrator to stop asking, which is the opposite of what the
// block is for.
func alternativesFor(req model.ActionRequest) []string {
	switch req.Kind {
	case model.KindDelete:
		return []string{
			"archive then delete",
			"move to trash",
		}

	case model.KindWrite:
		return []string{
			fmt.Sprintf("write to a scratch copy of %s and present a diff", req.Target),
			"ask the user to apply the change manually",
		}

	case model.KindExecute:
		return []string{
			"run the command with a --dry-run flag and show the plan",
			"narrow the command to a single explicit path instead of a glob",
		}

	case model.KindNetwork:
		return []string{
			"show the exact payload and destination for user review before sending",
			"write the payload to a local file instead of transmitting it",
		}

	case model.KindMemoryWrite:
		return []string{
			"request explicit user consent for this memory write",
			"keep the knowledge session-local instead of persisting it",
		}

	default:
		return []string{
			"describe the intended outcome and let the user perform the action",
		}
	}
}
