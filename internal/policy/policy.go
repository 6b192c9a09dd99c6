// Package policy maps a federated search outcome and the configured action
// to an upload-gating decision.
package policy

import (
	"fmt"

	"fedgate/internal/federation"
	"fedgate/internal/search"
)

type Status string

const (
	StatusProceed Status = "PROCEED"
	StatusStop    Status = "STOP"
	StatusWarn    Status = "WARN"
)

// Decision is the gating outcome for one upload. Every decision carries a
// human-readable message, never a bare status.
type Decision struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// Decide applies the decision table:
//
//	found=false, any action        -> PROCEED
//	found=true,  action "block"    -> STOP
//	found=true,  action "warn"     -> WARN
//	found=true,  anything else     -> STOP (fail-closed on broken policy config)
func Decide(result search.Result, action string) Decision {
	if !result.Found {
		return Decision{
			Status:  StatusProceed,
			Message: "no duplicate artifacts found in the federation",
		}
	}

	where := duplicateMessage(result.First)
	switch action {
	case federation.ActionBlock:
		return Decision{Status: StatusStop, Message: where}
	case federation.ActionWarn:
		return Decision{Status: StatusWarn, Message: where}
	default:
		// Silently allowing an upload when the policy configuration is
		// broken is worse than blocking it.
		return Decision{
			Status: StatusStop,
			Message: fmt.Sprintf("duplicate artifact found but configured action %q is not recognized (expected %q or %q); blocking upload",
				action, federation.ActionBlock, federation.ActionWarn),
		}
	}
}

func duplicateMessage(hit *search.Hit) string {
	return fmt.Sprintf("duplicate artifact found on %s in repository %q at %s",
		hit.TargetURL, hit.Item.Repo, hit.Item.FullPath())
}
