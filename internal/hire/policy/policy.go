// Package policy gates every mutating hire operation. It is a pure function
// of the actor and the hire so it can be evaluated before any store access.
package policy

import (
	"strings"

	"hiretrack/internal/hire/models"
)

// Allowed reports whether actor may perform action on hire.
//
// Role actions accept the resolved identity, a case-insensitive handle match
// against the assigned slot, the hire's creator, or an admin. Lifecycle
// actions (complete, reopen, add_note) are creator/admin only. Reads are
// always allowed.
func Allowed(actor models.Actor, hire *models.Hire, action models.Action) bool {
	if action == models.ActionShowStatus {
		return true
	}

	isCreator := actor.ID == hire.CreatorID
	if isCreator || actor.IsAdmin {
		return true
	}

	switch action {
	case models.ActionLeaderAck:
		return matches(actor, hire.Leader)
	case models.ActionDocsSent:
		return matches(actor, hire.Legal)
	case models.ActionAccessGranted:
		return matches(actor, hire.DevOps)
	default:
		// complete, reopen, add_note: creator/admin already handled above.
		return false
	}
}

func matches(actor models.Actor, slot models.Assignment) bool {
	if slot.UserID != 0 && actor.ID == slot.UserID {
		return true
	}
	return actor.Handle != "" && strings.EqualFold(actor.Handle, slot.Handle)
}
