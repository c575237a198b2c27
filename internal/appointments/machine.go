package appointments

import (
	"github.com/vetcare/vetclinic-platform/internal/apperrors"
)

// Role identifies the actor class attempting a transition.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleClinic Role = "clinic"
	RoleAdmin  Role = "admin"
)

func validRole(r Role) bool {
	return r == RoleOwner || r == RoleClinic || r == RoleAdmin
}

// Action names a state-machine operation.
type Action string

const (
	ActionConfirm   Action = "confirm"
	ActionCancel    Action = "cancel"
	ActionSetStatus Action = "set_status"
	ActionDelete    Action = "delete"
)

type transitionKey struct {
	Role   Role
	Action Action
}

// transitionTable is the central authorization table: which actor may run
// which action, and the statuses the action is allowed to produce. An
// empty target list means the action never changes status.
var transitionTable = map[transitionKey][]Status{
	{RoleOwner, ActionConfirm}: {},
	{RoleOwner, ActionCancel}:  {StatusCancelled},
	{RoleClinic, ActionSetStatus}: {
		StatusPendingRequest, StatusPending, StatusAccepted,
		StatusCompleted, StatusCancelled, StatusRejected,
	},
	{RoleAdmin, ActionDelete}: {},
}

// Transition validates one state-machine step and returns the resulting
// status. Terminal states accept no transition except administrative
// delete. Authorization failures never depend on the target, so callers
// can surface them before validating input.
func Transition(current Status, role Role, action Action, target Status) (Status, error) {
	targets, ok := transitionTable[transitionKey{role, action}]
	if !ok {
		return current, apperrors.Unauthorized("role %s may not %s an appointment", role, action)
	}

	if action == ActionDelete {
		return current, nil
	}
	if current.IsTerminal() {
		return current, apperrors.Conflict("appointment is already %s", current)
	}

	if len(targets) == 0 {
		return current, nil
	}
	for _, t := range targets {
		if t == target {
			return target, nil
		}
	}
	return current, apperrors.Invalid("invalid status %q", target)
}
