package application

import "slices"

// Resource names the kind of record an action targets.
type Resource string

const (
	ResourceBooking  Resource = "booking"
	ResourceProperty Resource = "property"
	ResourceRoom     Resource = "room"
	ResourceSession  Resource = "session"
	ResourceUser     Resource = "user"
)

// Operation names what the caller wants to do with the resource.
type Operation string

const (
	OperationCreate   Operation = "create"
	OperationView     Operation = "view"
	OperationList     Operation = "list"
	OperationUpdate   Operation = "update"
	OperationDelete   Operation = "delete"
	OperationApprove  Operation = "approve"
	OperationReject   Operation = "reject"
	OperationComplete Operation = "complete"
	OperationCancel   Operation = "cancel"
)

// Action describes a guarded operation. OwnerIDs lists the users entitled to it
// besides administrators.
type Action struct {
	Resource  Resource
	Operation Operation
	OwnerIDs  []string
}

// Authorize decides whether caller may perform action. A nil caller is an
// unauthenticated guest. Rules apply in order:
//
//  1. admins are always allowed;
//  2. booking creation is open to tenants and guests only;
//  3. every other operation needs a caller;
//  4. the caller must be one of the action's owners.
func Authorize(caller *Principal, action Action) error {
	if caller != nil && caller.IsAdmin() {
		return nil
	}

	if action.Resource == ResourceBooking && action.Operation == OperationCreate {
		if caller == nil || caller.Role == RoleTenant {
			return nil
		}
		return ErrForbidden
	}

	if caller == nil || caller.UserID == "" {
		return ErrUnauthenticated
	}

	if slices.Contains(action.OwnerIDs, caller.UserID) {
		return nil
	}
	return ErrForbidden
}
