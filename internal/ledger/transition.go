package ledger

import "fmt"

// ValidLeaseTransitions lists the statuses each lease status may move to.
var ValidLeaseTransitions = map[string][]string{
	string(LeaseActive):     {string(LeaseSuspended), string(LeaseTerminated), string(LeaseExpired)},
	string(LeaseSuspended):  {string(LeaseActive), string(LeaseTerminated)},
	string(LeaseTerminated): {},
	string(LeaseExpired):    {},
}

// ValidRoomTransitions lists the administrative room status changes.
// Rooms become occupied only through a lease.
var ValidRoomTransitions = map[string][]string{
	string(RoomFree):        {string(RoomMaintenance), string(RoomReserved)},
	string(RoomMaintenance): {string(RoomFree), string(RoomReserved)},
	string(RoomReserved):    {string(RoomFree), string(RoomMaintenance)},
	string(RoomOccupied):    {},
}

// ValidateTransition checks whether transitioning from current to target is
// allowed according to the given transition map. It returns nil if the
// transition is valid, or an *InvariantViolation otherwise.
func ValidateTransition(transitions map[string][]string, current, target string) error {
	allowed, ok := transitions[current]
	if !ok {
		return violation("transition", "unknown current state: %s", current)
	}
	for _, s := range allowed {
		if s == target {
			return nil
		}
	}
	return &InvariantViolation{Rule: "transition", Detail: fmt.Sprintf("transition from %q to %q is not allowed", current, target)}
}
