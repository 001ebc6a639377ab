package light

import "context"

// Verb is the command verb forwarded to member devices.
type Verb string

const (
	VerbTurnOn  Verb = "turn_on"
	VerbTurnOff Verb = "turn_off"
)

// Command is one batched request to the device control surface. The core
// issues exactly one Command per dispatch operation, never one per member.
type Command struct {
	Verb       Verb
	Targets    []MemberID
	Attributes Attributes
}

// StateSource provides the latest known state of member devices and change
// notification. Implemented by a transport collaborator (see internal/mqtt).
type StateSource interface {
	// State returns the latest known snapshot for id. The second return is
	// false when the source has no state for the member.
	State(id MemberID) (DeviceState, bool)

	// OnChange invokes fn whenever any of the watched members changes
	// state. No payload is carried; the caller is expected to take a fresh
	// snapshot. The returned function removes the watch; calling it more
	// than once is a no-op.
	OnChange(ids []MemberID, fn func()) (unsubscribe func())
}

// ControlSurface delivers one batched command to member devices. The call
// blocks until the surface acknowledges; failures are propagated to the
// caller as-is, never retried here.
type ControlSurface interface {
	SendCommand(ctx context.Context, cmd Command) error
}

// Snapshot collects the latest known states of the given members, in the
// given order. Members the source has no state for are simply omitted.
func Snapshot(src StateSource, ids []MemberID) []DeviceState {
	states := make([]DeviceState, 0, len(ids))
	for _, id := range ids {
		if st, ok := src.State(id); ok {
			states = append(states, st)
		}
	}
	return states
}

// OnIDs returns the ids of snapshots currently powered on, in input order.
// Both the reduction engine and the dispatcher derive "currently on"
// through this one rule so the two stay consistent.
func OnIDs(snapshots []DeviceState) []MemberID {
	var on []MemberID
	for _, st := range snapshots {
		if st.Power == PowerOn {
			on = append(on, st.ID)
		}
	}
	return on
}
