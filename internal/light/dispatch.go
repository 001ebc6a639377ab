package light

import (
	"context"

	"github.com/rs/zerolog"
)

// Attribute keys a turn-on payload may carry. Anything else in the request
// is dropped before dispatch.
var turnOnAttrs = []string{
	AttrBrightness,
	AttrHSColor,
	AttrColorTemp,
	AttrWhiteValue,
	AttrEffect,
	AttrTransition,
	AttrFlash,
}

// Turn-off only honors a transition.
var turnOffAttrs = []string{AttrTransition}

// Dispatcher translates composite commands into one batched device command.
// Targeting is asymmetric: turn-on acts on the primary members (or, for an
// attribute tweak while already on, on whichever members are currently
// lit), while turn-off always acts on every member.
type Dispatcher struct {
	members Membership
	source  StateSource
	surface ControlSurface
	log     zerolog.Logger
}

// NewDispatcher creates a dispatcher over the given membership and
// collaborators. The logger is the dispatcher's only diagnostic sink.
func NewDispatcher(members Membership, source StateSource, surface ControlSurface, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{members: members, source: source, surface: surface, log: log}
}

// TurnOn forwards a turn-on command. When the composite is off, or the
// payload carries no attributes, the primary members are targeted. When the
// composite is already on and attributes are supplied, only the members
// currently lit are targeted, so an attribute tweak never illuminates
// unlit secondary members. The currently-on set is re-derived from the
// latest known states, not cached.
func (d *Dispatcher) TurnOn(ctx context.Context, current CompositeState, attrs Attributes) error {
	payload := filterAttrs(attrs, turnOnAttrs)

	var targets []MemberID
	if !current.IsOn || len(payload) == 0 {
		targets = d.members.Primary()
	} else {
		targets = OnIDs(Snapshot(d.source, d.members.All()))
	}

	return d.send(ctx, VerbTurnOn, targets, payload)
}

// TurnOff forwards a turn-off command to every member, secondaries
// included, regardless of their individual state.
func (d *Dispatcher) TurnOff(ctx context.Context, current CompositeState, attrs Attributes) error {
	payload := filterAttrs(attrs, turnOffAttrs)
	return d.send(ctx, VerbTurnOff, d.members.All(), payload)
}

// Toggle turns the composite off when any primary member is on, otherwise
// on, forwarding the same payload either way. The decision is based on the
// primary set only: a composite with only secondaries lit still toggles on.
func (d *Dispatcher) Toggle(ctx context.Context, current CompositeState, attrs Attributes) error {
	if current.PrimaryOn {
		return d.TurnOff(ctx, current, attrs)
	}
	return d.TurnOn(ctx, current, attrs)
}

// send issues the single batched command for this dispatch operation.
// Failures of the control surface are propagated unretried.
func (d *Dispatcher) send(ctx context.Context, verb Verb, targets []MemberID, payload Attributes) error {
	d.log.Debug().
		Str("verb", string(verb)).
		Int("targets", len(targets)).
		Int("attrs", len(payload)).
		Msg("Dispatching batched command")

	return d.surface.SendCommand(ctx, Command{
		Verb:       verb,
		Targets:    targets,
		Attributes: payload,
	})
}

// filterAttrs copies the allowed keys out of a request payload.
func filterAttrs(attrs Attributes, allowed []string) Attributes {
	out := make(Attributes)
	for _, key := range allowed {
		if v, ok := attrs[key]; ok {
			out[key] = v
		}
	}
	return out
}
