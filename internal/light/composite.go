package light

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Composite is the virtual light built over a fixed membership. It caches
// the last reduced CompositeState and exposes the on/off/toggle command
// surface. The cache is replaced by whole-value pointer swap, so readers
// never observe a partially updated state; the update policy is last
// recompute wins.
type Composite struct {
	name       string
	members    Membership
	engine     *Engine
	dispatcher *Dispatcher
	source     StateSource

	state atomic.Pointer[CompositeState]

	mu    sync.Mutex
	unsub func()
	hooks []func(CompositeState)

	log zerolog.Logger
}

// NewComposite creates a composite light over the given members and
// collaborators. The member lists come validated from configuration and
// are fixed for the composite's lifetime.
func NewComposite(name string, primary, secondary []MemberID, source StateSource, surface ControlSurface, logger zerolog.Logger) *Composite {
	log := logger.With().Str("group", name).Logger()
	members := NewMembership(primary, secondary)

	c := &Composite{
		name:       name,
		members:    members,
		engine:     NewEngine(members, log),
		dispatcher: NewDispatcher(members, source, surface, log),
		source:     source,
		log:        log,
	}
	initial := NewCompositeState()
	c.state.Store(&initial)
	return c
}

// Name returns the composite's configured name.
func (c *Composite) Name() string {
	return c.name
}

// Members returns the composite's membership.
func (c *Composite) Members() Membership {
	return c.members
}

// State returns the last reduced composite state.
func (c *Composite) State() CompositeState {
	return *c.state.Load()
}

// OnRefresh registers a hook invoked with the new state after every
// refresh. Register hooks before Attach.
func (c *Composite) OnRefresh(fn func(CompositeState)) {
	c.mu.Lock()
	c.hooks = append(c.hooks, fn)
	c.mu.Unlock()
}

// Attach subscribes to member state changes and performs the initial
// refresh. Every change notification funnels into one Refresh; no payload
// is carried, the snapshot is always taken fresh.
func (c *Composite) Attach() {
	c.mu.Lock()
	if c.unsub == nil {
		c.unsub = c.source.OnChange(c.members.All(), func() {
			c.Refresh()
		})
	}
	c.mu.Unlock()

	c.Refresh()
	c.log.Info().
		Int("primary", len(c.members.Primary())).
		Int("secondary", len(c.members.Secondary())).
		Msg("Composite attached")
}

// Detach removes the member state subscription. Calling it again, or
// before Attach, is a no-op.
func (c *Composite) Detach() {
	c.mu.Lock()
	unsub := c.unsub
	c.unsub = nil
	c.mu.Unlock()

	if unsub != nil {
		unsub()
		c.log.Info().Msg("Composite detached")
	}
}

// Refresh takes a fresh snapshot of every member, recomputes the composite
// state, swaps the cache and notifies refresh hooks.
func (c *Composite) Refresh() CompositeState {
	snapshots := Snapshot(c.source, c.members.All())
	state := c.engine.Recompute(snapshots)
	c.state.Store(&state)

	c.log.Debug().
		Bool("is_on", state.IsOn).
		Bool("primary_on", state.PrimaryOn).
		Bool("available", state.Available).
		Int("present", len(snapshots)).
		Msg("Composite state recomputed")

	c.mu.Lock()
	hooks := append([]func(CompositeState){}, c.hooks...)
	c.mu.Unlock()
	for _, fn := range hooks {
		fn(state)
	}
	return state
}

// TurnOn dispatches a composite turn-on with the given attribute payload.
func (c *Composite) TurnOn(ctx context.Context, attrs Attributes) error {
	return c.dispatcher.TurnOn(ctx, c.State(), attrs)
}

// TurnOff dispatches a composite turn-off with the given attribute payload.
func (c *Composite) TurnOff(ctx context.Context, attrs Attributes) error {
	return c.dispatcher.TurnOff(ctx, c.State(), attrs)
}

// Toggle dispatches a toggle, deciding by the primary-set state of the
// last recompute.
func (c *Composite) Toggle(ctx context.Context, attrs Attributes) error {
	return c.dispatcher.Toggle(ctx, c.State(), attrs)
}
