package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/virtlight/virtlightd/internal/batch"
	"github.com/virtlight/virtlightd/internal/eventbus"
	"github.com/virtlight/virtlightd/internal/ledger"
	"github.com/virtlight/virtlightd/internal/light"
)

// observedSurface wraps a control surface and publishes a command event for
// every dispatch, tagged with the owning group. The wrapped call keeps the
// blocking single-round-trip contract; observation happens after the ack.
type observedSurface struct {
	group string
	inner light.ControlSurface
	bus   *eventbus.Bus
}

func (o *observedSurface) SendCommand(ctx context.Context, cmd light.Command) error {
	err := o.inner.SendCommand(ctx, cmd)

	targets := make([]string, 0, len(cmd.Targets))
	for _, id := range cmd.Targets {
		targets = append(targets, string(id))
	}
	o.bus.Publish(eventbus.Event{
		Type: eventbus.EventTypeCommand,
		Data: map[string]any{
			"group":   o.group,
			"verb":    string(cmd.Verb),
			"targets": targets,
			"ok":      err == nil,
		},
	})

	return err
}

// registerRefreshObserver forwards every recomputed state onto the bus.
func registerRefreshObserver(c *light.Composite, bus *eventbus.Bus) {
	group := c.Name()
	c.OnRefresh(func(st light.CompositeState) {
		bus.Publish(eventbus.Event{
			Type: eventbus.EventTypeRefresh,
			Data: map[string]any{
				"group": group,
				"state": st,
			},
		})
	})
}

// registerObservers subscribes the ledger and metrics consumers.
func (s *Services) registerObservers() {
	s.Bus.Subscribe(eventbus.EventTypeRefresh, func(e eventbus.Event) {
		group, _ := e.Data["group"].(string)
		st, ok := e.Data["state"].(light.CompositeState)
		if !ok {
			return
		}

		s.Metrics.ObserveState(group, st)

		payload := map[string]any{
			"is_on":      st.IsOn,
			"primary_on": st.PrimaryOn,
			"available":  st.Available,
		}
		if st.Brightness != nil {
			payload["brightness"] = *st.Brightness
		}
		if st.Effect != "" {
			payload["effect"] = st.Effect
		}
		s.Writes.Add(batch.Record{
			EventType: string(ledger.EventStateChanged),
			Group:     group,
			Payload:   payload,
		})
	})

	s.Bus.Subscribe(eventbus.EventTypeCommand, func(e eventbus.Event) {
		group, _ := e.Data["group"].(string)
		verb, _ := e.Data["verb"].(string)
		ok, _ := e.Data["ok"].(bool)

		s.Metrics.ObserveCommand(group, light.Verb(verb), ok)

		eventType := ledger.EventCommandSent
		if !ok {
			eventType = ledger.EventCommandFailed
		}
		payload := map[string]any{
			"verb":    verb,
			"targets": e.Data["targets"],
		}
		s.Writes.Add(batch.Record{
			EventType: string(eventType),
			Group:     group,
			Payload:   payload,
		})
	})
}

// flushLedger persists a batch of coalesced records.
func (s *Services) flushLedger(records []batch.Record) {
	for _, rec := range records {
		if err := s.Ledger.Append(ledger.EventType(rec.EventType), rec.Group, rec.Payload); err != nil {
			log.Error().Err(err).Str("group", rec.Group).Str("event", rec.EventType).Msg("Failed to record ledger event")
		}
	}
}
