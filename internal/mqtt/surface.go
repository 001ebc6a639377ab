package mqtt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/virtlight/virtlightd/internal/light"
)

// commandMessage is the wire form of one batched command.
type commandMessage struct {
	Verb       string         `json:"verb"`
	Targets    []string       `json:"targets"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// Surface implements light.ControlSurface. Each command becomes exactly one
// publish on the command topic; the call blocks until the broker
// acknowledges, giving the dispatcher its single round trip.
type Surface struct {
	client *Client
	prefix string
	qos    byte
	log    zerolog.Logger
}

// NewSurface creates a control surface publishing to the given prefix.
func NewSurface(client *Client, prefix string, qos byte, log zerolog.Logger) *Surface {
	return &Surface{client: client, prefix: prefix, qos: qos, log: log}
}

// SendCommand publishes the batched command. Broker failures are returned
// to the caller unretried.
func (s *Surface) SendCommand(ctx context.Context, cmd light.Command) error {
	msg := commandMessage{
		Verb:    string(cmd.Verb),
		Targets: make([]string, 0, len(cmd.Targets)),
	}
	for _, id := range cmd.Targets {
		msg.Targets = append(msg.Targets, string(id))
	}
	if len(cmd.Attributes) > 0 {
		msg.Attributes = cmd.Attributes
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode command: %w", err)
	}

	s.log.Debug().
		Str("verb", msg.Verb).
		Strs("targets", msg.Targets).
		Msg("Publishing batched command")

	return s.client.Publish(ctx, CommandTopic(s.prefix), payload, s.qos, false)
}
