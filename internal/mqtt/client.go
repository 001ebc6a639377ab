// Package mqtt implements the device-facing collaborators of the composite
// light over an MQTT broker: a StateSource fed by retained per-device state
// topics and a ControlSurface publishing batched commands.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog/log"
)

var (
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrNotConnected     = errors.New("mqtt: not connected")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
	ErrSubscribeFailed  = errors.New("mqtt: subscribe failed")
)

// Options configures the broker connection.
type Options struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
	CommandTimeout time.Duration
}

// MessageHandler is invoked for each received message. Handlers run on
// paho's goroutines and should not block for long.
type MessageHandler func(topic string, payload []byte)

type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// Client wraps paho.mqtt.golang with connection management. Subscriptions
// are tracked and restored after a reconnect. Safe for concurrent use.
type Client struct {
	opts   Options
	client pahomqtt.Client

	mu   sync.RWMutex
	subs map[string]subscription
}

// NewClient creates a client for the given broker. Connect must be called
// before subscribing or publishing.
func NewClient(opts Options) *Client {
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	if opts.CommandTimeout == 0 {
		opts.CommandTimeout = 10 * time.Second
	}
	return &Client{
		opts: opts,
		subs: make(map[string]subscription),
	}
}

// Connect establishes the broker connection with auto-reconnect enabled.
func (c *Client) Connect(ctx context.Context) error {
	pahoOpts := pahomqtt.NewClientOptions().
		AddBroker(c.opts.Broker).
		SetClientID(c.opts.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(c.opts.ConnectTimeout)

	if c.opts.Username != "" {
		pahoOpts.SetUsername(c.opts.Username)
		pahoOpts.SetPassword(c.opts.Password)
	}

	pahoOpts.SetOnConnectHandler(func(pahomqtt.Client) {
		c.restoreSubscriptions()
	})
	pahoOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		log.Warn().Err(err).Msg("MQTT connection lost, reconnecting")
	})

	c.client = pahomqtt.NewClient(pahoOpts)

	token := c.client.Connect()
	if err := c.wait(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	log.Info().Str("broker", c.opts.Broker).Str("client_id", c.opts.ClientID).Msg("Connected to MQTT broker")
	return nil
}

// Subscribe registers a handler for the topic. The topic may contain MQTT
// wildcards. The subscription survives reconnects.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if c.client == nil || !c.client.IsConnected() {
		return ErrNotConnected
	}

	c.mu.Lock()
	c.subs[topic] = subscription{topic: topic, qos: qos, handler: handler}
	c.mu.Unlock()

	token := c.client.Subscribe(topic, qos, wrapHandler(handler))
	if !token.WaitTimeout(c.opts.CommandTimeout) {
		return fmt.Errorf("%w: timeout on %s", ErrSubscribeFailed, topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %v", ErrSubscribeFailed, err)
	}
	return nil
}

// Publish sends a message and blocks until the broker acknowledges it or
// the context is done.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, qos byte, retained bool) error {
	if c.client == nil || !c.client.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if err := c.wait(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrPublishFailed, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *Client) Close() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}

// wait blocks on a paho token, honoring context cancellation.
func (c *Client) wait(ctx context.Context, token pahomqtt.Token) error {
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// restoreSubscriptions re-subscribes every tracked topic after a reconnect.
func (c *Client) restoreSubscriptions() {
	c.mu.RLock()
	subs := make([]subscription, 0, len(c.subs))
	for _, s := range c.subs {
		subs = append(subs, s)
	}
	c.mu.RUnlock()

	for _, s := range subs {
		token := c.client.Subscribe(s.topic, s.qos, wrapHandler(s.handler))
		if token.WaitTimeout(c.opts.CommandTimeout) && token.Error() == nil {
			continue
		}
		log.Error().Err(token.Error()).Str("topic", s.topic).Msg("Failed to restore MQTT subscription")
	}
}

// wrapHandler adapts a MessageHandler to paho's signature with panic
// recovery, so one bad payload cannot kill the receive loop.
func wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Interface("panic", r).Str("topic", msg.Topic()).Msg("MQTT handler panicked")
			}
		}()
		handler(msg.Topic(), msg.Payload())
	}
}
