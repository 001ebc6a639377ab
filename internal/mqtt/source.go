package mqtt

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/virtlight/virtlightd/internal/light"
)

// stateMessage is the wire form of one member's retained state.
type stateMessage struct {
	Power      string         `json:"power"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

type watcher struct {
	ids map[light.MemberID]struct{}
	fn  func()
}

// Source implements light.StateSource over retained MQTT state topics. It
// keeps the latest decoded snapshot per member and notifies watchers whose
// id set covers a changed member.
type Source struct {
	client *Client
	prefix string
	qos    byte

	mu       sync.RWMutex
	states   map[light.MemberID]light.DeviceState
	watchers map[string]watcher

	log zerolog.Logger
}

// NewSource creates a state source reading from the given topic prefix.
func NewSource(client *Client, prefix string, qos byte, log zerolog.Logger) *Source {
	return &Source{
		client:   client,
		prefix:   prefix,
		qos:      qos,
		states:   make(map[light.MemberID]light.DeviceState),
		watchers: make(map[string]watcher),
		log:      log,
	}
}

// Start subscribes to every member state topic. Retained messages replay
// the last known state of each device immediately.
func (s *Source) Start() error {
	return s.client.Subscribe(StateTopic(s.prefix, "+"), s.qos, s.handleState)
}

// State returns the latest known snapshot for id.
func (s *Source) State(id light.MemberID) (light.DeviceState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.states[id]
	return st, ok
}

// OnChange registers fn for changes to any of the given members. The
// returned function removes the watch; extra calls are no-ops.
func (s *Source) OnChange(ids []light.MemberID, fn func()) func() {
	set := make(map[light.MemberID]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	key := uuid.NewString()
	s.mu.Lock()
	s.watchers[key] = watcher{ids: set, fn: fn}
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.watchers, key)
		s.mu.Unlock()
	}
}

func (s *Source) handleState(topic string, payload []byte) {
	member := MemberFromStateTopic(s.prefix, topic)
	if member == "" {
		s.log.Debug().Str("topic", topic).Msg("Ignoring message on unexpected topic")
		return
	}

	id := light.MemberID(member)
	state, err := decodeState(id, payload)
	if err != nil {
		s.log.Warn().Err(err).Str("member", member).Msg("Dropping undecodable state message")
		return
	}

	s.mu.Lock()
	s.states[id] = state
	var notify []func()
	for _, w := range s.watchers {
		if _, ok := w.ids[id]; ok {
			notify = append(notify, w.fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range notify {
		fn()
	}
}

// decodeState parses one state message. An unknown power value counts as
// unavailable; attributes are passed through loosely typed, the reduction
// engine skips what it cannot use.
func decodeState(id light.MemberID, payload []byte) (light.DeviceState, error) {
	var msg stateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return light.DeviceState{}, err
	}

	power := light.PowerUnavailable
	switch light.Power(msg.Power) {
	case light.PowerOn:
		power = light.PowerOn
	case light.PowerOff:
		power = light.PowerOff
	}

	return light.DeviceState{
		ID:         id,
		Power:      power,
		Attributes: msg.Attributes,
	}, nil
}
