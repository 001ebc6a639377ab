package mqtt

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/virtlight/virtlightd/internal/light"
)

func TestMemberFromStateTopic(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{name: "plain", topic: "virtlight/state/hall-1", want: "hall-1"},
		{name: "wrong_prefix", topic: "other/state/hall-1", want: ""},
		{name: "command_topic", topic: "virtlight/command", want: ""},
		{name: "nested_id", topic: "virtlight/state/a/b", want: ""},
		{name: "empty_id", topic: "virtlight/state/", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MemberFromStateTopic("virtlight", tt.topic); got != tt.want {
				t.Errorf("MemberFromStateTopic(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}

func TestStateTopicRoundTrip(t *testing.T) {
	topic := StateTopic("virtlight", "kitchen-2")
	if got := MemberFromStateTopic("virtlight", topic); got != "kitchen-2" {
		t.Errorf("Round trip = %q, want kitchen-2", got)
	}
}

func TestDecodeState(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantPower string
		wantErr   bool
	}{
		{
			name:      "on_with_attributes",
			payload:   `{"power":"on","attributes":{"brightness":128}}`,
			wantPower: "on",
		},
		{
			name:      "off_without_attributes",
			payload:   `{"power":"off"}`,
			wantPower: "off",
		},
		{
			name:      "unknown_power_is_unavailable",
			payload:   `{"power":"standby"}`,
			wantPower: "unavailable",
		},
		{
			name:      "missing_power_is_unavailable",
			payload:   `{}`,
			wantPower: "unavailable",
		},
		{
			name:    "garbage",
			payload: `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, err := decodeState("x", []byte(tt.payload))
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected decode error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeState failed: %v", err)
			}
			if string(st.Power) != tt.wantPower {
				t.Errorf("Power = %q, want %q", st.Power, tt.wantPower)
			}
			if st.ID != "x" {
				t.Errorf("ID = %q, want x", st.ID)
			}
		})
	}
}

func newTestSource() *Source {
	return NewSource(nil, "virtlight", 0, zerolog.Nop())
}

func TestSource_NotifiesMatchingWatchersOnly(t *testing.T) {
	s := newTestSource()

	var aCalls, bCalls int
	s.OnChange([]light.MemberID{"a"}, func() { aCalls++ })
	s.OnChange([]light.MemberID{"b"}, func() { bCalls++ })

	s.handleState("virtlight/state/a", []byte(`{"power":"on"}`))

	if aCalls != 1 {
		t.Errorf("a watcher calls = %d, want 1", aCalls)
	}
	if bCalls != 0 {
		t.Errorf("b watcher calls = %d, want 0", bCalls)
	}

	st, ok := s.State("a")
	if !ok || st.Power != light.PowerOn {
		t.Errorf("State(a) = %+v, %v", st, ok)
	}
	if _, ok := s.State("b"); ok {
		t.Error("State(b) should have no snapshot")
	}
}

func TestSource_UnsubscribeStopsNotifications(t *testing.T) {
	s := newTestSource()

	var calls int
	unsub := s.OnChange([]light.MemberID{"a"}, func() { calls++ })

	s.handleState("virtlight/state/a", []byte(`{"power":"on"}`))
	unsub()
	unsub() // extra calls are no-ops
	s.handleState("virtlight/state/a", []byte(`{"power":"off"}`))

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSource_IgnoresUnexpectedTopics(t *testing.T) {
	s := newTestSource()

	var calls int
	s.OnChange([]light.MemberID{"a"}, func() { calls++ })

	s.handleState("virtlight/command", []byte(`{"power":"on"}`))
	s.handleState("virtlight/state/a", []byte(`not json`))

	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
	if _, ok := s.State("a"); ok {
		t.Error("undecodable message should not store a snapshot")
	}
}

func TestDecodeState_AttributesPassThrough(t *testing.T) {
	st, err := decodeState("x", []byte(`{"power":"on","attributes":{"brightness":128,"hs_color":[10,20]}}`))
	if err != nil {
		t.Fatalf("decodeState failed: %v", err)
	}
	if st.Attributes["brightness"] != float64(128) {
		t.Errorf("brightness = %v, want 128", st.Attributes["brightness"])
	}
	if _, ok := st.Attributes["hs_color"]; !ok {
		t.Error("hs_color missing from attributes")
	}
}
