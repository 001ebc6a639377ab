package mqtt

import "strings"

// Topic layout under a configurable prefix:
//
//	<prefix>/state/<member-id>   retained per-device state, JSON
//	<prefix>/command             batched group command, JSON
const (
	stateSegment   = "state"
	commandSegment = "command"
)

// StateTopic returns the state topic for one member. A "+" member id
// subscribes to every member's state.
func StateTopic(prefix, member string) string {
	return prefix + "/" + stateSegment + "/" + member
}

// CommandTopic returns the batched command topic.
func CommandTopic(prefix string) string {
	return prefix + "/" + commandSegment
}

// MemberFromStateTopic extracts the member id from a state topic. Empty
// when the topic does not match the layout.
func MemberFromStateTopic(prefix, topic string) string {
	rest, ok := strings.CutPrefix(topic, prefix+"/"+stateSegment+"/")
	if !ok || rest == "" || strings.Contains(rest, "/") {
		return ""
	}
	return rest
}
