package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the bridge's MQTT hierarchy.
const (
	// TopicPrefix is the root of every bridge topic.
	TopicPrefix = "kodibridge"

	// TopicPrefixEvents is the base for action events.
	TopicPrefixEvents = "kodibridge/events"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "kodibridge/system"
)

// Topics provides builders for the bridge's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topic := mqtt.Topics{}.ActionEvent("living-room", "playmovie")
//	// Returns: "kodibridge/events/living-room/playmovie"
type Topics struct{}

// ActionEvent returns the topic for one dispatched action.
//
// Example: kodibridge/events/living-room/playmovie
func (Topics) ActionEvent(instance, action string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixEvents, topicSegment(instance), topicSegment(action))
}

// SystemStatus returns the topic for the bridge's online/offline status.
//
// Example: kodibridge/system/status
func (Topics) SystemStatus() string {
	return TopicPrefixSystem + "/status"
}

// topicSegment makes s safe to use as a single topic level.
// Separators and wildcards become underscores; empty becomes "unknown".
func topicSegment(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "unknown"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '+', '#', 0:
			return '_'
		}
		return r
	}, s)
}
