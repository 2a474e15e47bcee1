package mqtt

import (
	"encoding/json"
	"fmt"
	"time"
)

// ActionEvent is the payload published for every dispatched action.
type ActionEvent struct {
	RequestID  string    `json:"request_id"`
	Instance   string    `json:"instance"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	Error      string    `json:"error,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// PublishActionEvent publishes ev on its action topic without waiting for
// the broker. Events are not retained.
func (c *Client) PublishActionEvent(ev ActionEvent) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: encoding event: %w", ErrPublishFailed, err)
	}
	return c.PublishAsync(Topics{}.ActionEvent(ev.Instance, ev.Action), payload, byte(c.cfg.QoS), false)
}
