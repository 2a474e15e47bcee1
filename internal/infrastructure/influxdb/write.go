package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementActions is the measurement every dispatched action is
// written to.
const MeasurementActions = "kodi_actions"

// ActionMetric is one dispatched action.
type ActionMetric struct {
	Instance  string
	Action    string
	Success   bool
	Duration  time.Duration
	Timestamp time.Time
}

// WriteActionMetric records one dispatched action.
//
// The write is non-blocking; points are batched and sent asynchronously.
//
// Tags: instance, action, success. Fields: duration_ms, count.
//
// Example:
//
//	client.WriteActionMetric(influxdb.ActionMetric{
//	    Instance: "living-room",
//	    Action:   "playmovie",
//	    Success:  true,
//	    Duration: 180 * time.Millisecond,
//	})
func (c *Client) WriteActionMetric(m ActionMetric) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(actionPoint(m))
}

// actionPoint builds the point for m. A zero Timestamp means now.
func actionPoint(m ActionMetric) *write.Point {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return write.NewPoint(
		MeasurementActions,
		map[string]string{
			"instance": m.Instance,
			"action":   m.Action,
			"success":  strconv.FormatBool(m.Success),
		},
		map[string]interface{}{
			"duration_ms": float64(m.Duration.Microseconds()) / 1000,
			"count":       1,
		},
		ts,
	)
}
