// Package influxdb writes the bridge's action telemetry to InfluxDB v2.
//
// It wraps the official influxdb-client-go v2 library with connection
// management, batched writes and health monitoring.
//
// # Data
//
// One point per dispatched action in measurement kodi_actions:
//
//	kodi_actions,instance=living-room,action=playmovie,success=true duration_ms=182.4,count=1i
//
// # Usage
//
//	client, err := influxdb.Connect(ctx, cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteActionMetric(influxdb.ActionMetric{Instance: "living-room", Action: "mute", Success: true})
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking; batch errors are delivered to the
// SetOnError callback wrapped in ErrWriteFailed. Connection and health
// check errors are returned directly.
package influxdb
