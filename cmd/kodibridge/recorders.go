package main

import (
	"github.com/nerrad567/kodibridge/internal/api"
	"github.com/nerrad567/kodibridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
	"github.com/nerrad567/kodibridge/internal/infrastructure/mqtt"
)

// eventPublisher is the part of *mqtt.Client the recorder needs.
type eventPublisher interface {
	PublishActionEvent(ev mqtt.ActionEvent) error
}

// metricWriter is the part of *influxdb.Client the recorder needs.
type metricWriter interface {
	WriteActionMetric(m influxdb.ActionMetric)
}

// mqttRecorder publishes every dispatched action as an MQTT event.
type mqttRecorder struct {
	client eventPublisher
	log    *logging.Logger
}

// RecordAction implements api.ActionRecorder.
func (r *mqttRecorder) RecordAction(ev api.ActionEvent) {
	err := r.client.PublishActionEvent(mqtt.ActionEvent{
		RequestID:  ev.RequestID,
		Instance:   ev.Instance,
		Action:     ev.Action,
		Success:    ev.Success,
		Error:      ev.Error,
		DurationMS: ev.Duration.Milliseconds(),
		Timestamp:  ev.Timestamp,
	})
	if err != nil {
		r.log.Warn("publishing action event failed",
			"action", ev.Action,
			"instance", ev.Instance,
			"error", err,
		)
	}
}

// influxRecorder writes every dispatched action as an InfluxDB point.
type influxRecorder struct {
	client metricWriter
}

// RecordAction implements api.ActionRecorder.
func (r *influxRecorder) RecordAction(ev api.ActionEvent) {
	r.client.WriteActionMetric(influxdb.ActionMetric{
		Instance:  ev.Instance,
		Action:    ev.Action,
		Success:   ev.Success,
		Duration:  ev.Duration,
		Timestamp: ev.Timestamp,
	})
}
