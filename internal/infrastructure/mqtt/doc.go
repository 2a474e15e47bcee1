// Package mqtt publishes the bridge's action events to an MQTT broker.
//
// This package manages:
//   - Connection to the broker with auto-reconnect
//   - Publishing with QoS guarantees, blocking or fire-and-forget
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// The bridge never subscribes; home-automation systems subscribe to its
// events instead:
//
//	kodibridge ─▶ broker ─▶ Home Assistant, Node-RED, ...
//
// # Topics
//
//	kodibridge/events/<instance>/<action>   one message per dispatched action
//	kodibridge/system/status                retained online/offline status
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT, logger)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.PublishActionEvent(mqtt.ActionEvent{
//	    Instance: "living-room",
//	    Action:   "playmovie",
//	    Success:  true,
//	})
package mqtt
