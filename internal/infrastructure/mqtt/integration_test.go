//go:build integration

package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
)

// Integration tests against a real broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

// subscribeRaw subscribes with a plain paho client, the way a downstream
// consumer would.
func subscribeRaw(t *testing.T, topic string) <-chan pahomqtt.Message {
	t.Helper()

	opts := pahomqtt.NewClientOptions().
		AddBroker("tcp://" + testBrokerAddr).
		SetClientID("kodibridge-int-consumer")
	consumer := pahomqtt.NewClient(opts)
	if token := consumer.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("consumer connect: %v", token.Error())
	}
	t.Cleanup(func() { consumer.Disconnect(100) })

	msgs := make(chan pahomqtt.Message, 10)
	token := consumer.Subscribe(topic, 1, func(_ pahomqtt.Client, m pahomqtt.Message) {
		msgs <- m
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("consumer subscribe: %v", token.Error())
	}
	return msgs
}

func TestIntegration_ActionEventRoundtrip(t *testing.T) {
	skipIfNoBroker(t)
	msgs := subscribeRaw(t, TopicPrefixEvents+"/#")

	cfg := testConfig()
	cfg.Broker.ClientID = "kodibridge-int-publisher"
	client, err := Connect(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	sent := ActionEvent{
		RequestID:  "req-42",
		Instance:   "living-room",
		Action:     "playmovie",
		Success:    false,
		Error:      "Player.Open on living-room: kodi: instance unreachable",
		DurationMS: 120,
		Timestamp:  time.Now().UTC().Truncate(time.Second),
	}
	if err := client.PublishActionEvent(sent); err != nil {
		t.Fatalf("PublishActionEvent() error = %v", err)
	}

	select {
	case m := <-msgs:
		if m.Topic() != "kodibridge/events/living-room/playmovie" {
			t.Errorf("topic = %s", m.Topic())
		}
		var got ActionEvent
		if err := json.Unmarshal(m.Payload(), &got); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if !got.Timestamp.Equal(sent.Timestamp) {
			t.Errorf("timestamp = %v, want %v", got.Timestamp, sent.Timestamp)
		}
		got.Timestamp = sent.Timestamp
		if got != sent {
			t.Errorf("event = %+v, want %+v", got, sent)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}

func TestIntegration_OnlineStatusRetained(t *testing.T) {
	skipIfNoBroker(t)

	cfg := testConfig()
	cfg.Broker.ClientID = "kodibridge-int-status"
	client, err := Connect(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	// The online status is published from the connect handler.
	time.Sleep(200 * time.Millisecond)

	msgs := subscribeRaw(t, Topics{}.SystemStatus())
	select {
	case m := <-msgs:
		if !m.Retained() {
			t.Error("status not retained")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no retained status")
	}
}

func TestIntegration_OfflineStatusOnClose(t *testing.T) {
	skipIfNoBroker(t)

	cfg := testConfig()
	cfg.Broker.ClientID = "kodibridge-int-offline"
	client, err := Connect(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	time.Sleep(200 * time.Millisecond)
	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	msgs := subscribeRaw(t, Topics{}.SystemStatus())
	select {
	case m := <-msgs:
		var status statusPayload
		if err := json.Unmarshal(m.Payload(), &status); err != nil {
			t.Fatalf("payload: %v", err)
		}
		if !m.Retained() || status.Status != "offline" || status.Reason != "graceful_shutdown" {
			t.Errorf("retained = %v, status = %+v", m.Retained(), status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no retained status")
	}
}
