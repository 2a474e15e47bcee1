package kodi

import (
	"reflect"
	"testing"

	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
	"github.com/nerrad567/kodibridge/internal/kodi/kodifake"
)

func TestNewTargets(t *testing.T) {
	living := NewTarget("living-room", "10.0.0.2:8080", kodifake.New())
	bedroom := NewTarget("bedroom", "10.0.0.3:8080", kodifake.New())

	reg, err := NewTargets(living, bedroom)
	if err != nil {
		t.Fatalf("NewTargets() error = %v", err)
	}

	if reg.Default() != living {
		t.Errorf("Default() = %s, want living-room", reg.Default().ID)
	}
	if got, ok := reg.Lookup("bedroom"); !ok || got != bedroom {
		t.Errorf("Lookup(bedroom) = %v, %v", got, ok)
	}
	if _, ok := reg.Lookup("garage"); ok {
		t.Error("Lookup(garage) ok = true, want false")
	}
	if got := reg.IDs(); !reflect.DeepEqual(got, []string{"living-room", "bedroom"}) {
		t.Errorf("IDs() = %v", got)
	}
	if reg.Len() != 2 {
		t.Errorf("Len() = %d, want 2", reg.Len())
	}
	if reg.Default().Instance() != "living-room" {
		t.Errorf("Default().Instance() = %q", reg.Default().Instance())
	}
}

func TestNewTargets_Errors(t *testing.T) {
	if _, err := NewTargets(); err == nil {
		t.Error("NewTargets() with no targets expected error")
	}

	a := NewTarget("same", "", kodifake.New())
	b := NewTarget("same", "", kodifake.New())
	if _, err := NewTargets(a, b); err == nil {
		t.Error("NewTargets() with duplicate ids expected error")
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.KodiConfig{
		CallTimeout: 3,
		Instances: []config.KodiInstance{
			{ID: "default", Host: "127.0.0.1", Port: 8080, Transport: config.TransportHTTP},
			{ID: "bedroom", Host: "127.0.0.1", Port: 9090, Transport: config.TransportWebSocket},
		},
	}

	reg, err := FromConfig(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	defer reg.Close()

	if reg.Default().Address != "127.0.0.1:8080" {
		t.Errorf("Default().Address = %q", reg.Default().Address)
	}
	bedroom, ok := reg.Lookup("bedroom")
	if !ok {
		t.Fatal("Lookup(bedroom) not found")
	}
	client, ok := bedroom.caller.(*Client)
	if !ok {
		t.Fatalf("bedroom caller = %T, want *Client", bedroom.caller)
	}
	if _, ok := client.transport.(*wsTransport); !ok {
		t.Errorf("bedroom transport = %T, want *wsTransport", client.transport)
	}
	if client.timeout.Seconds() != 3 {
		t.Errorf("timeout = %v, want 3s", client.timeout)
	}
}

func TestFromConfig_BadTransport(t *testing.T) {
	cfg := config.KodiConfig{
		Instances: []config.KodiInstance{
			{ID: "default", Host: "127.0.0.1", Port: 8080},
			{ID: "bad", Host: "127.0.0.1", Port: 8080, Transport: "udp"},
		},
	}
	if _, err := FromConfig(cfg, logging.Discard()); err == nil {
		t.Error("FromConfig() expected error for unknown transport")
	}
}
