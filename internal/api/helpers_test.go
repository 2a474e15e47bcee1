package api

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
	"github.com/nerrad567/kodibridge/internal/kodi"
	"github.com/nerrad567/kodibridge/internal/kodi/kodifake"
)

const testToken = "s3cret-Token"

// eventLog is an ActionRecorder that keeps every event.
type eventLog struct {
	mu     sync.Mutex
	events []ActionEvent
}

func (l *eventLog) RecordAction(ev ActionEvent) {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
}

func (l *eventLog) Events() []ActionEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ActionEvent, len(l.events))
	copy(out, l.events)
	return out
}

// testEnv is a server wired to two fake Kodi instances.
type testEnv struct {
	server  *Server
	handler http.Handler
	living  *kodifake.Caller
	bedroom *kodifake.Caller
	events  *eventLog
}

func newTestEnv(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()

	env := &testEnv{
		living:  kodifake.New(),
		bedroom: kodifake.New(),
		events:  &eventLog{},
	}
	targets, err := kodi.NewTargets(
		kodi.NewTarget("living-room", "10.0.0.20:8080", env.living),
		kodi.NewTarget("bedroom", "10.0.0.21:8080", env.bedroom),
	)
	if err != nil {
		t.Fatalf("NewTargets() error = %v", err)
	}

	deps := Deps{
		Listener:  config.ListenerConfig{Host: "127.0.0.1", Port: 0},
		Token:     testToken,
		Targets:   targets,
		Recorders: []ActionRecorder{env.events},
		Logger:    logging.Discard(),
		Version:   "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	env.server = srv
	env.handler = srv.Handler()
	return env
}

// do sends a request through the full router. An empty token omits the
// header.
func (e *testEnv) do(method, target, token, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if token != "" {
		req.Header.Set(TokenHeader, token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}
