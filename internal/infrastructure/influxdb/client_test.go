package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
	"github.com/nerrad567/kodibridge/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records every line written to /api/v2/write.
type fakeInflux struct {
	*httptest.Server

	mu        sync.Mutex
	lines     []string
	query     string
	failWrite bool
	unhealthy bool
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			f.mu.Lock()
			unhealthy := f.unhealthy
			f.mu.Unlock()
			if unhealthy {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			defer f.mu.Unlock()
			f.query = r.URL.RawQuery
			if f.failWrite {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"code":"invalid","message":"bad line"}`)) //nolint:errcheck
				return
			}
			for _, line := range strings.Split(strings.TrimSpace(string(body)), "\n") {
				if line != "" {
					f.lines = append(f.lines, line)
				}
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) Lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func testConfig(url string) config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           url,
		Token:         "kodibridge-dev-token",
		Org:           "home",
		Bucket:        "kodibridge",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// =============================================================================
// Connection Tests
// =============================================================================

func TestConnect(t *testing.T) {
	srv := newFakeInflux(t)

	client, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig("http://127.0.0.1:1")
	cfg.Enabled = false

	_, err := influxdb.Connect(t.Context(), cfg)
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := influxdb.Connect(t.Context(), testConfig(url))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_Unhealthy(t *testing.T) {
	srv := newFakeInflux(t)
	srv.unhealthy = true

	_, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultBatchSettings(t *testing.T) {
	srv := newFakeInflux(t)
	cfg := testConfig(srv.URL)
	cfg.BatchSize = -5
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(t.Context(), cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect() with default batch settings")
	}
}

// =============================================================================
// Health Check Tests
// =============================================================================

func TestHealthCheck(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	if err := client.HealthCheck(t.Context()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() should return error for cancelled context")
	}
}

func TestHealthCheck_AfterClose(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	if err := client.HealthCheck(t.Context()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Write Tests
// =============================================================================

func TestWriteActionMetric(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	ts := time.Date(2026, 3, 1, 20, 15, 0, 0, time.UTC)
	client.WriteActionMetric(influxdb.ActionMetric{
		Instance:  "living-room",
		Action:    "playmovie",
		Success:   true,
		Duration:  182400 * time.Microsecond,
		Timestamp: ts,
	})
	client.Flush()

	lines := srv.Lines()
	if len(lines) != 1 {
		t.Fatalf("lines = %q, want 1", lines)
	}
	line := lines[0]
	for _, part := range []string{
		"kodi_actions,",
		"action=playmovie",
		"instance=living-room",
		"success=true",
		"count=1i",
		"duration_ms=182.4",
	} {
		if !strings.Contains(line, part) {
			t.Errorf("line %q missing %q", line, part)
		}
	}
	if !strings.HasSuffix(line, " 1772396100000000000") {
		t.Errorf("line %q has wrong timestamp", line)
	}

	srv.mu.Lock()
	query := srv.query
	srv.mu.Unlock()
	if !strings.Contains(query, "org=home") || !strings.Contains(query, "bucket=kodibridge") {
		t.Errorf("write query = %q", query)
	}
}

func TestWrite_ErrorCallback(t *testing.T) {
	srv := newFakeInflux(t)
	srv.failWrite = true

	client, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	errs := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case errs <- err:
		default:
		}
	})

	client.WriteActionMetric(influxdb.ActionMetric{Instance: "living-room", Action: "mute"})
	client.Flush()

	select {
	case err := <-errs:
		if !errors.Is(err, influxdb.ErrWriteFailed) {
			t.Errorf("callback error = %v, want ErrWriteFailed", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("error callback not invoked")
	}
}

func TestWrite_AfterCloseIsNoop(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()

	client.WriteActionMetric(influxdb.ActionMetric{Instance: "living-room", Action: "mute"})
	client.Flush()

	if lines := srv.Lines(); len(lines) != 0 {
		t.Errorf("lines after close = %q", lines)
	}
}

func TestClose_Twice(t *testing.T) {
	srv := newFakeInflux(t)
	client, err := influxdb.Connect(t.Context(), testConfig(srv.URL))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	for i := range 2 {
		if err := client.Close(); err != nil {
			t.Errorf("Close() #%d error = %v", i+1, err)
		}
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
}

func TestClose_Nil(t *testing.T) {
	client := &influxdb.Client{}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on zero client error = %v", err)
	}
}
