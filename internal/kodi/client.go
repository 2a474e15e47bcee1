package kodi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
)

const (
	// defaultCallTimeout applies when a client is built with a zero timeout.
	defaultCallTimeout = 10 * time.Second

	// maxResponseSize bounds a single JSON-RPC response. Library listings
	// on large collections run to a few megabytes.
	maxResponseSize = 32 << 20

	jsonRPCVersion = "2.0"
	endpointPath   = "/jsonrpc"
)

// Caller issues one named remote procedure call.
//
// params is marshalled as the JSON-RPC params member and may be nil.
// When result is non-nil the JSON-RPC result member is decoded into it.
type Caller interface {
	Call(ctx context.Context, method string, params, result any) error
}

// request is a JSON-RPC 2.0 request envelope.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// response is a JSON-RPC 2.0 response envelope. Kodi also pushes
// notifications over WebSocket, which carry a method and no id.
type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// requestID returns the numeric id of the response, if it has one.
func (r *response) requestID() (uint64, bool) {
	if len(r.ID) == 0 {
		return 0, false
	}
	var id uint64
	if err := json.Unmarshal(r.ID, &id); err != nil {
		return 0, false
	}
	return id, true
}

// transport carries one request to the instance and returns its response.
type transport interface {
	roundTrip(ctx context.Context, req *request) (*response, error)
	close() error
}

// Client is a JSON-RPC client bound to a single Kodi instance.
//
// Every call runs under its own timeout. Failures are returned as
// *RemoteCallError and are never retried.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	instance  string
	transport transport
	timeout   time.Duration
	logger    *logging.Logger
	nextID    atomic.Uint64
}

// NewClient creates a client for the given instance using the transport
// named in its configuration.
//
// No connection is made here. The WebSocket transport dials lazily on the
// first call and redials after the connection drops.
//
// Parameters:
//   - inst: Instance settings (host, port, credentials, transport)
//   - timeout: Per-call timeout; zero selects the default of 10 seconds
//   - logger: Logger for call diagnostics
//
// Returns:
//   - *Client: Client ready for use
//   - error: If the transport name is unknown
func NewClient(inst config.KodiInstance, timeout time.Duration, logger *logging.Logger) (*Client, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.With("component", "kodi", "instance", inst.ID)

	var t transport
	switch inst.Transport {
	case config.TransportHTTP, "":
		t = newHTTPTransport(inst)
	case config.TransportWebSocket:
		t = newWSTransport(inst, logger)
	default:
		return nil, fmt.Errorf("kodi: unknown transport %q for instance %q", inst.Transport, inst.ID)
	}

	return newClient(inst.ID, t, timeout, logger), nil
}

func newClient(instance string, t transport, timeout time.Duration, logger *logging.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		instance:  instance,
		transport: t,
		timeout:   timeout,
		logger:    logger,
	}
}

// Call issues method with params and decodes the result into result.
//
// Returns:
//   - error: nil on success, otherwise a *RemoteCallError wrapping
//     ErrTimeout, ErrUnreachable, ErrInvalidResponse, ErrClosed or *RPCError
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &request{
		JSONRPC: jsonRPCVersion,
		ID:      c.nextID.Add(1),
		Method:  method,
		Params:  params,
	}

	start := time.Now()
	resp, err := c.transport.roundTrip(ctx, req)
	if err != nil {
		err = classify(ctx, err)
		c.logger.Warn("kodi call failed",
			"method", method,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return &RemoteCallError{Instance: c.instance, Method: method, Err: err}
	}

	if resp.Error != nil {
		return &RemoteCallError{Instance: c.instance, Method: method, Err: resp.Error}
	}

	if result != nil && len(resp.Result) > 0 {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return &RemoteCallError{
				Instance: c.instance,
				Method:   method,
				Err:      fmt.Errorf("%w: decoding result: %w", ErrInvalidResponse, err),
			}
		}
	}

	c.logger.Debug("kodi call completed",
		"method", method,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close releases the underlying transport. Calls made afterwards fail
// with ErrClosed.
func (c *Client) Close() error {
	return c.transport.close()
}

// classify maps a transport failure onto the package sentinels.
func classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, ErrUnreachable), errors.Is(err, ErrInvalidResponse), errors.Is(err, ErrClosed):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
}
