package kodi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
)

// wsHandshakeTimeout bounds the opening handshake when the call context
// carries no earlier deadline.
const wsHandshakeTimeout = 5 * time.Second

// wsTransport multiplexes calls over one persistent connection to
// ws://host:port/jsonrpc.
//
// A single reader goroutine owns the read side and hands each response to
// the caller waiting on its id. Writes are serialised by writeMu. When the
// connection drops every pending call fails with ErrUnreachable and the next
// call dials again.
type wsTransport struct {
	url    string
	header http.Header
	dialer *websocket.Dialer
	logger *logging.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[uint64]chan *response
	closed  bool

	writeMu sync.Mutex
}

func newWSTransport(inst config.KodiInstance, logger *logging.Logger) *wsTransport {
	header := http.Header{}
	if inst.Username != "" {
		req := &http.Request{Header: header}
		req.SetBasicAuth(inst.Username, inst.Password)
	}

	return &wsTransport{
		url:    "ws://" + inst.Address() + endpointPath,
		header: header,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: wsHandshakeTimeout,
		},
		logger:  logger,
		pending: make(map[uint64]chan *response),
	}
}

func (t *wsTransport) roundTrip(ctx context.Context, req *request) (*response, error) {
	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	ch := make(chan *response, 1)
	t.mu.Lock()
	t.pending[req.ID] = ch
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, req.ID)
		t.mu.Unlock()
	}()

	t.writeMu.Lock()
	if deadline, ok := ctx.Deadline(); ok {
		//nolint:errcheck // a failed deadline surfaces on the write below
		conn.SetWriteDeadline(deadline)
	}
	err = conn.WriteMessage(websocket.TextMessage, data)
	t.writeMu.Unlock()
	if err != nil {
		t.drop(conn, err)
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%w: connection lost", ErrUnreachable)
		}
		return resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// connect returns the live connection, dialing one if needed.
func (t *wsTransport) connect(ctx context.Context) (*websocket.Conn, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil, ErrClosed
	}
	if t.conn != nil {
		return t.conn, nil
	}

	conn, resp, err := t.dialer.DialContext(ctx, t.url, t.header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	conn.SetReadLimit(maxResponseSize)

	t.conn = conn
	go t.readLoop(conn)

	t.logger.Info("kodi websocket connected", "url", t.url)
	return conn, nil
}

// readLoop delivers responses to waiting callers until conn fails.
func (t *wsTransport) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.drop(conn, err)
			return
		}

		var resp response
		if err := json.Unmarshal(data, &resp); err != nil {
			t.logger.Debug("ignoring undecodable websocket frame", "error", err)
			continue
		}

		id, ok := resp.requestID()
		if !ok {
			// Notification such as Player.OnPlay.
			continue
		}

		t.mu.Lock()
		ch, found := t.pending[id]
		if found {
			delete(t.pending, id)
		}
		t.mu.Unlock()

		if found {
			ch <- &resp
		}
	}
}

// drop discards conn and fails every call still waiting on it.
// It is a no-op when conn has already been replaced.
func (t *wsTransport) drop(conn *websocket.Conn, cause error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != conn {
		return
	}
	t.conn = nil
	conn.Close()

	for id, ch := range t.pending {
		close(ch)
		delete(t.pending, id)
	}

	if !t.closed {
		t.logger.Warn("kodi websocket disconnected", "url", t.url, "error", cause)
	}
}

func (t *wsTransport) close() error {
	t.mu.Lock()
	t.closed = true
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	t.writeMu.Lock()
	//nolint:errcheck // best-effort close frame
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	t.writeMu.Unlock()

	t.drop(conn, ErrClosed)
	return nil
}
