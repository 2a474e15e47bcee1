package kodi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nerrad567/kodibridge/internal/infrastructure/config"
)

// httpIdleConnTimeout keeps pooled connections to a Kodi host alive
// between webhook bursts.
const httpIdleConnTimeout = 90 * time.Second

// httpTransport posts each request to http://host:port/jsonrpc.
type httpTransport struct {
	endpoint string
	username string
	password string
	client   *http.Client
}

func newHTTPTransport(inst config.KodiInstance) *httpTransport {
	return &httpTransport{
		endpoint: "http://" + inst.Address() + endpointPath,
		username: inst.Username,
		password: inst.Password,
		client: &http.Client{
			// Deadlines come from the per-call context.
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     httpIdleConnTimeout,
			},
		},
	}
}

func (t *httpTransport) roundTrip(ctx context.Context, req *request) (*response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if t.username != "" {
		httpReq.SetBasicAuth(t.username, t.password)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		//nolint:errcheck // draining so the connection can be reused
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return nil, fmt.Errorf("%w: http status %d", ErrUnreachable, resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	return &out, nil
}

func (t *httpTransport) close() error {
	t.client.CloseIdleConnections()
	return nil
}
