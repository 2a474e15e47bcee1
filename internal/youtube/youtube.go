// Package youtube resolves free-text queries to YouTube video ids using the
// YouTube Data API v3 search endpoint.
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the YouTube Data API v3 root.
const DefaultBaseURL = "https://www.googleapis.com/youtube/v3"

const (
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

var (
	// ErrNoAPIKey is returned by Search when no API key is configured.
	ErrNoAPIKey = errors.New("youtube: no api key configured")

	// ErrNoResults is returned when a search finds no videos.
	ErrNoResults = errors.New("youtube: no results")

	// ErrSearchFailed is returned when the API answers with an error.
	ErrSearchFailed = errors.New("youtube: search failed")
)

// Video is one search hit.
type Video struct {
	ID    string
	Title string
}

// Client searches YouTube.
//
// Thread Safety:
//   - Safe for concurrent use.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURL points the client at another API root. Tests use it.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client. An empty apiKey yields a client whose Enabled
// method reports false.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether searches can be made.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

type searchResponse struct {
	Items []struct {
		ID struct {
			VideoID string `json:"videoId"`
		} `json:"id"`
		Snippet struct {
			Title string `json:"title"`
		} `json:"snippet"`
	} `json:"items"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Search returns the top video result for query.
func (c *Client) Search(ctx context.Context, query string) (Video, error) {
	if !c.Enabled() {
		return Video{}, ErrNoAPIKey
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("maxResults", "1")
	params.Set("q", query)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return Video{}, fmt.Errorf("building search request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Video{}, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	defer resp.Body.Close()

	var out searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&out); err != nil {
		return Video{}, fmt.Errorf("%w: decoding response (status %d): %w", ErrSearchFailed, resp.StatusCode, err)
	}
	if out.Error != nil {
		return Video{}, fmt.Errorf("%w: %d %s", ErrSearchFailed, out.Error.Code, out.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Video{}, fmt.Errorf("%w: http status %d", ErrSearchFailed, resp.StatusCode)
	}

	for _, item := range out.Items {
		if item.ID.VideoID != "" {
			return Video{ID: item.ID.VideoID, Title: item.Snippet.Title}, nil
		}
	}
	return Video{}, fmt.Errorf("%w: %q", ErrNoResults, query)
}
