package api

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
	"github.com/nerrad567/kodibridge/internal/kodi"
)

// TokenHeader is the request header carrying the shared credential.
const TokenHeader = "token"

// selectorKey names the Kodi instance in a body or query string.
const selectorKey = "kodiid"

// RoutingContext is what a validated request carries into dispatch.
type RoutingContext struct {
	Target    *kodi.Target
	Body      json.RawMessage
	RequestID string
}

// Validator authenticates inbound requests and selects the Kodi target
// they act on.
//
// Thread Safety:
//   - Safe for concurrent use. Holds only immutable state.
type Validator struct {
	token   []byte
	targets *kodi.Targets
	logger  *logging.Logger
}

// NewValidator creates a Validator for the shared credential token.
// An empty token never authenticates anything.
func NewValidator(token string, targets *kodi.Targets, logger *logging.Logger) (*Validator, error) {
	if targets == nil || targets.Len() == 0 {
		return nil, fmt.Errorf("at least one kodi target is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Validator{
		token:   []byte(token),
		targets: targets,
		logger:  logger.With("component", "validator"),
	}, nil
}

// Validate checks r and returns its routing context.
//
// A nil request or one without a URL fails with ErrMalformedRequest.
// A body over the size limit fails with ErrBodyTooLarge.
// An undefined body or a missing or wrong token fails with
// ErrAuthentication. Nothing should be dispatched after an error.
func (v *Validator) Validate(r *http.Request) (*RoutingContext, error) {
	if r == nil || r.URL == nil {
		return nil, ErrMalformedRequest
	}

	requestID, _ := r.Context().Value(ctxKeyRequestID).(string)

	body, err := readBody(r)
	if tooLarge := new(http.MaxBytesError); errors.As(err, &tooLarge) {
		v.logger.Warn("rejected request",
			"reason", "body_too_large",
			"limit", tooLarge.Limit,
			"path", r.URL.Path,
			"request_id", requestID,
		)
		return nil, fmt.Errorf("%w: %w", ErrBodyTooLarge, err)
	}
	if err != nil {
		v.logger.Warn("rejected request",
			"reason", "body",
			"error", err,
			"path", r.URL.Path,
			"request_id", requestID,
		)
		return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
	}

	got := r.Header.Get(TokenHeader)
	if !v.authenticate(got) {
		v.logger.Warn("rejected request",
			"reason", "token",
			"token_present", got != "",
			"path", r.URL.Path,
			"request_id", requestID,
		)
		return nil, fmt.Errorf("%w: invalid token", ErrAuthentication)
	}

	return &RoutingContext{
		Target:    v.selectTarget(r, body, requestID),
		Body:      body,
		RequestID: requestID,
	}, nil
}

// authenticate compares got with the credential in constant time.
func (v *Validator) authenticate(got string) bool {
	if len(v.token) == 0 || got == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), v.token) == 1
}

// selectTarget resolves kodiid from the body, then the query string.
// Unknown ids fall back to the default target.
func (v *Validator) selectTarget(r *http.Request, body json.RawMessage, requestID string) *kodi.Target {
	id := selectorFromBody(body)
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get(selectorKey))
	}
	if id == "" {
		return v.targets.Default()
	}

	if t, ok := v.targets.Lookup(id); ok {
		return t
	}

	def := v.targets.Default()
	v.logger.Warn("unknown kodi instance, using default",
		"kodiid", id,
		"default", def.ID,
		"request_id", requestID,
	)
	return def
}

// readBody returns the request body as JSON. An empty body is the empty
// object on GET and undefined otherwise. Invalid JSON and a literal null
// are undefined.
func readBody(r *http.Request) (json.RawMessage, error) {
	var raw []byte
	if r.Body != nil {
		var err error
		raw, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, fmt.Errorf("reading body: %w", err)
		}
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			return json.RawMessage("{}"), nil
		}
		return nil, fmt.Errorf("empty body")
	}

	if !json.Valid(raw) {
		return nil, fmt.Errorf("body is not valid JSON")
	}
	if bytes.Equal(raw, []byte("null")) {
		return nil, fmt.Errorf("body is null")
	}
	return json.RawMessage(raw), nil
}

// selectorFromBody returns kodiid when body is an object carrying one as
// a string or number.
func selectorFromBody(body json.RawMessage) string {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	raw, ok := fields[selectorKey]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}
