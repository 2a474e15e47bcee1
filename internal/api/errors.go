package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/kodibridge/internal/action"
	"github.com/nerrad567/kodibridge/internal/kodi"
)

var (
	// ErrMalformedRequest is returned by the Validator when the request
	// itself is unusable (no request, no URL).
	ErrMalformedRequest = errors.New("malformed request")

	// ErrAuthentication is returned by the Validator when the body is
	// undefined or the token header is missing or wrong.
	ErrAuthentication = errors.New("authentication failed")

	// ErrBodyTooLarge is returned by the Validator when the body exceeds
	// the request size limit.
	ErrBodyTooLarge = errors.New("request body too large")
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorised"
	ErrCodeForbidden      = "forbidden"
	ErrCodeTooLarge       = "payload_too_large"
	ErrCodeTooManyRequest = "too_many_requests"
	ErrCodeInternal       = "internal_error"
	ErrCodeBadGateway     = "bad_gateway"
	ErrCodeGatewayTimeout = "gateway_timeout"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeValidationError answers a failed validation with a bare status code.
func writeValidationError(w http.ResponseWriter, err error) {
	status, _ := statusFor(err)
	w.WriteHeader(status)
}

// writeDispatchError writes the error envelope for a failed dispatch.
func writeDispatchError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeError(w, status, code, err.Error())
}

// statusFor maps an error from validation or dispatch to its HTTP status
// and error code.
func statusFor(err error) (int, string) {
	var rce *kodi.RemoteCallError
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return http.StatusForbidden, ErrCodeForbidden
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, ErrCodeTooLarge
	case errors.Is(err, ErrAuthentication):
		return http.StatusUnauthorized, ErrCodeUnauthorized
	case errors.Is(err, action.ErrInvalidParams):
		return http.StatusBadRequest, ErrCodeBadRequest
	case kodi.IsTimeout(err):
		return http.StatusGatewayTimeout, ErrCodeGatewayTimeout
	case errors.As(err, &rce):
		return http.StatusBadGateway, ErrCodeBadGateway
	default:
		return http.StatusInternalServerError, ErrCodeInternal
	}
}
