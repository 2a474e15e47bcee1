package kodi

import (
	"errors"
	"fmt"
)

// Domain errors for Kodi remote calls.
// Use errors.Is() on a *RemoteCallError to tell them apart.
var (
	// ErrTimeout is returned when a call does not complete within the
	// configured per-call timeout.
	ErrTimeout = errors.New("kodi: call timed out")

	// ErrUnreachable is returned when the transport cannot reach the
	// instance (connection refused, DNS failure, HTTP status other than 200).
	ErrUnreachable = errors.New("kodi: instance unreachable")

	// ErrNotFound is returned when a library lookup (movie, show, episode,
	// channel) finds nothing matching the request.
	ErrNotFound = errors.New("kodi: item not found")

	// ErrClosed is returned by calls issued after the client was closed.
	ErrClosed = errors.New("kodi: client closed")

	// ErrInvalidResponse is returned when the instance answers with
	// something that is not a JSON-RPC 2.0 response.
	ErrInvalidResponse = errors.New("kodi: invalid response")
)

// RPCError is a JSON-RPC error object returned by Kodi.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("kodi: rpc error %d: %s", e.Code, e.Message)
}

// RemoteCallError reports a failed remote procedure call.
//
// Every error returned by Client.Call and the Remote helpers is a
// *RemoteCallError. Err is one of the sentinels above or a *RPCError.
type RemoteCallError struct {
	Instance string
	Method   string
	Err      error
}

func (e *RemoteCallError) Error() string {
	if e.Instance == "" {
		return fmt.Sprintf("%s: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("%s on %s: %v", e.Method, e.Instance, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// IsTimeout reports whether err is a remote call that timed out.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
