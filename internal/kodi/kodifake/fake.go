// Package kodifake provides an in-memory kodi.Caller for tests.
package kodifake

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Call records one invocation seen by the fake.
type Call struct {
	Method string
	Params map[string]any
}

// Handler produces the result (or error) for one method.
type Handler func(params map[string]any) (any, error)

// Caller answers JSON-RPC methods from canned handlers and records every call.
// Methods without a handler succeed with an empty result.
//
// Thread Safety:
//   - Safe for concurrent use.
type Caller struct {
	mu       sync.Mutex
	handlers map[string]Handler
	calls    []Call
}

// New returns an empty fake.
func New() *Caller {
	return &Caller{handlers: make(map[string]Handler)}
}

// Handle registers h for method.
func (f *Caller) Handle(method string, h Handler) *Caller {
	f.mu.Lock()
	f.handlers[method] = h
	f.mu.Unlock()
	return f
}

// Reply makes method return result.
func (f *Caller) Reply(method string, result any) *Caller {
	return f.Handle(method, func(map[string]any) (any, error) { return result, nil })
}

// Fail makes method return err.
func (f *Caller) Fail(method string, err error) *Caller {
	return f.Handle(method, func(map[string]any) (any, error) { return nil, err })
}

// Call implements kodi.Caller. Params and results go through a JSON round
// trip so the fake sees exactly what a real instance would.
func (f *Caller) Call(ctx context.Context, method string, params, result any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var decoded map[string]any
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("kodifake: encoding params: %w", err)
		}
		if err := json.Unmarshal(raw, &decoded); err != nil {
			return fmt.Errorf("kodifake: decoding params: %w", err)
		}
	}

	f.mu.Lock()
	f.calls = append(f.calls, Call{Method: method, Params: decoded})
	h := f.handlers[method]
	f.mu.Unlock()

	if h == nil {
		return nil
	}
	out, err := h(decoded)
	if err != nil {
		return err
	}
	if result == nil || out == nil {
		return nil
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("kodifake: encoding result: %w", err)
	}
	return json.Unmarshal(raw, result)
}

// Calls returns a copy of the calls seen so far.
func (f *Caller) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// Methods returns the method names called so far, in order.
func (f *Caller) Methods() []string {
	calls := f.Calls()
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Method
	}
	return out
}
