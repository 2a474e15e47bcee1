package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/nerrad567/kodibridge/internal/action"
	"github.com/nerrad567/kodibridge/internal/infrastructure/logging"
)

// defaultDetachedTimeout bounds a detached action when no call timeout is
// configured.
const defaultDetachedTimeout = 10 * time.Second

// ActionEvent describes one dispatched action.
type ActionEvent struct {
	RequestID string
	Instance  string
	Action    string
	Success   bool
	Error     string
	Duration  time.Duration
	Timestamp time.Time
}

// ActionRecorder receives an event after every dispatch. Implementations
// must not block; the event is recorded on the request goroutine.
type ActionRecorder interface {
	RecordAction(ev ActionEvent)
}

// DispatcherDeps holds what a Dispatcher needs.
type DispatcherDeps struct {
	YouTube         action.VideoSearcher
	Recorders       []ActionRecorder
	Logger          *logging.Logger
	DetachedTimeout time.Duration

	// Intn overrides episode shuffling. Tests use it.
	Intn func(n int) int
}

// Dispatcher runs validated requests against their target.
//
// Thread Safety:
//   - Safe for concurrent use. Requests share no mutable state.
type Dispatcher struct {
	youtube         action.VideoSearcher
	recorders       []ActionRecorder
	logger          *logging.Logger
	detachedTimeout time.Duration
	intn            func(n int) int

	detached sync.WaitGroup
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	timeout := deps.DetachedTimeout
	if timeout <= 0 {
		timeout = defaultDetachedTimeout
	}
	return &Dispatcher{
		youtube:         deps.YouTube,
		recorders:       deps.Recorders,
		logger:          logger.With("component", "dispatcher"),
		detachedTimeout: timeout,
		intn:            deps.Intn,
	}
}

// Dispatch extracts a's parameters from the query string and runs it.
func (d *Dispatcher) Dispatch(w http.ResponseWriter, r *http.Request, rc *RoutingContext, a action.Action) {
	params, err := a.FromQuery(r.URL.Query())
	if err != nil {
		d.fail(w, rc, a, err, 0)
		return
	}
	d.run(w, r, rc, a, params)
}

// DispatchIntent selects the action named by the intent body and runs it.
func (d *Dispatcher) DispatchIntent(w http.ResponseWriter, r *http.Request, rc *RoutingContext) {
	intent, err := action.ParseIntent(rc.Body)
	if err != nil {
		d.fail(w, rc, action.Action{}, err, 0)
		return
	}

	a, err := action.ForIntent(intent.Query.Action)
	if err != nil {
		d.fail(w, rc, action.Action{}, err, 0)
		return
	}

	params, err := a.FromIntent(intent.Query)
	if err != nil {
		d.fail(w, rc, a, err, 0)
		return
	}
	d.run(w, r, rc, a, params)
}

// Wait blocks until every detached action has finished.
func (d *Dispatcher) Wait() {
	d.detached.Wait()
}

func (d *Dispatcher) env(rc *RoutingContext) action.Env {
	return action.Env{
		Remote:  rc.Target.Remote,
		YouTube: d.youtube,
		Intn:    d.intn,
	}
}

func (d *Dispatcher) run(w http.ResponseWriter, r *http.Request, rc *RoutingContext, a action.Action, p action.Params) {
	if a.Detached {
		d.runDetached(w, r, rc, a, p)
		return
	}

	start := time.Now()
	err := a.Invoke(r.Context(), d.env(rc), p)
	elapsed := time.Since(start)
	if err != nil {
		d.fail(w, rc, a, err, elapsed)
		return
	}

	writeJSON(w, http.StatusOK, successBody(rc, a))
	d.record(rc, a, nil, elapsed)
}

// runDetached answers 200 before the action runs. The outcome is only
// logged and recorded.
func (d *Dispatcher) runDetached(w http.ResponseWriter, r *http.Request, rc *RoutingContext, a action.Action, p action.Params) {
	writeJSON(w, http.StatusOK, successBody(rc, a))

	ctx := context.WithoutCancel(r.Context())
	env := d.env(rc)

	d.detached.Add(1)
	go func() {
		defer d.detached.Done()

		ctx, cancel := context.WithTimeout(ctx, d.detachedTimeout)
		defer cancel()

		start := time.Now()
		err := a.Invoke(ctx, env, p)
		elapsed := time.Since(start)
		if err != nil {
			d.logger.Error("detached action failed",
				"action", a.Kind.String(),
				"instance", rc.Target.ID,
				"error", err,
				"request_id", rc.RequestID,
			)
		}
		d.record(rc, a, err, elapsed)
	}()
}

func (d *Dispatcher) fail(w http.ResponseWriter, rc *RoutingContext, a action.Action, err error, elapsed time.Duration) {
	status, _ := statusFor(err)
	d.logger.Warn("action failed",
		"action", a.Kind.String(),
		"instance", rc.Target.ID,
		"status", status,
		"error", err,
		"request_id", rc.RequestID,
	)
	writeDispatchError(w, err)
	d.record(rc, a, err, elapsed)
}

func (d *Dispatcher) record(rc *RoutingContext, a action.Action, err error, elapsed time.Duration) {
	if len(d.recorders) == 0 {
		return
	}
	ev := ActionEvent{
		RequestID: rc.RequestID,
		Instance:  rc.Target.ID,
		Action:    a.Kind.String(),
		Success:   err == nil,
		Duration:  elapsed,
		Timestamp: time.Now().UTC(),
	}
	if err != nil {
		ev.Error = err.Error()
	}
	for _, rec := range d.recorders {
		rec.RecordAction(ev)
	}
}

func successBody(rc *RoutingContext, a action.Action) map[string]any {
	return map[string]any{
		"status":   "ok",
		"action":   a.Kind.String(),
		"instance": rc.Target.ID,
	}
}
