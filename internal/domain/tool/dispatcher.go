package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/metricool-mcp/internal/infra/metricool"
)

// TopicInvoked is the event bus topic carrying one InvocationEvent per call.
const TopicInvoked = "tool.invoked"

// Outcomes recorded on InvocationEvent.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeInvalid = "invalid"
)

// Executor performs one authenticated request. *metricool.Client implements it.
type Executor interface {
	Get(ctx context.Context, url string) (json.RawMessage, error)
	Post(ctx context.Context, url string, body any) (json.RawMessage, error)
}

// Publisher receives invocation events. eventbus.Bus implements it.
type Publisher interface {
	Publish(topic string, payload any)
}

// Result is the outcome of one tool invocation: either Data, or Label with
// the typed cause in Err.
type Result struct {
	Tool  string
	Data  json.RawMessage
	Label string
	Err   error
}

// Failed reports whether the invocation produced no data.
func (r Result) Failed() bool { return r.Err != nil }

// Text renders the result the way callers see it: the body verbatim on
// success, the failure label otherwise.
func (r Result) Text() string {
	if r.Failed() {
		return r.Label
	}
	return string(r.Data)
}

// InvocationEvent describes one finished invocation.
type InvocationEvent struct {
	ID          string
	Tool        string
	URL         string
	Outcome     string
	FailureKind string
	StatusCode  int
	Duration    time.Duration
	Err         error
}

// Dispatcher maps a named invocation to one outbound call. It holds no
// mutable state; concurrent Invoke calls are independent.
type Dispatcher struct {
	catalog  *Catalog
	executor Executor
	creds    metricool.Credentials
	baseURL  string
	events   Publisher
}

// NewDispatcher wires the catalog to an executor. events may be nil.
func NewDispatcher(catalog *Catalog, executor Executor, creds metricool.Credentials, baseURL string, events Publisher) *Dispatcher {
	return &Dispatcher{
		catalog:  catalog,
		executor: executor,
		creds:    creds,
		baseURL:  baseURL,
		events:   events,
	}
}

// Catalog returns the catalog this dispatcher serves.
func (d *Dispatcher) Catalog() *Catalog { return d.catalog }

// URLFor builds the request target for name without performing the call.
func (d *Dispatcher) URLFor(name string, raw json.RawMessage) (string, error) {
	desc, err := d.catalog.Get(name)
	if err != nil {
		return "", err
	}
	args, err := ParseArgs(desc, raw)
	if err != nil {
		return "", err
	}
	return desc.BuildURL(d.baseURL, d.creds, args), nil
}

// Invoke runs the named tool. It never returns a Go error: failures are
// folded into Result with the tool's failure label.
func (d *Dispatcher) Invoke(ctx context.Context, name string, raw json.RawMessage) Result {
	start := time.Now()
	evt := InvocationEvent{ID: newInvocationID(), Tool: name}

	desc, err := d.catalog.Get(name)
	if err != nil {
		evt.Outcome = OutcomeInvalid
		evt.Err = err
		d.publish(evt, start)
		return Result{Tool: name, Label: fmt.Sprintf("Unknown tool %q", name), Err: err}
	}

	args, err := ParseArgs(desc, raw)
	if err != nil {
		evt.Outcome = OutcomeInvalid
		evt.Err = err
		d.publish(evt, start)
		return Result{Tool: name, Label: err.Error(), Err: err}
	}

	target := desc.BuildURL(d.baseURL, d.creds, args)
	evt.URL = target

	var body json.RawMessage
	if desc.Method == http.MethodPost {
		body, err = d.executor.Post(ctx, target, desc.RequestBody(d.creds, args))
	} else {
		body, err = d.executor.Get(ctx, target)
	}

	if err != nil {
		evt.Outcome = OutcomeFailure
		evt.Err = err
		if kind, ok := metricool.KindOf(err); ok {
			evt.FailureKind = kind.String()
		}
		evt.StatusCode = metricool.StatusOf(err)
		d.publish(evt, start)
		return Result{Tool: name, Label: desc.FailureLabel, Err: err}
	}
	if len(body) == 0 {
		err = errors.New("executor returned no body")
		evt.Outcome = OutcomeFailure
		evt.Err = err
		d.publish(evt, start)
		return Result{Tool: name, Label: desc.FailureLabel, Err: err}
	}

	evt.Outcome = OutcomeSuccess
	d.publish(evt, start)
	return Result{Tool: name, Data: body}
}

func (d *Dispatcher) publish(evt InvocationEvent, start time.Time) {
	if d.events == nil {
		return
	}
	evt.Duration = time.Since(start)
	d.events.Publish(TopicInvoked, evt)
}

func newInvocationID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
