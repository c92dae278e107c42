package audit

import (
	"time"

	"github.com/matiasleandrokruk/metricool-mcp/internal/domain/tool"
)

// Outcome represents the result of an audited tool call.
type Outcome string

const (
	OutcomeSuccess Outcome = tool.OutcomeSuccess
	OutcomeFailure Outcome = tool.OutcomeFailure
	OutcomeInvalid Outcome = tool.OutcomeInvalid
)

// Entry is the immutable audit record derived from one invocation event.
type Entry struct {
	ID          string
	Tool        string
	Outcome     Outcome
	FailureKind string
	StatusCode  int
	Duration    time.Duration
	Cause       string
}

// EntryFromEvent converts a dispatcher event into an audit entry.
func EntryFromEvent(evt tool.InvocationEvent) Entry {
	e := Entry{
		ID:          evt.ID,
		Tool:        evt.Tool,
		Outcome:     Outcome(evt.Outcome),
		FailureKind: evt.FailureKind,
		StatusCode:  evt.StatusCode,
		Duration:    evt.Duration,
	}
	if evt.Err != nil {
		e.Cause = evt.Err.Error()
	}
	return e
}
