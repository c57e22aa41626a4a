// Package aggregation holds the concrete aggregations gclens computes and
// the default table binding them to topics.
package aggregation

import (
	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/model"
)

// RuntimeSpan records the time extremes of a log: when the first event
// started, when the last one ended, and the parser's runtime estimate.
type RuntimeSpan struct {
	first     model.DateTimeStamp
	last      model.DateTimeStamp
	estimate  float64
	events    int
	lines     int
	skipped   int
	estimated int
}

func NewRuntimeSpan() *RuntimeSpan { return &RuntimeSpan{} }

func (r *RuntimeSpan) event(e model.Event) {
	if _, end := e.(*model.JVMTermination); end {
		return
	}
	r.events++
	if e.Estimated() {
		r.estimated++
	}
	at := e.Timestamp()
	if at.IsZero() {
		return
	}
	if r.first.IsZero() || at.Before(r.first) {
		r.first = at
	}
	end := at.Add(e.Duration())
	if r.last.IsZero() || r.last.Before(end) {
		r.last = end
	}
}

func (r *RuntimeSpan) terminate(t *model.JVMTermination) {
	r.estimate = t.EstimatedRuntime
	r.lines = t.Lines
	r.skipped = t.Skipped
}

// TimeOfFirstEvent is the start of the earliest event.
func (r *RuntimeSpan) TimeOfFirstEvent() model.DateTimeStamp { return r.first }

// TimeOfLastEvent is the end of the latest event.
func (r *RuntimeSpan) TimeOfLastEvent() model.DateTimeStamp { return r.last }

// EstimatedRuntime is the parser's final clock reading.
func (r *RuntimeSpan) EstimatedRuntime() float64 { return r.estimate }

func (r *RuntimeSpan) Events() int  { return r.events }
func (r *RuntimeSpan) Lines() int   { return r.lines }
func (r *RuntimeSpan) Skipped() int { return r.skipped }

// HasWarning reports skipped lines or events stamped with an estimated clock.
func (r *RuntimeSpan) HasWarning() bool { return r.skipped > 0 || r.estimated > 0 }
func (r *RuntimeSpan) IsEmpty() bool    { return r.events == 0 }

// RuntimeSpanSummary is the serialisable form of a RuntimeSpan.
type RuntimeSpanSummary struct {
	First     model.DateTimeStamp `json:"first_event"`
	Last      model.DateTimeStamp `json:"last_event"`
	Estimate  float64             `json:"estimated_runtime"`
	Events    int                 `json:"events"`
	Lines     int                 `json:"lines"`
	Skipped   int                 `json:"skipped"`
	Estimated int                 `json:"estimated_timestamps"`
}

func (r *RuntimeSpan) Summary() any {
	return RuntimeSpanSummary{
		First:     r.first,
		Last:      r.last,
		Estimate:  r.estimate,
		Events:    r.events,
		Lines:     r.lines,
		Skipped:   r.skipped,
		Estimated: r.estimated,
	}
}

func runtimeSpanFactory(a *aggregator.Aggregator) aggregator.Aggregation {
	r := NewRuntimeSpan()
	aggregator.Register(a, r.event)
	aggregator.Register(a, r.terminate)
	return r
}
