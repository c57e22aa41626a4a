// Package jvm assembles the read-only result of one log analysis.
package jvm

import (
	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/model"
)

// DefaultFragmentThreshold is the runtime, in seconds, below which a log is
// treated as a fragment of a longer run.
const DefaultFragmentThreshold = 18.0

// TimeSpan is implemented by the aggregation that records the time extremes
// of a log.
type TimeSpan interface {
	TimeOfFirstEvent() model.DateTimeStamp
	TimeOfLastEvent() model.DateTimeStamp
	EstimatedRuntime() float64
}

// Named pairs an aggregation with the binding that produced it.
type Named struct {
	Name        string
	Aggregation aggregator.Aggregation
}

// JavaVirtualMachine is the result of analysing one log. It is built once all
// aggregators have finalized and never changes afterwards.
type JavaVirtualMachine struct {
	name         string
	facts        map[diary.Key]diary.Fact
	collector    model.EventSource
	hasCollector bool
	commandLine  string
	first, last  model.DateTimeStamp
	runtime      float64
	fragment     bool
	aggregations []Named
}

// Option configures Assemble.
type Option func(*assembly)

type assembly struct {
	threshold float64
	observed  map[diary.Key]bool
}

// WithObserved decides facts the diary left Unknown from what was seen
// while parsing. Facts the diary decided are kept.
func WithObserved(facts map[diary.Key]bool) Option {
	return func(a *assembly) { a.observed = facts }
}

// WithFragmentThreshold overrides DefaultFragmentThreshold.
func WithFragmentThreshold(seconds float64) Option {
	return func(a *assembly) {
		if seconds > 0 {
			a.threshold = seconds
		}
	}
}

// Assemble builds the model from the diary and the finalized aggregators.
func Assemble(name string, d *diary.Diary, aggs []*aggregator.Aggregator, opts ...Option) *JavaVirtualMachine {
	cfg := assembly{threshold: DefaultFragmentThreshold}
	for _, o := range opts {
		o(&cfg)
	}

	j := &JavaVirtualMachine{
		name:        name,
		facts:       d.Facts(),
		commandLine: d.CommandLine(),
	}
	j.collector, j.hasCollector = d.Collector()
	for k, v := range cfg.observed {
		if j.facts[k] != diary.Unknown {
			continue
		}
		j.facts[k] = diary.False
		if v {
			j.facts[k] = diary.True
		}
	}
	for _, a := range aggs {
		j.aggregations = append(j.aggregations, Named{Name: a.Name(), Aggregation: a.Aggregation()})
	}

	for _, n := range j.aggregations {
		span, ok := n.Aggregation.(TimeSpan)
		if !ok {
			continue
		}
		j.first, j.last = span.TimeOfFirstEvent(), span.TimeOfLastEvent()
		j.runtime, j.fragment = RuntimeDuration(j.first, j.last, cfg.threshold)
		break
	}
	return j
}

// RuntimeDuration returns the runtime reported for a log whose first event
// started at first and whose last event ended at last. A log spanning less
// than threshold seconds is a fragment: the absolute time of its last event
// is reported instead of the span. Logs stamped with dates only have no
// absolute origin, so their fragments report the span.
func RuntimeDuration(first, last model.DateTimeStamp, threshold float64) (seconds float64, fragment bool) {
	if last.IsZero() {
		return 0, false
	}
	span := last.Minus(first)
	if span >= threshold {
		return span, false
	}
	if last.HasUptime() {
		return last.Seconds(), true
	}
	return span, true
}

func (j *JavaVirtualMachine) Name() string { return j.name }

func (j *JavaVirtualMachine) is(k diary.Key) bool { return j.facts[k] == diary.True }

func (j *JavaVirtualMachine) IsUnified() bool    { return j.is(diary.Unified) }
func (j *JavaVirtualMachine) IsSerial() bool     { return j.is(diary.Serial) }
func (j *JavaVirtualMachine) IsParallel() bool   { return j.is(diary.Parallel) }
func (j *JavaVirtualMachine) IsCMS() bool        { return j.is(diary.CMS) }
func (j *JavaVirtualMachine) IsG1() bool         { return j.is(diary.G1) }
func (j *JavaVirtualMachine) IsShenandoah() bool { return j.is(diary.Shenandoah) }
func (j *JavaVirtualMachine) IsZGC() bool        { return j.is(diary.ZGC) }

// HasSafepointStatistics reports a -XX:+PrintSafepointStatistics log.
func (j *JavaVirtualMachine) HasSafepointStatistics() bool { return j.is(diary.Safepoint) }

// Collector returns the detected collector family, if any.
func (j *JavaVirtualMachine) Collector() (model.EventSource, bool) {
	return j.collector, j.hasCollector
}

// Facts returns a copy of the diary facts the model was built from.
func (j *JavaVirtualMachine) Facts() map[diary.Key]diary.Fact {
	out := make(map[diary.Key]diary.Fact, len(j.facts))
	for k, v := range j.facts {
		out[k] = v
	}
	return out
}

// CommandLine is the JVM command line captured from the log header, or "".
func (j *JavaVirtualMachine) CommandLine() string { return j.commandLine }

func (j *JavaVirtualMachine) TimeOfFirstEvent() model.DateTimeStamp { return j.first }
func (j *JavaVirtualMachine) TimeOfLastEvent() model.DateTimeStamp  { return j.last }

// RuntimeDuration is the runtime in seconds, with the fragment rule applied.
func (j *JavaVirtualMachine) RuntimeDuration() float64 { return j.runtime }

// IsFragment reports whether the log was short enough to be a fragment.
func (j *JavaVirtualMachine) IsFragment() bool { return j.fragment }

// Aggregations returns every aggregation in binding order.
func (j *JavaVirtualMachine) Aggregations() []Named {
	return append([]Named(nil), j.aggregations...)
}

// Named returns the aggregation produced by the named binding.
func (j *JavaVirtualMachine) Named(name string) (aggregator.Aggregation, bool) {
	for _, n := range j.aggregations {
		if n.Name == name {
			return n.Aggregation, true
		}
	}
	return nil, false
}

// Aggregation returns the first aggregation of type T.
func Aggregation[T aggregator.Aggregation](j *JavaVirtualMachine) (T, bool) {
	for _, n := range j.aggregations {
		if v, ok := n.Aggregation.(T); ok {
			return v, true
		}
	}
	var zero T
	return zero, false
}
