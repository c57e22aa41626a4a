// Package aggregator routes bus events to the aggregations that consume
// them. An aggregator owns exactly one aggregation; handlers run on the
// aggregator's own subscriber goroutine and need no locking.
package aggregator

import (
	"github.com/atikulmunna/gclens/internal/channel"
	"github.com/atikulmunna/gclens/internal/model"
)

// Aggregation is the result an aggregator accumulates.
type Aggregation interface {
	// HasWarning reports that the result carries caveats, such as events
	// stamped with an estimated clock.
	HasWarning() bool
	// IsEmpty reports that no event contributed to the result.
	IsEmpty() bool
}

type route func(model.Event) bool

// Aggregator dispatches events by dynamic type to registered handlers and
// runs a finalize hook once every subscribed topic has ended.
type Aggregator struct {
	name        string
	topics      []model.EventSource
	aggregation Aggregation
	routes      []route
	finalize    []func()

	open       map[model.EventSource]bool
	terminated bool
	complete   bool
	events     int
	done       chan struct{}
}

// New returns an aggregator listening on topics. Its aggregation is set by
// Own, usually from a Binding factory.
func New(name string, topics ...model.EventSource) *Aggregator {
	a := &Aggregator{
		name:   name,
		topics: topics,
		open:   make(map[model.EventSource]bool, len(topics)),
		done:   make(chan struct{}),
	}
	for _, t := range topics {
		a.open[t] = true
	}
	return a
}

// Register routes every event of type E reaching a to h. E may be a concrete
// event pointer type or an interface satisfied by several.
func Register[E model.Event](a *Aggregator, h func(E)) {
	a.routes = append(a.routes, func(e model.Event) bool {
		v, ok := e.(E)
		if ok {
			h(v)
		}
		return ok
	})
}

// OnComplete adds a hook run after the last topic delivers end of data.
func (a *Aggregator) OnComplete(fn func()) {
	a.finalize = append(a.finalize, fn)
}

// Own sets the aggregation a produces.
func (a *Aggregator) Own(agg Aggregation) { a.aggregation = agg }

func (a *Aggregator) Name() string                { return a.name }
func (a *Aggregator) Topics() []model.EventSource { return a.topics }
func (a *Aggregator) Aggregation() Aggregation    { return a.aggregation }
func (a *Aggregator) Events() int                 { return a.events }
func (a *Aggregator) Complete() bool              { return a.complete }

// Done is closed once the aggregator has finalized.
func (a *Aggregator) Done() <-chan struct{} { return a.done }

// Handle is the bus handler. The first end-of-data marker is routed like any
// other event so aggregations can read its runtime estimate; later markers
// only close their topic.
func (a *Aggregator) Handle(topic model.EventSource, e model.Event) {
	if a.complete || !a.listens(topic) {
		return
	}
	if term, ok := e.(*model.JVMTermination); ok {
		if !a.terminated {
			a.terminated = true
			a.dispatch(term)
		}
		delete(a.open, topic)
		if len(a.open) == 0 {
			a.finish()
		}
		return
	}
	a.events++
	a.dispatch(e)
}

func (a *Aggregator) listens(topic model.EventSource) bool {
	for _, t := range a.topics {
		if t == topic {
			return true
		}
	}
	return false
}

func (a *Aggregator) dispatch(e model.Event) {
	for _, r := range a.routes {
		r(e)
	}
}

func (a *Aggregator) finish() {
	a.complete = true
	for _, fn := range a.finalize {
		fn()
	}
	close(a.done)
}

// Subscribe attaches a to bus on all of its topics.
func (a *Aggregator) Subscribe(bus *channel.Bus) error {
	return bus.Subscribe(a.name, a.topics, a.Handle)
}
