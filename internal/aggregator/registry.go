package aggregator

import (
	"errors"
	"fmt"
	"sort"

	"github.com/gobwas/glob"

	"github.com/atikulmunna/gclens/internal/model"
)

// ErrNoMatch is returned by Select when a pattern names no binding.
var ErrNoMatch = errors.New("no aggregator matches")

// Factory builds the aggregation of a new aggregator and registers the
// aggregation's handlers on it.
type Factory func(a *Aggregator) Aggregation

// Binding declares an aggregator: the topics it needs and how to build the
// aggregation it owns.
type Binding struct {
	Name    string
	Topics  []model.EventSource
	Factory Factory
}

// Instantiate returns a fresh aggregator for one analysis.
func (b Binding) Instantiate() *Aggregator {
	a := New(b.Name, b.Topics...)
	a.Own(b.Factory(a))
	return a
}

// Registry is the explicit table of aggregator bindings, filled by the host
// application at startup.
type Registry struct {
	bindings map[string]Binding
}

func NewRegistry() *Registry {
	return &Registry{bindings: make(map[string]Binding)}
}

// Register adds b. Names are unique.
func (r *Registry) Register(b Binding) error {
	switch {
	case b.Name == "":
		return errors.New("binding without name")
	case len(b.Topics) == 0:
		return fmt.Errorf("binding %q: no topics", b.Name)
	case b.Factory == nil:
		return fmt.Errorf("binding %q: no factory", b.Name)
	}
	if _, dup := r.bindings[b.Name]; dup {
		return fmt.Errorf("binding %q already registered", b.Name)
	}
	r.bindings[b.Name] = b
	return nil
}

// MustRegister is Register for static tables.
func (r *Registry) MustRegister(bs ...Binding) *Registry {
	for _, b := range bs {
		if err := r.Register(b); err != nil {
			panic(err)
		}
	}
	return r
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.bindings))
	for n := range r.bindings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Select returns the bindings whose names match any of the glob patterns,
// in name order. No patterns selects everything.
func (r *Registry) Select(patterns ...string) ([]Binding, error) {
	names := r.Names()
	if len(patterns) == 0 {
		out := make([]Binding, 0, len(names))
		for _, n := range names {
			out = append(out, r.bindings[n])
		}
		return out, nil
	}

	chosen := make(map[string]bool)
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("aggregator pattern %q: %w", p, err)
		}
		matched := false
		for _, n := range names {
			if g.Match(n) {
				chosen[n] = true
				matched = true
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w %q", ErrNoMatch, p)
		}
	}

	out := make([]Binding, 0, len(chosen))
	for _, n := range names {
		if chosen[n] {
			out = append(out, r.bindings[n])
		}
	}
	return out, nil
}

// Instantiate builds one aggregator per binding.
func Instantiate(bs []Binding) []*Aggregator {
	out := make([]*Aggregator, 0, len(bs))
	for _, b := range bs {
		out = append(out, b.Instantiate())
	}
	return out
}
