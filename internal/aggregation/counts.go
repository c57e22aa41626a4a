package aggregation

import (
	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/model"
)

// CollectionCounts counts pauses by type and cause and concurrent phases by
// name.
type CollectionCounts struct {
	Pauses     map[model.PauseType]int `json:"pauses"`
	Causes     map[string]int          `json:"causes"`
	Concurrent map[string]int          `json:"concurrent"`
	// CPU totals the [Times: ...] records attached to pauses.
	CPU model.CPUSummary `json:"cpu"`
}

func NewCollectionCounts() *CollectionCounts {
	return &CollectionCounts{
		Pauses:     make(map[model.PauseType]int),
		Causes:     make(map[string]int),
		Concurrent: make(map[string]int),
	}
}

func (c *CollectionCounts) pause(e *model.GCPause) {
	c.Pauses[e.Type]++
	if e.Cause() != "" {
		c.Causes[e.Cause()]++
	}
	if e.CPU != nil {
		c.CPU.User += e.CPU.User
		c.CPU.Sys += e.CPU.Sys
		c.CPU.Real += e.CPU.Real
	}
}

func (c *CollectionCounts) concurrent(e *model.ConcurrentPhase) {
	c.Concurrent[e.Phase]++
}

// Collections is the number of pauses of every type.
func (c *CollectionCounts) Collections() int {
	n := 0
	for _, v := range c.Pauses {
		n += v
	}
	return n
}

// HasWarning reports full collections, which usually deserve attention.
func (c *CollectionCounts) HasWarning() bool { return c.Pauses[model.PauseFull] > 0 }
func (c *CollectionCounts) IsEmpty() bool    { return c.Collections() == 0 && len(c.Concurrent) == 0 }

func (c *CollectionCounts) Summary() any { return c }

func collectionCountsFactory(a *aggregator.Aggregator) aggregator.Aggregation {
	c := NewCollectionCounts()
	aggregator.Register(a, c.pause)
	aggregator.Register(a, c.concurrent)
	return c
}
