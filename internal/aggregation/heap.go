package aggregation

import (
	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/stats"
)

// HeapOccupancy follows heap occupancy across collections.
type HeapOccupancy struct {
	afterGC   stats.Sample
	peak      int64
	maxSize   int64
	reclaimed int64
	// afterFull is the occupancy left by full collections: live data.
	afterFull stats.Sample
	unsized   int
}

func NewHeapOccupancy() *HeapOccupancy { return &HeapOccupancy{} }

func (h *HeapOccupancy) observe(heap *model.MemoryPoolSummary) {
	if heap == nil {
		return
	}
	h.afterGC.Add(float64(heap.OccupancyAfter))
	if heap.OccupancyBefore > h.peak {
		h.peak = heap.OccupancyBefore
	}
	if heap.SizeAfter < 0 || heap.SizeBefore < 0 {
		h.unsized++
	}
	size := max(heap.SizeBefore, heap.SizeAfter)
	if size > h.maxSize {
		h.maxSize = size
	}
	if r := heap.Reclaimed(); r > 0 {
		h.reclaimed += r
	}
}

func (h *HeapOccupancy) pause(e *model.GCPause) {
	h.observe(e.Heap)
	if e.Type == model.PauseFull && e.Heap != nil {
		h.afterFull.Add(float64(e.Heap.OccupancyAfter))
	}
}

func (h *HeapOccupancy) concurrent(e *model.ConcurrentPhase) {
	h.observe(e.Heap)
}

// AfterGC is the sample of occupancies left by each collection, in bytes.
func (h *HeapOccupancy) AfterGC() *stats.Sample { return &h.afterGC }

// AfterFull is the sample of occupancies left by full collections.
func (h *HeapOccupancy) AfterFull() *stats.Sample { return &h.afterFull }

func (h *HeapOccupancy) Peak() int64      { return h.peak }
func (h *HeapOccupancy) MaxSize() int64   { return h.maxSize }
func (h *HeapOccupancy) Reclaimed() int64 { return h.reclaimed }

// HasWarning reports collections whose heap size could not be derived.
func (h *HeapOccupancy) HasWarning() bool { return h.unsized > 0 }
func (h *HeapOccupancy) IsEmpty() bool    { return h.afterGC.Count() == 0 }

// HeapOccupancySummary is the serialisable form of HeapOccupancy.
type HeapOccupancySummary struct {
	AfterGC   SampleSummary `json:"after_gc"`
	AfterFull SampleSummary `json:"after_full"`
	Peak      int64         `json:"peak"`
	MaxSize   int64         `json:"max_size"`
	Reclaimed int64         `json:"reclaimed"`
}

func (h *HeapOccupancy) Summary() any {
	return HeapOccupancySummary{
		AfterGC:   summarize(&h.afterGC),
		AfterFull: summarize(&h.afterFull),
		Peak:      h.peak,
		MaxSize:   h.maxSize,
		Reclaimed: h.reclaimed,
	}
}

func heapOccupancyFactory(a *aggregator.Aggregator) aggregator.Aggregation {
	h := NewHeapOccupancy()
	aggregator.Register(a, h.pause)
	aggregator.Register(a, h.concurrent)
	return h
}
