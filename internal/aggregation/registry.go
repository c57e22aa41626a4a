package aggregation

import (
	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/model"
)

// Binding names.
const (
	RuntimeSpanName      = "runtime.span"
	PauseTimesName       = "pause.times"
	HeapOccupancyName    = "heap.occupancy"
	SafepointSummaryName = "safepoint.summary"
	CollectionCountsName = "collection.counts"
)

// Summarizer is implemented by aggregations with a serialisable summary.
type Summarizer interface {
	Summary() any
}

// RuntimeSpanBinding listens on every topic so the first and last events of
// the log are seen whatever their source.
func RuntimeSpanBinding() aggregator.Binding {
	return aggregator.Binding{Name: RuntimeSpanName, Topics: model.AllSources(), Factory: runtimeSpanFactory}
}

// DefaultRegistry returns the bindings of every built-in aggregation.
func DefaultRegistry() *aggregator.Registry {
	gc := model.GCSources()
	return aggregator.NewRegistry().MustRegister(
		RuntimeSpanBinding(),
		aggregator.Binding{Name: PauseTimesName, Topics: gc, Factory: pauseTimesFactory},
		aggregator.Binding{Name: HeapOccupancyName, Topics: gc, Factory: heapOccupancyFactory},
		aggregator.Binding{Name: SafepointSummaryName, Topics: []model.EventSource{model.SourceSafepoint}, Factory: safepointSummaryFactory},
		aggregator.Binding{Name: CollectionCountsName, Topics: gc, Factory: collectionCountsFactory},
	)
}
