package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/gclens/internal/channel"
	"github.com/atikulmunna/gclens/internal/model"
)

// tally counts what reaches it.
type tally struct {
	pauses     int
	safepoints int
	all        int
	runtime    float64
	finalized  int
	estimated  bool
}

func (t *tally) HasWarning() bool { return t.estimated }
func (t *tally) IsEmpty() bool    { return t.all == 0 }

func tallyBinding(name string, topics ...model.EventSource) Binding {
	return Binding{
		Name:   name,
		Topics: topics,
		Factory: func(a *Aggregator) Aggregation {
			t := &tally{}
			Register(a, func(*model.GCPause) { t.pauses++ })
			Register(a, func(*model.Safepoint) { t.safepoints++ })
			Register(a, func(e model.Event) {
				if _, end := e.(*model.JVMTermination); !end {
					t.all++
					t.estimated = t.estimated || e.Estimated()
				}
			})
			Register(a, func(e *model.JVMTermination) { t.runtime = e.EstimatedRuntime })
			a.OnComplete(func() { t.finalized++ })
			return t
		},
	}
}

func TestHandleRoutesByType(t *testing.T) {
	a := tallyBinding("t", model.SourceG1, model.SourceSafepoint).Instantiate()
	a.Handle(model.SourceG1, &model.GCPause{})
	a.Handle(model.SourceG1, &model.ConcurrentPhase{})
	a.Handle(model.SourceSafepoint, &model.Safepoint{Base: model.Base{ClockEstimated: true}})

	term := &model.JVMTermination{EstimatedRuntime: 42}
	a.Handle(model.SourceG1, term)
	assert.False(t, a.Complete(), "safepoint topic still open")
	a.Handle(model.SourceSafepoint, term)
	require.True(t, a.Complete())

	got := a.Aggregation().(*tally)
	assert.Equal(t, 1, got.pauses)
	assert.Equal(t, 1, got.safepoints)
	assert.Equal(t, 3, got.all)
	assert.Equal(t, 42.0, got.runtime)
	assert.Equal(t, 1, got.finalized)
	assert.True(t, got.HasWarning())
	assert.False(t, got.IsEmpty())
	assert.Equal(t, 3, a.Events())

	select {
	case <-a.Done():
	default:
		t.Fatal("done not closed")
	}

	// Nothing reaches a completed aggregator.
	a.Handle(model.SourceG1, &model.GCPause{})
	assert.Equal(t, 1, got.pauses)
}

func TestEmptyAggregation(t *testing.T) {
	a := tallyBinding("t", model.SourceZGC).Instantiate()
	a.Handle(model.SourceZGC, &model.JVMTermination{})
	assert.True(t, a.Complete())
	assert.True(t, a.Aggregation().IsEmpty())
}

func TestAggregatorsOverBus(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	bus := channel.New()
	aggs := Instantiate([]Binding{
		tallyBinding("pauses", model.SourceParallel),
		tallyBinding("safepoints", model.SourceSafepoint),
	})
	for _, a := range aggs {
		require.NoError(t, a.Subscribe(bus))
	}
	bus.Open()

	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(ctx, model.SourceParallel, &model.GCPause{}))
	}
	require.NoError(t, bus.Publish(ctx, model.SourceSafepoint, &model.Safepoint{}))
	require.NoError(t, bus.Terminate(ctx, &model.JVMTermination{EstimatedRuntime: 7}))
	require.NoError(t, bus.Close(ctx))

	for _, a := range aggs {
		<-a.Done()
	}
	assert.Equal(t, 10, aggs[0].Aggregation().(*tally).pauses)
	assert.Equal(t, 0, aggs[0].Aggregation().(*tally).safepoints)
	assert.Equal(t, 1, aggs[1].Aggregation().(*tally).safepoints)
	assert.Equal(t, 7.0, aggs[1].Aggregation().(*tally).runtime)
}
