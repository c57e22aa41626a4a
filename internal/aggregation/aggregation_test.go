package aggregation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/model"
)

const mb = 1 << 20

func gcPause(at, dur float64, kind model.PauseType, before, after, size int64) *model.GCPause {
	return &model.GCPause{
		Base: model.Base{Src: model.SourceG1, At: model.Uptime(at), Elapsed: dur, GCCause: "G1 Evacuation Pause"},
		Type: kind,
		Heap: model.NewMemoryPoolSummary(before*mb, after*mb, size*mb),
		CPU:  &model.CPUSummary{User: 0.02, Sys: 0.01, Real: dur},
	}
}

// run feeds events on the G1 and safepoint topics, then ends both.
func run(t *testing.T, name string, events ...model.Event) aggregator.Aggregation {
	t.Helper()
	bs, err := DefaultRegistry().Select(name)
	require.NoError(t, err)
	require.Len(t, bs, 1)
	a := bs[0].Instantiate()
	for _, e := range events {
		topic := e.Source()
		if _, ok := e.(*model.Safepoint); ok {
			topic = model.SourceSafepoint
		}
		a.Handle(topic, e)
	}
	term := &model.JVMTermination{EstimatedRuntime: 30, Lines: 100, Skipped: 2}
	for _, src := range a.Topics() {
		a.Handle(src, term)
	}
	require.True(t, a.Complete())
	return a.Aggregation()
}

func TestRuntimeSpan(t *testing.T) {
	agg := run(t, RuntimeSpanName,
		gcPause(1.0, 0.5, model.PauseYoung, 10, 5, 100),
		gcPause(4.0, 1.0, model.PauseFull, 50, 20, 100),
		&model.Safepoint{Base: model.Base{Src: model.SourceSafepoint, At: model.Uptime(0.2), Elapsed: 0.1}},
	)
	span := agg.(*RuntimeSpan)
	assert.InDelta(t, 0.2, span.TimeOfFirstEvent().Seconds(), 1e-9)
	assert.InDelta(t, 5.0, span.TimeOfLastEvent().Seconds(), 1e-9)
	assert.Equal(t, 30.0, span.EstimatedRuntime())
	assert.Equal(t, 3, span.Events())
	assert.Equal(t, 100, span.Lines())
	assert.Equal(t, 2, span.Skipped())
	assert.True(t, span.HasWarning(), "skipped lines")
	assert.False(t, span.IsEmpty())
}

func TestPauseTimes(t *testing.T) {
	est := gcPause(3.0, 0.030, model.PauseYoung, 10, 5, 100)
	est.ClockEstimated = true
	agg := run(t, PauseTimesName,
		gcPause(1.0, 0.010, model.PauseYoung, 10, 5, 100),
		gcPause(2.0, 0.020, model.PauseYoung, 10, 5, 100),
		est,
		gcPause(4.0, 0.500, model.PauseFull, 90, 20, 100),
	)
	p := agg.(*PauseTimes)
	assert.Equal(t, 4, p.All().Count())
	assert.InDelta(t, 0.56, p.Total(), 1e-9)
	assert.Equal(t, []model.PauseType{model.PauseFull, model.PauseYoung}, p.Types())
	assert.Equal(t, 3, p.Of(model.PauseYoung).Count())
	assert.Nil(t, p.Of(model.PauseRemark))
	assert.InDelta(t, 0.5, p.Longest().Duration(), 1e-9)
	assert.True(t, p.HasWarning())

	median, err := p.Percentile(0.5)
	require.NoError(t, err)
	assert.InEpsilon(t, 0.020, median, 0.05)

	young, err := p.Of(model.PauseYoung).Variance()
	require.NoError(t, err)
	assert.InDelta(t, 0.0001, young, 1e-9)
}

func TestPauseTimesClampsNegativeDurations(t *testing.T) {
	agg := run(t, PauseTimesName,
		gcPause(1.0, 0.010, model.PauseYoung, 10, 5, 100),
		gcPause(2.0, -0.004, model.PauseYoung, 10, 5, 100),
	)
	p := agg.(*PauseTimes)
	assert.Equal(t, 1, p.Invalid())
	assert.True(t, p.HasWarning())
	assert.Equal(t, 2, p.All().Count())
	assert.InDelta(t, 0.010, p.Total(), 1e-9)

	low, err := p.Percentile(0)
	require.NoError(t, err)
	assert.InDelta(t, 0, low, 1e-9)
	assert.Equal(t, 1, p.Summary().(PauseTimesSummary).Invalid)
}

func TestHeapOccupancy(t *testing.T) {
	agg := run(t, HeapOccupancyName,
		gcPause(1.0, 0.01, model.PauseYoung, 60, 20, 128),
		gcPause(2.0, 0.50, model.PauseFull, 100, 30, 256),
		&model.ConcurrentPhase{Base: model.Base{Src: model.SourceG1}, Phase: "cleanup"},
	)
	h := agg.(*HeapOccupancy)
	assert.Equal(t, int64(100*mb), h.Peak())
	assert.Equal(t, int64(256*mb), h.MaxSize())
	assert.Equal(t, int64(110*mb), h.Reclaimed())
	assert.Equal(t, 2, h.AfterGC().Count())
	assert.Equal(t, 1, h.AfterFull().Count())
	assert.False(t, h.HasWarning())
}

func TestSafepointSummary(t *testing.T) {
	sp := func(op string, sync, vmop float64) *model.Safepoint {
		return &model.Safepoint{
			Base:        model.Base{Src: model.SourceSafepoint, Elapsed: sync + vmop},
			VMOperation: op, Sync: sync, VMOp: vmop,
		}
	}
	agg := run(t, SafepointSummaryName,
		sp("RevokeBias", 0.001, 0.002),
		sp("RevokeBias", 0.001, 0.004),
		sp("Deoptimize", 0.000, 0.001),
		gcPause(1, 1, model.PauseYoung, 1, 1, 1), // not on the safepoint topic
	)
	s := agg.(*SafepointSummary)
	assert.Equal(t, 3, s.Total().Count())
	assert.Equal(t, []string{"RevokeBias", "Deoptimize"}, s.Operations())
	assert.Equal(t, 2, s.Of("RevokeBias").Count())
	assert.InDelta(t, 0.002, s.TimeToReach().Sum(), 1e-9)
}

func TestCollectionCounts(t *testing.T) {
	agg := run(t, CollectionCountsName,
		gcPause(1, 0.01, model.PauseYoung, 1, 1, 1),
		gcPause(2, 0.01, model.PauseYoung, 1, 1, 1),
		gcPause(3, 0.20, model.PauseFull, 1, 1, 1),
		&model.ConcurrentPhase{Base: model.Base{Src: model.SourceG1}, Phase: "mark"},
	)
	c := agg.(*CollectionCounts)
	assert.Equal(t, 3, c.Collections())
	assert.Equal(t, 2, c.Pauses[model.PauseYoung])
	assert.Equal(t, 3, c.Causes["G1 Evacuation Pause"])
	assert.Equal(t, 1, c.Concurrent["mark"])
	assert.InDelta(t, 0.06, c.CPU.User, 1e-9)
	assert.True(t, c.HasWarning(), "a full collection was seen")
}

func TestEmptyAggregations(t *testing.T) {
	for _, name := range DefaultRegistry().Names() {
		t.Run(name, func(t *testing.T) {
			agg := run(t, name)
			assert.True(t, agg.IsEmpty())
			s, ok := agg.(Summarizer)
			require.True(t, ok)
			_, err := json.Marshal(s.Summary())
			assert.NoError(t, err)
		})
	}
}
