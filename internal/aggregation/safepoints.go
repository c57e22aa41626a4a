package aggregation

import (
	"sort"

	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/stats"
)

// SafepointSummary groups safepoints by VM operation and tracks
// time-to-safepoint separately from the operation itself.
type SafepointSummary struct {
	total       stats.Sample
	timeToReach stats.Sample
	byOperation map[string]*stats.Sample
	estimated   int
}

func NewSafepointSummary() *SafepointSummary {
	return &SafepointSummary{byOperation: make(map[string]*stats.Sample)}
}

func (s *SafepointSummary) safepoint(e *model.Safepoint) {
	s.total.Add(e.Duration())
	s.timeToReach.Add(e.Spin + e.Block + e.Sync)
	op, ok := s.byOperation[e.VMOperation]
	if !ok {
		op = &stats.Sample{}
		s.byOperation[e.VMOperation] = op
	}
	op.Add(e.Duration())
	if e.Estimated() {
		s.estimated++
	}
}

func (s *SafepointSummary) Total() *stats.Sample       { return &s.total }
func (s *SafepointSummary) TimeToReach() *stats.Sample { return &s.timeToReach }

// Of returns the sample for one VM operation; nil if it never ran.
func (s *SafepointSummary) Of(op string) *stats.Sample { return s.byOperation[op] }

// Operations lists the VM operations seen, most frequent first.
func (s *SafepointSummary) Operations() []string {
	ops := make([]string, 0, len(s.byOperation))
	for op := range s.byOperation {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		ci, cj := s.byOperation[ops[i]].Count(), s.byOperation[ops[j]].Count()
		if ci != cj {
			return ci > cj
		}
		return ops[i] < ops[j]
	})
	return ops
}

func (s *SafepointSummary) HasWarning() bool { return s.estimated > 0 }
func (s *SafepointSummary) IsEmpty() bool    { return s.total.Count() == 0 }

// SafepointSummaryData is the serialisable form of SafepointSummary.
type SafepointSummaryData struct {
	Total       SampleSummary            `json:"total"`
	TimeToReach SampleSummary            `json:"time_to_safepoint"`
	ByOperation map[string]SampleSummary `json:"by_operation"`
}

func (s *SafepointSummary) Summary() any {
	out := SafepointSummaryData{
		Total:       summarize(&s.total),
		TimeToReach: summarize(&s.timeToReach),
		ByOperation: make(map[string]SampleSummary, len(s.byOperation)),
	}
	for op, sm := range s.byOperation {
		out.ByOperation[op] = summarize(sm)
	}
	return out
}

func safepointSummaryFactory(a *aggregator.Aggregator) aggregator.Aggregation {
	s := NewSafepointSummary()
	aggregator.Register(a, s.safepoint)
	return s
}
