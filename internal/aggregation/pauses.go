package aggregation

import (
	"sort"

	"github.com/atikulmunna/gclens/internal/aggregator"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/stats"
)

// PauseTimes summarises stop-the-world pause durations, overall and per
// pause type.
type PauseTimes struct {
	all       stats.Sample
	quantiles *stats.Quantiles
	byType    map[model.PauseType]*stats.Sample
	longest   *model.GCPause
	estimated int
	invalid   int
}

func NewPauseTimes() *PauseTimes {
	return &PauseTimes{
		quantiles: stats.MustQuantiles(stats.DefaultAccuracy),
		byType:    make(map[model.PauseType]*stats.Sample),
	}
}

func (p *PauseTimes) pause(e *model.GCPause) {
	d := e.Duration()
	if d < 0 {
		p.invalid++
		d = 0
	}
	p.all.Add(d)
	if err := p.quantiles.Add(d); err != nil {
		p.invalid++
	}
	s, ok := p.byType[e.Type]
	if !ok {
		s = &stats.Sample{}
		p.byType[e.Type] = s
	}
	s.Add(d)
	if p.longest == nil || d > p.longest.Duration() {
		p.longest = e
	}
	if e.Estimated() {
		p.estimated++
	}
}

// All returns the sample over every pause.
func (p *PauseTimes) All() *stats.Sample { return &p.all }

// Of returns the sample of one pause type; nil if none was seen.
func (p *PauseTimes) Of(t model.PauseType) *stats.Sample { return p.byType[t] }

// Types lists the pause types seen, sorted.
func (p *PauseTimes) Types() []model.PauseType {
	out := make([]model.PauseType, 0, len(p.byType))
	for t := range p.byType {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Percentile estimates the pause duration at quantile q.
func (p *PauseTimes) Percentile(q float64) (float64, error) { return p.quantiles.At(q) }

// Total is the summed pause time in seconds.
func (p *PauseTimes) Total() float64 { return p.all.Sum() }

// Longest returns the longest pause; nil when empty.
func (p *PauseTimes) Longest() *model.GCPause { return p.longest }

// Invalid counts pauses with a negative duration; they are recorded as zero.
func (p *PauseTimes) Invalid() int { return p.invalid }

// HasWarning reports pauses whose timestamp was estimated or whose duration
// was invalid.
func (p *PauseTimes) HasWarning() bool { return p.estimated > 0 || p.invalid > 0 }
func (p *PauseTimes) IsEmpty() bool    { return p.all.Count() == 0 }

// SampleSummary is the serialisable form of a stats.Sample. Statistics the
// sample cannot yet provide are left zero.
type SampleSummary struct {
	Count  int     `json:"count"`
	Total  float64 `json:"total"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"stddev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

func summarize(s *stats.Sample) SampleSummary {
	out := SampleSummary{Count: s.Count(), Total: s.Sum()}
	out.Mean, _ = s.Mean()
	out.StdDev, _ = s.StdDev()
	out.Min, _ = s.Min()
	out.Max, _ = s.Max()
	return out
}

// PauseTimesSummary is the serialisable form of PauseTimes.
type PauseTimesSummary struct {
	All       SampleSummary                     `json:"all"`
	P50       float64                           `json:"p50"`
	P90       float64                           `json:"p90"`
	P99       float64                           `json:"p99"`
	ByType    map[model.PauseType]SampleSummary `json:"by_type"`
	Longest   *model.GCPause                    `json:"longest,omitempty"`
	Estimated int                               `json:"estimated"`
	Invalid   int                               `json:"invalid"`
}

func (p *PauseTimes) Summary() any {
	out := PauseTimesSummary{
		All:       summarize(&p.all),
		ByType:    make(map[model.PauseType]SampleSummary, len(p.byType)),
		Longest:   p.longest,
		Estimated: p.estimated,
		Invalid:   p.invalid,
	}
	out.P50, _ = p.Percentile(0.5)
	out.P90, _ = p.Percentile(0.9)
	out.P99, _ = p.Percentile(0.99)
	for t, s := range p.byType {
		out.ByType[t] = summarize(s)
	}
	return out
}

func pauseTimesFactory(a *aggregator.Aggregator) aggregator.Aggregation {
	p := NewPauseTimes()
	aggregator.Register(a, p.pause)
	return p
}
