package output

import (
	"sort"

	"github.com/atikulmunna/gclens/internal/aggregation"
	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/jvm"
	"github.com/atikulmunna/gclens/internal/model"
)

// Report is the serialisable view of an analysed JVM.
type Report struct {
	Name         string                   `json:"name"`
	Collector    string                   `json:"collector"`
	Unified      bool                     `json:"unified"`
	CommandLine  string                   `json:"command_line,omitempty"`
	First        model.DateTimeStamp      `json:"first_event"`
	Last         model.DateTimeStamp      `json:"last_event"`
	Runtime      float64                  `json:"runtime_seconds"`
	Fragment     bool                     `json:"fragment"`
	Facts        map[diary.Key]diary.Fact `json:"facts"`
	Aggregations []AggregationReport      `json:"aggregations"`
}

type AggregationReport struct {
	Name    string `json:"name"`
	Warning bool   `json:"warning"`
	Empty   bool   `json:"empty"`
	Summary any    `json:"summary,omitempty"`
}

// NewReport flattens j. Aggregations are ordered by name.
func NewReport(j *jvm.JavaVirtualMachine) Report {
	r := Report{
		Name:        j.Name(),
		Collector:   collectorName(j),
		Unified:     j.IsUnified(),
		CommandLine: j.CommandLine(),
		First:       j.TimeOfFirstEvent(),
		Last:        j.TimeOfLastEvent(),
		Runtime:     j.RuntimeDuration(),
		Fragment:    j.IsFragment(),
		Facts:       j.Facts(),
	}
	for _, n := range j.Aggregations() {
		ar := AggregationReport{
			Name:    n.Name,
			Warning: n.Aggregation.HasWarning(),
			Empty:   n.Aggregation.IsEmpty(),
		}
		if s, ok := n.Aggregation.(aggregation.Summarizer); ok && !ar.Empty {
			ar.Summary = s.Summary()
		}
		r.Aggregations = append(r.Aggregations, ar)
	}
	sort.Slice(r.Aggregations, func(a, b int) bool { return r.Aggregations[a].Name < r.Aggregations[b].Name })
	return r
}

// Warnings names the aggregations that raised a warning.
func (r Report) Warnings() []string {
	var out []string
	for _, a := range r.Aggregations {
		if a.Warning {
			out = append(out, a.Name)
		}
	}
	return out
}

func collectorName(j *jvm.JavaVirtualMachine) string {
	if c, ok := j.Collector(); ok {
		return c.String()
	}
	if j.HasSafepointStatistics() {
		return model.SourceSafepoint.String()
	}
	return "unknown"
}
