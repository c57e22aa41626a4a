package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/atikulmunna/gclens/internal/aggregation"
	"github.com/atikulmunna/gclens/internal/jvm"
	"github.com/atikulmunna/gclens/internal/stats"
)

// Renderer writes an analysed JVM to an output stream.
type Renderer interface {
	Render(j *jvm.JavaVirtualMachine) error
}

// New returns the renderer for format ("text" or "json") writing to w.
func New(format string, w io.Writer) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "text":
		return &TextRenderer{w: w}, nil
	case "json":
		return &JSONRenderer{enc: json.NewEncoder(w)}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

// ---------------------------------------------------------------------------
// Text Renderer (terminal report)
// ---------------------------------------------------------------------------

var (
	styleTitle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")) // cyan
	styleLabel = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(13) // gray
	styleWarn  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))           // yellow
	styleFaint = lipgloss.NewStyle().Faint(true)
)

// TextRenderer prints a human-readable report per JVM.
type TextRenderer struct {
	w io.Writer
}

// NewTextRenderer returns a Renderer that writes styled text to stdout.
func NewTextRenderer() *TextRenderer {
	return &TextRenderer{w: os.Stdout}
}

func (r *TextRenderer) Render(j *jvm.JavaVirtualMachine) error {
	rep := NewReport(j)
	var b strings.Builder

	format := "pre-unified"
	if rep.Unified {
		format = "unified"
	}
	fmt.Fprintf(&b, "%s %s\n", styleTitle.Render(rep.Name), styleFaint.Render(rep.Collector+" ("+format+")"))

	runtime := fmt.Sprintf("%s (%s .. %s)", seconds(rep.Runtime), rep.First, rep.Last)
	if rep.Fragment {
		runtime += " " + styleWarn.Render("fragment")
	}
	row(&b, "runtime", runtime)

	if span, ok := jvm.Aggregation[*aggregation.RuntimeSpan](j); ok {
		row(&b, "lines", fmt.Sprintf("%s read, %s events, %s skipped",
			humanize.Comma(int64(span.Lines())), humanize.Comma(int64(span.Events())), humanize.Comma(int64(span.Skipped()))))
	}
	if p, ok := jvm.Aggregation[*aggregation.PauseTimes](j); ok && !p.IsEmpty() {
		row(&b, "pauses", pauseLine(p))
		for _, t := range p.Types() {
			row(&b, "  "+strings.ToLower(string(t)), sampleLine(p.Of(t)))
		}
	}
	if h, ok := jvm.Aggregation[*aggregation.HeapOccupancy](j); ok && !h.IsEmpty() {
		heap := fmt.Sprintf("peak %s of %s, %s reclaimed",
			bytes(h.Peak()), bytes(h.MaxSize()), bytes(h.Reclaimed()))
		if live, err := h.AfterFull().Mean(); err == nil {
			heap += fmt.Sprintf(", live %s", bytes(int64(live)))
		}
		row(&b, "heap", heap)
	}
	if c, ok := jvm.Aggregation[*aggregation.CollectionCounts](j); ok && !c.IsEmpty() {
		row(&b, "collections", countsLine(c.Pauses))
		if len(c.Concurrent) > 0 {
			row(&b, "concurrent", countsLine(c.Concurrent))
		}
	}
	if s, ok := jvm.Aggregation[*aggregation.SafepointSummary](j); ok && !s.IsEmpty() {
		row(&b, "safepoints", fmt.Sprintf("%s, reaching %s",
			sampleLine(s.Total()), seconds(s.TimeToReach().Sum())))
		ops := s.Operations()
		if len(ops) > 5 {
			ops = ops[:5]
		}
		for _, op := range ops {
			row(&b, "  "+op, sampleLine(s.Of(op)))
		}
	}
	if w := rep.Warnings(); len(w) > 0 {
		row(&b, "warnings", styleWarn.Render(strings.Join(w, ", ")))
	}

	_, err := fmt.Fprintln(r.w, b.String())
	return err
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "  %s %s\n", styleLabel.Render(label), value)
}

func pauseLine(p *aggregation.PauseTimes) string {
	line := sampleLine(p.All())
	if p99, err := p.Percentile(0.99); err == nil {
		line += ", p99 " + seconds(p99)
	}
	return line
}

func sampleLine(s *stats.Sample) string {
	if s == nil || s.Count() == 0 {
		return "none"
	}
	mean, _ := s.Mean()
	longest, _ := s.Max()
	line := fmt.Sprintf("%s, total %s, mean %s, max %s",
		humanize.Comma(int64(s.Count())), seconds(s.Sum()), seconds(mean), seconds(longest))
	if sd, err := s.StdDev(); err == nil {
		line += ", stddev " + seconds(sd)
	}
	return line
}

func countsLine[K ~string](m map[K]int) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%d", strings.ToLower(k), m[K(k)])
	}
	return strings.Join(parts, " ")
}

func seconds(v float64) string {
	if v < 1 {
		return fmt.Sprintf("%.2fms", v*1e3)
	}
	return fmt.Sprintf("%.3fs", v)
}

func bytes(n int64) string {
	if n < 0 {
		return "?"
	}
	return humanize.IBytes(uint64(n))
}

// ---------------------------------------------------------------------------
// JSON Renderer (structured output for piping)
// ---------------------------------------------------------------------------

// JSONRenderer prints each report as a single JSON object per line.
type JSONRenderer struct {
	enc *json.Encoder
}

// NewJSONRenderer returns a Renderer that writes JSON lines to stdout.
func NewJSONRenderer() *JSONRenderer {
	return &JSONRenderer{enc: json.NewEncoder(os.Stdout)}
}

func (r *JSONRenderer) Render(j *jvm.JavaVirtualMachine) error {
	return r.enc.Encode(NewReport(j))
}
