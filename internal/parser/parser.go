// Package parser turns GC log lines into typed runtime events. There is one
// parser per collector family; each consumes lines strictly in order and
// emits zero or more events per line.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/rules"
)

// Parser consumes the lines of one log, in file order.
type Parser interface {
	// Consume handles one line. The end-of-data sentinel terminates the
	// parser: it emits a single JVMTermination and ignores later lines.
	Consume(line model.LogLine)
	// Family is the collector family the parser reads.
	Family() model.EventSource
	// Lines is the number of lines consumed, excluding the sentinel.
	Lines() int
	// Skipped is the number of lines no rule recognised.
	Skipped() int
	// Filtered is the number of unified lines dropped for their tag set
	// before any rule saw them. They count as neither matched nor skipped.
	Filtered() int
	// Observed reports diary facts decided by what the parser read after
	// detection ended, such as safepoint statistics interleaved with GC
	// output.
	Observed() map[diary.Key]bool
	Terminated() bool
}

// Emit receives events from a parser.
type Emit func(model.Event)

// ErrUnsupported is returned by New when no parser reads the detected
// combination of format and collector.
var ErrUnsupported = errors.New("unsupported log format")

// Option configures a parser.
type Option func(*machine)

// WithLogger sets the logger used for skipped-line diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(m *machine) {
		if l != nil {
			m.logger = l
		}
	}
}

// New returns the parser for the family and format recorded in d.
func New(d *diary.Diary, emit Emit, opts ...Option) (Parser, error) {
	fam, ok := d.Family()
	if !ok {
		return nil, fmt.Errorf("%w: no collector in diary", ErrUnsupported)
	}
	if d.Is(diary.Unified) {
		switch fam {
		case model.SourceShenandoah:
			return NewShenandoahParser(d, emit, opts...), nil
		case model.SourceZGC:
			return NewZGCParser(d, emit, opts...), nil
		default:
			return NewUnifiedParser(fam, d, emit, opts...), nil
		}
	}
	switch fam {
	case model.SourceSerial, model.SourceParallel, model.SourceCMS:
		return NewGenerationalParser(fam, d, emit, opts...), nil
	case model.SourceG1:
		return NewG1Parser(d, emit, opts...), nil
	case model.SourceSafepoint:
		return NewSafepointParser(d, emit, opts...), nil
	}
	return nil, fmt.Errorf("%w: pre-unified %s", ErrUnsupported, fam)
}

// handler reacts to a matched rule.
type handler func(tr *rules.Trace)

// ignore is the handler for lines that are recognised but carry nothing.
func ignore(*rules.Trace) {}

// machine is the state shared by every parser: the last known clock, line
// and skip counters, and the exactly-once termination.
type machine struct {
	family     model.EventSource
	diary      *diary.Diary
	emit       Emit
	logger     *zap.Logger
	skipLog    rate.Sometimes
	clock      model.DateTimeStamp
	lastEnd    model.DateTimeStamp
	current    model.LogLine
	lines      int
	skipped    int
	filtered   int
	statistics int
	terminated bool
}

func newMachine(family model.EventSource, d *diary.Diary, emit Emit, opts []Option) machine {
	m := machine{
		family:  family,
		diary:   d,
		emit:    emit,
		logger:  zap.NewNop(),
		skipLog: rate.Sometimes{First: 5, Interval: 10 * time.Second},
	}
	for _, o := range opts {
		o(&m)
	}
	return m
}

func (m *machine) Family() model.EventSource { return m.family }
func (m *machine) Lines() int                { return m.lines }
func (m *machine) Skipped() int              { return m.skipped }
func (m *machine) Filtered() int             { return m.filtered }
func (m *machine) Terminated() bool          { return m.terminated }

func (m *machine) Observed() map[diary.Key]bool {
	return map[diary.Key]bool{diary.Safepoint: m.statistics > 0}
}

// step runs the shared part of Consume. It returns false when the line needs
// no dispatch: the sentinel, a blank line, or any line after termination.
// flush is called before termination so that pending events go out first.
func (m *machine) step(line model.LogLine, flush func()) bool {
	if m.terminated {
		return false
	}
	if line.IsEndOfData() {
		if flush != nil {
			flush()
		}
		m.terminate()
		return false
	}
	m.lines++
	m.current = line
	return strings.TrimSpace(line.Text) != ""
}

// dispatch runs the first rule of set matching text, or counts a skip.
func (m *machine) dispatch(set *rules.Set[handler], text string) {
	h, tr, ok := set.Match(text)
	if !ok {
		m.skip()
		return
	}
	h(tr)
}

func (m *machine) skip() {
	m.skipped++
	m.skipLog.Do(func() {
		m.logger.Debug("unrecognised line",
			zap.Stringer("family", m.family),
			zap.Int("line", m.current.Number),
			zap.String("text", m.current.Text))
	})
}

// stamp returns the event time for a line. When the line had no time, the
// last known clock is used and estimated is true.
func (m *machine) stamp(t model.DateTimeStamp, ok bool) (at model.DateTimeStamp, estimated bool) {
	if ok {
		if m.clock.IsZero() || !t.Before(m.clock) {
			m.clock = t
		}
		return t, false
	}
	return m.clock, true
}

// base builds the common event fields for an event that started at t.
func (m *machine) base(src model.EventSource, t model.DateTimeStamp, ok bool, duration float64, cause string) model.Base {
	at, est := m.stamp(t, ok)
	return model.Base{Src: src, At: at, Elapsed: duration, GCCause: cause, ClockEstimated: est}
}

// endBase is base for lines printed when the event finished: the start is
// the line's time minus the duration.
func (m *machine) endBase(src model.EventSource, t model.DateTimeStamp, ok bool, duration float64, cause string) model.Base {
	at, est := m.stamp(t, ok)
	if !est {
		at = at.Add(-duration)
	}
	return model.Base{Src: src, At: at, Elapsed: duration, GCCause: cause, ClockEstimated: est}
}

// publish sends e downstream and advances the end-of-last-event clock.
func (m *machine) publish(e model.Event) {
	if m.terminated {
		return
	}
	end := e.Timestamp().Add(e.Duration())
	if m.lastEnd.IsZero() || m.lastEnd.Before(end) {
		m.lastEnd = end
	}
	m.emit(e)
}

func (m *machine) terminate() {
	if m.terminated {
		return
	}
	runtime := m.clock
	if runtime.IsZero() || runtime.Before(m.lastEnd) {
		runtime = m.lastEnd
	}
	m.emit(&model.JVMTermination{
		Base:             model.Base{Src: m.family, At: m.clock},
		EstimatedRuntime: runtime.Seconds(),
		Lines:            m.lines,
		Skipped:          m.skipped,
	})
	m.terminated = true
	if m.skipped > 0 {
		m.logger.Info("parser skipped unrecognised lines",
			zap.Stringer("family", m.family),
			zap.Int("skipped", m.skipped),
			zap.Int("lines", m.lines))
	}
}
