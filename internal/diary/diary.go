// Package diary records what is known about a GC log's configuration and
// detects the log format and collector from a prefix of its lines.
package diary

import (
	"errors"
	"fmt"
	"sort"

	"github.com/atikulmunna/gclens/internal/model"
)

// Fact is a tri-state value that may move from Unknown to True or False, and
// never back.
type Fact int8

const (
	Unknown Fact = iota
	True
	False
)

func (f Fact) String() string {
	switch f {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

func (f Fact) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

// Key names a diary fact.
type Key string

const (
	Unified              Key = "unified"
	G1                   Key = "g1"
	Serial               Key = "serial"
	Parallel             Key = "parallel"
	CMS                  Key = "cms"
	Shenandoah           Key = "shenandoah"
	ZGC                  Key = "zgc"
	Safepoint            Key = "safepoint"
	DateStamps           Key = "date_stamps"
	UptimeStamps         Key = "uptime_stamps"
	TenuringDistribution Key = "tenuring_distribution"
	CPUTimes             Key = "cpu_times"
)

// collectors maps each collector fact to the event source it selects.
var collectors = map[Key]model.EventSource{
	G1:         model.SourceG1,
	Serial:     model.SourceSerial,
	Parallel:   model.SourceParallel,
	CMS:        model.SourceCMS,
	Shenandoah: model.SourceShenandoah,
	ZGC:        model.SourceZGC,
}

// ErrFactConflict is returned when a decided fact is set to the opposite value.
var ErrFactConflict = errors.New("diary fact already decided")

// Diary is the per-analysis record of discovered configuration facts.
// It is written by the Diarizer and read-only once handed to a parser.
type Diary struct {
	facts       map[Key]Fact
	commandLine string
}

// New returns a diary with every fact Unknown.
func New() *Diary {
	return &Diary{facts: make(map[Key]Fact)}
}

// Get returns the current value of k.
func (d *Diary) Get(k Key) Fact { return d.facts[k] }

// Is reports whether k is known to be true.
func (d *Diary) Is(k Key) bool { return d.facts[k] == True }

// Known reports whether k has been decided.
func (d *Diary) Known(k Key) bool { return d.facts[k] != Unknown }

// Set decides k. Setting a fact to the value it already has is a no-op;
// setting it to the opposite value fails with ErrFactConflict and leaves the
// diary unchanged.
func (d *Diary) Set(k Key, value bool) error {
	want := False
	if value {
		want = True
	}
	switch d.facts[k] {
	case Unknown:
		d.facts[k] = want
		return nil
	case want:
		return nil
	default:
		return fmt.Errorf("%w: %s is %s", ErrFactConflict, k, d.facts[k])
	}
}

// SetIfUnknown decides k only if nothing is known about it yet.
func (d *Diary) SetIfUnknown(k Key, value bool) {
	if !d.Known(k) {
		_ = d.Set(k, value)
	}
}

// SetCollector marks k as the active collector and every other collector
// as inactive. It fails if a different collector was already chosen.
func (d *Diary) SetCollector(k Key) error {
	if _, ok := collectors[k]; !ok {
		return fmt.Errorf("%s is not a collector fact", k)
	}
	if err := d.Set(k, true); err != nil {
		return err
	}
	for other := range collectors {
		if other != k {
			d.SetIfUnknown(other, false)
		}
	}
	return nil
}

// Collector returns the event source of the active collector.
func (d *Diary) Collector() (model.EventSource, bool) {
	for k, src := range collectors {
		if d.Is(k) {
			return src, true
		}
	}
	return 0, false
}

// Family returns the event source whose parser should read the log: the
// collector when one is known, otherwise the safepoint trace.
func (d *Diary) Family() (model.EventSource, bool) {
	if src, ok := d.Collector(); ok {
		return src, true
	}
	if d.Is(Safepoint) {
		return model.SourceSafepoint, true
	}
	return 0, false
}

func (d *Diary) CommandLine() string { return d.commandLine }

// SetCommandLine records the JVM command line. The first value wins.
func (d *Diary) SetCommandLine(cl string) {
	if d.commandLine == "" {
		d.commandLine = cl
	}
}

// Facts returns a copy of all decided facts keyed by name.
func (d *Diary) Facts() map[Key]Fact {
	out := make(map[Key]Fact, len(d.facts))
	for k, v := range d.facts {
		out[k] = v
	}
	return out
}

func (d *Diary) String() string {
	keys := make([]string, 0, len(d.facts))
	for k := range d.facts {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	s := "Diary{"
	for i, k := range keys {
		if i > 0 {
			s += " "
		}
		s += k + "=" + d.facts[Key(k)].String()
	}
	return s + "}"
}
