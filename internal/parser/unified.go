package parser

import (
	"strings"

	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/rules"
)

// Rules applied to the message part of unified lines, after the
// decorators are split off.
var (
	unifiedSafepointRule = rules.New("unified safepoint",
		`^Safepoint "([^"]+)", Time since last: (\d+) ns, Reaching safepoint: (\d+) ns,(?: Cleanup: (\d+) ns,)? At safepoint: (\d+) ns, Total: (\d+) ns\s*$`)
	unifiedStoppedRule = rules.New("unified stopped time",
		`^Total time for which application threads were stopped: (\d+[.,]\d+) seconds(?:, Stopping threads took: (\d+[.,]\d+) seconds)?\s*$`)
	unifiedApplicationTimeRule = rules.New("unified application time",
		`^Application time: \d+[.,]\d+ seconds\s*$`)
	usingRule = rules.New("using collector", `^Using [A-Za-z0-9 ]+$`)

	unifiedPauseRule = rules.New("unified pause",
		`^`+rules.GCID+` Pause (Young|Full|Remark|Cleanup|Initial Mark)`+
			`(?: \((Normal|Concurrent Start|Concurrent Mark|Prepare Mixed|Mixed|Concurrent End)\))?`+
			`(?: `+rules.Cause+`)? `+rules.Occupancy+` `+rules.UnifiedDuration+`\s*$`)
	unifiedConcurrentRule = rules.New("unified concurrent",
		`^`+rules.GCID+` Concurrent ([A-Za-z ]+?)(?: \([^)]*\))?(?: `+rules.Occupancy+`)? `+rules.UnifiedDuration+`\s*$`)
	unifiedPhaseStartRule = rules.New("unified phase start",
		`^`+rules.GCID+` (?:Concurrent|Pause) [A-Za-z ]+(?: \([^)]*\))*$`)
)

// unified is the machinery shared by the unified-format parsers: decorator
// splitting, tag filtering and the safepoint lines every unified log may carry.
type unified struct {
	machine
	// interest lists the tag sets, joined by ",", whose lines are
	// dispatched. Lines with other tags are recognised and dropped.
	interest map[string]bool
	deco     rules.Decorators
}

func newUnified(family model.EventSource, d *diary.Diary, emit Emit, opts []Option, tags ...string) unified {
	u := unified{
		machine:  newMachine(family, d, emit, opts),
		interest: map[string]bool{"safepoint": true},
	}
	for _, t := range tags {
		u.interest[t] = true
	}
	return u
}

func (u *unified) addUnifiedCommon(set *rules.Set[handler]) {
	set.Add(unifiedSafepointRule, u.safepoint).
		Add(unifiedStoppedRule, u.stopped).
		Add(unifiedApplicationTimeRule, ignore).
		Add(usingRule, ignore).
		Add(unifiedPhaseStartRule, ignore)
}

// consume dispatches one line. Lines whose tag set is outside the parser's
// interest, such as gc,start or gc,heap, are counted as filtered and never
// reach the rules, so they are not skipped.
func (u *unified) consume(line model.LogLine, set *rules.Set[handler], flush func()) {
	if !u.step(line, flush) {
		return
	}
	d, msg, ok := rules.SplitDecorators(line.Text)
	if !ok {
		u.skip()
		return
	}
	if len(d.Tags) > 0 && !u.interest[strings.Join(d.Tags, ",")] {
		u.filtered++
		return
	}
	u.deco = d
	u.dispatch(set, msg)
}

// at returns the start of an event whose line was printed when it ended.
func (u *unified) at(src model.EventSource, duration float64, cause string) model.Base {
	stamp, ok := u.deco.Stamp()
	return u.endBase(src, stamp, ok, duration, cause)
}

// 1 operation; 2 since last; 3 reaching; 4 cleanup; 5 at safepoint; 6 total.
// All in nanoseconds.
func (u *unified) safepoint(tr *rules.Trace) {
	ns := func(i int) float64 { return float64(tr.Int(i)) / 1e9 }
	u.statistics++
	u.publish(&model.Safepoint{
		Base:        u.at(model.SourceSafepoint, ns(6), ""),
		VMOperation: tr.Group(1),
		Sync:        ns(3),
		Cleanup:     ns(4),
		VMOp:        ns(5),
	})
}

// 1 total; 2 stopping.
func (u *unified) stopped(tr *rules.Trace) {
	total, stopping := tr.Float(1), tr.Float(2)
	u.publish(&model.Safepoint{
		Base:        u.at(model.SourceSafepoint, total, ""),
		VMOperation: "application stopped",
		Sync:        stopping,
		VMOp:        total - stopping,
	})
}

// UnifiedParser reads unified logs of the serial, parallel, CMS and G1
// collectors, and unified safepoint-only logs.
type UnifiedParser struct {
	unified
	rules *rules.Set[handler]
}

// NewUnifiedParser returns a parser publishing collector events on the
// family topic and safepoints on the safepoint topic.
func NewUnifiedParser(family model.EventSource, d *diary.Diary, emit Emit, opts ...Option) *UnifiedParser {
	p := &UnifiedParser{unified: newUnified(family, d, emit, opts, "gc")}
	p.rules = rules.NewSet[handler]().
		Add(unifiedPauseRule, p.pause).
		Add(unifiedConcurrentRule, p.concurrent)
	p.addUnifiedCommon(p.rules)
	return p
}

func (p *UnifiedParser) Consume(line model.LogLine) {
	p.consume(line, p.rules, nil)
}

var unifiedPauseTypes = map[string]model.PauseType{
	"Young":        model.PauseYoung,
	"Full":         model.PauseFull,
	"Remark":       model.PauseRemark,
	"Cleanup":      model.PauseCleanup,
	"Initial Mark": model.PauseInitialMark,
}

// 1 gc id; 2 type; 3 G1 subtype; 4 cause; 5-7 heap; 8 duration.
func (p *UnifiedParser) pause(tr *rules.Trace) {
	kind := unifiedPauseTypes[tr.Group(2)]
	if kind == model.PauseYoung && tr.Group(3) == "Mixed" {
		kind = model.PauseMixed
	}
	p.publish(&model.GCPause{
		Base: p.at(p.family, tr.Millis(8), tr.Group(4)),
		GCID: tr.Int(1),
		Type: kind,
		Heap: tr.Occupancy(5),
	})
}

// 1 gc id; 2 phase; 3-5 heap; 6 duration.
func (p *UnifiedParser) concurrent(tr *rules.Trace) {
	e := &model.ConcurrentPhase{
		Base:  p.at(p.family, tr.Millis(6), ""),
		GCID:  tr.Int(1),
		Phase: tr.Group(2),
	}
	if tr.Present(3) {
		e.Heap = tr.Occupancy(3)
	}
	p.publish(e)
}
