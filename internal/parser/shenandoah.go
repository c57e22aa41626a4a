package parser

import (
	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/rules"
)

var (
	shenandoahPauseRule = rules.New("shenandoah pause",
		`^`+rules.GCID+` Pause (Init Mark|Final Mark|Init Update Refs|Final Update Refs|Final Roots|Full|Degenerated GC)`+
			`(?: `+rules.Cause+`)?(?: `+rules.Occupancy+`)? `+rules.UnifiedDuration+`\s*$`)
	shenandoahConcurrentRule = rules.New("shenandoah concurrent",
		`^`+rules.GCID+` Concurrent ([a-z ]+?)(?: \([^)]*\))?(?: `+rules.Occupancy+`)? `+rules.UnifiedDuration+`\s*$`)
	shenandoahNoticeRule = rules.New("shenandoah notice",
		`^(?:`+rules.GCID+` )?(?:Trigger|Cancelling GC|Heuristics|Mode|Failed to allocate|Free|Pacer|Soft Max Heap Size|Adaptive CSet Selection|Collectable Garbage|Immediate Garbage|Good progress|Bad progress)\b.*$`)
)

var shenandoahPauseTypes = map[string]model.PauseType{
	"Init Mark":         model.PauseInitMark,
	"Final Mark":        model.PauseFinalMark,
	"Init Update Refs":  model.PauseInitUpdateRefs,
	"Final Update Refs": model.PauseFinalUpdateRefs,
	"Final Roots":       model.PauseFinalUpdateRefs,
	"Full":              model.PauseFull,
	"Degenerated GC":    model.PauseDegenerated,
}

// ShenandoahParser reads unified Shenandoah logs.
type ShenandoahParser struct {
	unified
	rules *rules.Set[handler]
}

// NewShenandoahParser returns a parser publishing on the Shenandoah topic.
func NewShenandoahParser(d *diary.Diary, emit Emit, opts ...Option) *ShenandoahParser {
	p := &ShenandoahParser{unified: newUnified(model.SourceShenandoah, d, emit, opts, "gc", "gc,ergo")}
	p.rules = rules.NewSet[handler]().
		Add(shenandoahPauseRule, p.pause).
		Add(shenandoahConcurrentRule, p.concurrent).
		Add(shenandoahNoticeRule, ignore)
	p.addUnifiedCommon(p.rules)
	return p
}

func (p *ShenandoahParser) Consume(line model.LogLine) {
	p.consume(line, p.rules, nil)
}

// 1 gc id; 2 type; 3 qualifier; 4-6 heap; 7 duration.
func (p *ShenandoahParser) pause(tr *rules.Trace) {
	e := &model.GCPause{
		Base: p.at(model.SourceShenandoah, tr.Millis(7), tr.Group(3)),
		GCID: tr.Int(1),
		Type: shenandoahPauseTypes[tr.Group(2)],
	}
	if tr.Present(4) {
		e.Heap = tr.Occupancy(4)
	}
	p.publish(e)
}

// 1 gc id; 2 phase; 3-5 heap; 6 duration.
func (p *ShenandoahParser) concurrent(tr *rules.Trace) {
	e := &model.ConcurrentPhase{
		Base:  p.at(model.SourceShenandoah, tr.Millis(6), ""),
		GCID:  tr.Int(1),
		Phase: tr.Group(2),
	}
	if tr.Present(3) {
		e.Heap = tr.Occupancy(3)
	}
	p.publish(e)
}
