package parser

import (
	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/rules"
)

var (
	zgcCycleRule = rules.New("zgc cycle",
		`^`+rules.GCID+` Garbage Collection `+rules.Cause+` `+rules.MemorySize+`\((\d+)%\)->`+rules.MemorySize+`\((\d+)%\)\s*$`)
	zgcPauseRule = rules.New("zgc pause",
		`^`+rules.GCID+` (?:[YyOo]: )?Pause (Mark Start|Mark End|Relocate Start)(?: \(([^)]*)\))? `+rules.UnifiedDuration+`\s*$`)
	zgcConcurrentRule = rules.New("zgc concurrent",
		`^`+rules.GCID+` (?:[yYoO]: )?Concurrent ([A-Za-z ]+?)(?: \([^)]*\))? `+rules.UnifiedDuration+`\s*$`)
)

var zgcPauseTypes = map[string]model.PauseType{
	"Mark Start":     model.PauseMarkStart,
	"Mark End":       model.PauseMarkEnd,
	"Relocate Start": model.PauseRelocateStart,
}

// ZGCParser reads unified ZGC logs.
type ZGCParser struct {
	unified
	rules *rules.Set[handler]
}

// NewZGCParser returns a parser publishing on the ZGC topic.
func NewZGCParser(d *diary.Diary, emit Emit, opts ...Option) *ZGCParser {
	p := &ZGCParser{unified: newUnified(model.SourceZGC, d, emit, opts, "gc", "gc,phases")}
	p.rules = rules.NewSet[handler]().
		Add(zgcCycleRule, p.cycle).
		Add(zgcPauseRule, p.pause).
		Add(zgcConcurrentRule, p.concurrent)
	p.addUnifiedCommon(p.rules)
	return p
}

func (p *ZGCParser) Consume(line model.LogLine) {
	p.consume(line, p.rules, nil)
}

// sizeFromPercent recovers the heap capacity from an occupancy and its share.
func sizeFromPercent(used int64, pct int) int64 {
	if pct <= 0 {
		return -1
	}
	return used * 100 / int64(pct)
}

// 1 gc id; 2 cause; 3 before; 4 before %; 5 after; 6 after %.
func (p *ZGCParser) cycle(tr *rules.Trace) {
	before, after := tr.Memory(3), tr.Memory(5)
	p.publish(&model.ConcurrentPhase{
		Base:  p.at(model.SourceZGC, 0, tr.Group(2)),
		GCID:  tr.Int(1),
		Phase: "Garbage Collection",
		Heap: &model.MemoryPoolSummary{
			OccupancyBefore: before,
			SizeBefore:      sizeFromPercent(before, tr.Int(4)),
			OccupancyAfter:  after,
			SizeAfter:       sizeFromPercent(after, tr.Int(6)),
		},
	})
}

// 1 gc id; 2 type; 3 qualifier; 4 duration.
func (p *ZGCParser) pause(tr *rules.Trace) {
	p.publish(&model.GCPause{
		Base: p.at(model.SourceZGC, tr.Millis(4), tr.Group(3)),
		GCID: tr.Int(1),
		Type: zgcPauseTypes[tr.Group(2)],
	})
}

// 1 gc id; 2 phase; 3 duration.
func (p *ZGCParser) concurrent(tr *rules.Trace) {
	p.publish(&model.ConcurrentPhase{
		Base:  p.at(model.SourceZGC, tr.Millis(3), ""),
		GCID:  tr.Int(1),
		Phase: tr.Group(2),
	})
}
