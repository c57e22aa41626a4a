package parser

import (
	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/rules"
)

const (
	optCause   = `(?:` + rules.Cause + ` )?`
	innerStamp = `(?:` + rules.DateStamp + `: )?(?:` + rules.Uptime + `: )?`
	optCPU     = `(?: ` + rules.CPUBreakdown + `)?\s*$`
	permLabel  = `(?:Metaspace|PSPermGen|CMS Perm |Perm )`
)

// Pre-unified serial, parallel and CMS grammar. Group numbers are listed
// next to each handler.
var (
	youngCopyRule = rules.New("young copy",
		rules.StampPrefix+`\[GC `+optCause+innerStamp+`\[(DefNew|ParNew): `+rules.Occupancy+`, `+rules.PauseTime+`\] `+
			rules.Occupancy+`, `+rules.PauseTime+`\]`+optCPU)
	youngPSRule = rules.New("young parallel scavenge",
		rules.StampPrefix+`\[GC `+optCause+`\[PSYoungGen: `+rules.Occupancy+`\] `+rules.Occupancy+`, `+rules.PauseTime+`\]`+optCPU)
	fullPSRule = rules.New("full parallel",
		rules.StampPrefix+`\[Full GC `+optCause+`\[PSYoungGen: `+rules.Occupancy+`\] \[(ParOldGen|PSOldGen): `+rules.Occupancy+`\] `+
			rules.Occupancy+`, \[`+permLabel+`: `+rules.Occupancy+`\], `+rules.PauseTime+`\]`+optCPU)
	fullTenuredRule = rules.New("full tenured",
		rules.StampPrefix+`\[Full GC `+optCause+innerStamp+`\[(Tenured|CMS): `+rules.Occupancy+`, `+rules.PauseTime+`\] `+
			rules.Occupancy+`, \[`+permLabel+`: `+rules.Occupancy+`\], `+rules.PauseTime+`\]`+optCPU)
	cmsInitialMarkRule = rules.New("cms initial mark",
		rules.StampPrefix+`\[GC \(CMS Initial Mark\) \[1 CMS-initial-mark: `+rules.MemorySize+`\(`+rules.MemorySize+`\)\] `+
			rules.MemorySize+`\(`+rules.MemorySize+`\), `+rules.PauseTime+`\]`+optCPU)
	cmsRemarkRule = rules.New("cms remark",
		rules.StampPrefix+`\[GC \(CMS Final Remark\) .*\[1 CMS-remark: `+rules.MemorySize+`\(`+rules.MemorySize+`\)\] `+
			rules.MemorySize+`\(`+rules.MemorySize+`\), `+rules.PauseTime+`\]`+optCPU)
	cmsConcurrentStartRule = rules.New("cms concurrent start",
		rules.StampPrefix+`\[CMS-concurrent-([a-z-]+)-start\]\s*$`)
	cmsConcurrentEndRule = rules.New("cms concurrent end",
		rules.StampPrefix+`\[CMS-concurrent-([a-z-]+?): (\d+[.,]\d+)/(\d+[.,]\d+) secs\]`+optCPU)
)

// GenerationalParser reads pre-unified logs of the serial, parallel and CMS
// collectors.
type GenerationalParser struct {
	machine
	rules *rules.Set[handler]
}

// NewGenerationalParser returns a parser publishing on the family topic.
func NewGenerationalParser(family model.EventSource, d *diary.Diary, emit Emit, opts ...Option) *GenerationalParser {
	p := &GenerationalParser{machine: newMachine(family, d, emit, opts)}
	p.rules = rules.NewSet[handler]().
		Add(youngCopyRule, p.youngCopy).
		Add(youngPSRule, p.youngPS).
		Add(fullPSRule, p.fullPS).
		Add(fullTenuredRule, p.fullTenured).
		Add(cmsInitialMarkRule, p.cmsMark(model.PauseInitialMark)).
		Add(cmsRemarkRule, p.cmsMark(model.PauseRemark)).
		Add(cmsConcurrentStartRule, ignore).
		Add(cmsConcurrentEndRule, p.cmsConcurrent).
		Add(cpuRule, ignore)
	p.addPreUnifiedCommon(p.rules)
	return p
}

func (p *GenerationalParser) Consume(line model.LogLine) {
	if p.step(line, nil) {
		p.dispatch(p.rules, line.Text)
	}
}

func cpuAt(tr *rules.Trace, i int) *model.CPUSummary {
	if !tr.Present(i) {
		return nil
	}
	return tr.CPU(i)
}

// 1,2 stamp; 3 cause; 4,5 inner stamp; 6 generation; 7-9 young; 10 young
// pause; 11-13 heap; 14 pause; 15-17 cpu.
func (p *GenerationalParser) youngCopy(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	p.publish(&model.GCPause{
		Base:  p.base(p.family, stamp, ok, tr.Float(14), tr.Group(3)),
		GCID:  -1,
		Type:  model.PauseYoung,
		Young: tr.Occupancy(7),
		Heap:  tr.Occupancy(11),
		CPU:   cpuAt(tr, 15),
	})
}

// 1,2 stamp; 3 cause; 4-6 young; 7-9 heap; 10 pause; 11-13 cpu.
func (p *GenerationalParser) youngPS(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	p.publish(&model.GCPause{
		Base:  p.base(p.family, stamp, ok, tr.Float(10), tr.Group(3)),
		GCID:  -1,
		Type:  model.PauseYoung,
		Young: tr.Occupancy(4),
		Heap:  tr.Occupancy(7),
		CPU:   cpuAt(tr, 11),
	})
}

// 1,2 stamp; 3 cause; 4-6 young; 7 old name; 8-10 old; 11-13 heap; 14-16
// perm; 17 pause; 18-20 cpu.
func (p *GenerationalParser) fullPS(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	p.publish(&model.GCPause{
		Base:      p.base(p.family, stamp, ok, tr.Float(17), tr.Group(3)),
		GCID:      -1,
		Type:      model.PauseFull,
		Young:     tr.Occupancy(4),
		Tenured:   tr.Occupancy(8),
		Heap:      tr.Occupancy(11),
		Metaspace: tr.Occupancy(14),
		CPU:       cpuAt(tr, 18),
	})
}

// 1,2 stamp; 3 cause; 4,5 inner stamp; 6 old name; 7-9 old; 10 old pause;
// 11-13 heap; 14-16 perm; 17 pause; 18-20 cpu.
func (p *GenerationalParser) fullTenured(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	p.publish(&model.GCPause{
		Base:      p.base(p.family, stamp, ok, tr.Float(17), tr.Group(3)),
		GCID:      -1,
		Type:      model.PauseFull,
		Tenured:   tr.Occupancy(7),
		Heap:      tr.Occupancy(11),
		Metaspace: tr.Occupancy(14),
		CPU:       cpuAt(tr, 18),
	})
}

// 1,2 stamp; 3,4 old occupancy(size); 5,6 heap occupancy(size); 7 pause;
// 8-10 cpu.
func (p *GenerationalParser) cmsMark(kind model.PauseType) handler {
	return func(tr *rules.Trace) {
		stamp, ok := tr.Stamp(1, 2)
		old, oldSize := tr.Memory(3), tr.Memory(4)
		heap, heapSize := tr.Memory(5), tr.Memory(6)
		p.publish(&model.GCPause{
			Base:    p.base(p.family, stamp, ok, tr.Float(7), "CMS "+string(kind)),
			GCID:    -1,
			Type:    kind,
			Tenured: model.NewMemoryPoolSummary(old, old, oldSize),
			Heap:    model.NewMemoryPoolSummary(heap, heap, heapSize),
			CPU:     cpuAt(tr, 8),
		})
	}
}

// 1,2 stamp; 3 phase; 4 cpu secs; 5 wall secs. The line is printed when the
// phase ends.
func (p *GenerationalParser) cmsConcurrent(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	p.publish(&model.ConcurrentPhase{
		Base:    p.endBase(p.family, stamp, ok, tr.Float(5), ""),
		GCID:    -1,
		Phase:   tr.Group(3),
		CPUTime: tr.Float(4),
	})
}
