package parser

import (
	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/rules"
)

var (
	g1PauseRule = rules.New("g1 pause",
		rules.StampPrefix+`\[GC pause `+rules.Cause+` \((young|mixed)\)(?: \((?:initial-mark|to-space exhausted|to-space overflow)\))*(?: `+rules.Occupancy+`)?, `+rules.PauseTime+`\]`+optCPU)
	g1FullRule = rules.New("g1 full",
		rules.StampPrefix+`\[Full GC `+rules.Cause+`\s+`+rules.Occupancy+`(?:, \[Metaspace: `+rules.Occupancy+`\])?, `+rules.PauseTime+`\]`+optCPU)
	g1RemarkRule = rules.New("g1 remark",
		rules.StampPrefix+`\[GC remark\b.*, `+rules.PauseTime+`\]`+optCPU)
	g1CleanupRule = rules.New("g1 cleanup",
		rules.StampPrefix+`\[GC cleanup `+rules.Occupancy+`, `+rules.PauseTime+`\]`+optCPU)
	g1ConcurrentStartRule = rules.New("g1 concurrent start",
		rules.StampPrefix+`\[GC concurrent-([a-z-]+?)-start\]\s*$`)
	g1ConcurrentEndRule = rules.New("g1 concurrent end",
		rules.StampPrefix+`\[GC concurrent-([a-z-]+?)-end, `+rules.PauseTime+`\]\s*$`)
	g1ConcurrentAbortRule = rules.New("g1 concurrent abort",
		rules.StampPrefix+`\[GC concurrent-([a-z-]+?)-abort\]\s*$`)
	g1HeapRule = rules.New("g1 heap detail",
		`^\s*\[Eden: `+rules.SizedOccupancy+` Survivors: `+rules.MemorySize+`->`+rules.MemorySize+` Heap: `+rules.SizedOccupancy+`\]`+
			`(?:, \[Metaspace: `+rules.Occupancy+`\])?\s*$`)
	g1DetailRule = rules.New("g1 worker detail",
		`^\s+\[?(?:Parallel Time|GC Worker|Ext Root Scanning|Update RS|Processed Buffers|Scan RS|Code Root|Object Copy|Termination|Clear CT|Other|Choose CSet|Ref Proc|Ref Enq|Redirty Cards|Humongous|Free CSet|Evacuation Failure|String Dedup|Root Region Scan|Expand Heap|Sum|Min|Avg|Max|Diff)\b.*$`)
)

// G1Parser reads pre-unified G1 logs. With -XX:+PrintGCDetails a pause is
// spread over several lines; it is held pending until its heap detail and
// [Times: ...] lines arrive, or until the next event or end of data.
type G1Parser struct {
	machine
	rules   *rules.Set[handler]
	pending *model.GCPause
}

// NewG1Parser returns a parser publishing on the G1 topic.
func NewG1Parser(d *diary.Diary, emit Emit, opts ...Option) *G1Parser {
	p := &G1Parser{machine: newMachine(model.SourceG1, d, emit, opts)}
	p.rules = rules.NewSet[handler]().
		Add(g1PauseRule, p.pause).
		Add(g1FullRule, p.full).
		Add(g1RemarkRule, p.remark).
		Add(g1CleanupRule, p.cleanup).
		Add(g1ConcurrentStartRule, ignore).
		Add(g1ConcurrentEndRule, p.concurrentEnd).
		Add(g1ConcurrentAbortRule, p.concurrentAbort).
		Add(g1HeapRule, p.heap).
		Add(g1DetailRule, ignore).
		Add(cpuRule, p.cpu)
	p.addPreUnifiedCommon(p.rules)
	return p
}

func (p *G1Parser) Consume(line model.LogLine) {
	if p.step(line, p.flush) {
		p.dispatch(p.rules, line.Text)
	}
}

// hold makes e the pending pause, publishing any earlier one first. A pause
// whose line already carried CPU times is complete and goes out at once.
func (p *G1Parser) hold(e *model.GCPause) {
	p.flush()
	if e.CPU != nil {
		p.publish(e)
		return
	}
	p.pending = e
}

func (p *G1Parser) flush() {
	if p.pending != nil {
		p.publish(p.pending)
		p.pending = nil
	}
}

func pauseType(kind string) model.PauseType {
	if kind == "mixed" {
		return model.PauseMixed
	}
	return model.PauseYoung
}

// 1,2 stamp; 3 cause; 4 young|mixed; 5-7 heap; 8 pause; 9-11 cpu.
func (p *G1Parser) pause(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	e := &model.GCPause{
		Base: p.base(model.SourceG1, stamp, ok, tr.Float(8), tr.Group(3)),
		GCID: -1,
		Type: pauseType(tr.Group(4)),
		CPU:  cpuAt(tr, 9),
	}
	if tr.Present(5) {
		e.Heap = tr.Occupancy(5)
	}
	p.hold(e)
}

// 1,2 stamp; 3 cause; 4-6 heap; 7-9 metaspace; 10 pause; 11-13 cpu.
func (p *G1Parser) full(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	e := &model.GCPause{
		Base: p.base(model.SourceG1, stamp, ok, tr.Float(10), tr.Group(3)),
		GCID: -1,
		Type: model.PauseFull,
		Heap: tr.Occupancy(4),
		CPU:  cpuAt(tr, 11),
	}
	if tr.Present(7) {
		e.Metaspace = tr.Occupancy(7)
	}
	p.hold(e)
}

// 1,2 stamp; 3 pause; 4-6 cpu.
func (p *G1Parser) remark(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	p.hold(&model.GCPause{
		Base: p.base(model.SourceG1, stamp, ok, tr.Float(3), "G1 Remark"),
		GCID: -1,
		Type: model.PauseRemark,
		CPU:  cpuAt(tr, 4),
	})
}

// 1,2 stamp; 3-5 heap; 6 pause; 7-9 cpu.
func (p *G1Parser) cleanup(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	p.hold(&model.GCPause{
		Base: p.base(model.SourceG1, stamp, ok, tr.Float(6), "G1 Cleanup"),
		GCID: -1,
		Type: model.PauseCleanup,
		Heap: tr.Occupancy(3),
		CPU:  cpuAt(tr, 7),
	})
}

// 1,2 stamp; 3 phase; 4 duration.
func (p *G1Parser) concurrentEnd(tr *rules.Trace) {
	p.flush()
	stamp, ok := tr.Stamp(1, 2)
	p.publish(&model.ConcurrentPhase{
		Base:  p.endBase(model.SourceG1, stamp, ok, tr.Float(4), ""),
		GCID:  -1,
		Phase: tr.Group(3),
	})
}

// 1,2 stamp; 3 phase.
func (p *G1Parser) concurrentAbort(tr *rules.Trace) {
	p.flush()
	stamp, ok := tr.Stamp(1, 2)
	p.publish(&model.ConcurrentPhase{
		Base:  p.base(model.SourceG1, stamp, ok, 0, "abort"),
		GCID:  -1,
		Phase: tr.Group(3) + "-abort",
	})
}

// 1-4 eden; 5,6 survivors; 7-10 heap; 11-13 metaspace after a full GC.
func (p *G1Parser) heap(tr *rules.Trace) {
	if p.pending == nil {
		return
	}
	p.pending.Young = tr.SizedOccupancy(1)
	p.pending.Heap = tr.SizedOccupancy(7)
	if tr.Present(11) {
		p.pending.Metaspace = tr.Occupancy(11)
	}
}

// 1-3 cpu. Closes the pending pause.
func (p *G1Parser) cpu(tr *rules.Trace) {
	if p.pending == nil {
		return
	}
	p.pending.CPU = tr.CPU(1)
	p.flush()
}
