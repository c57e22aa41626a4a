package parser

import (
	"github.com/atikulmunna/gclens/internal/diary"
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/rules"
)

const bracketCount = `\s*` + rules.Counter + `\s*`

var (
	// "<uptime>: <vmop> [ total initially_running wait_to_block ]
	//  [ spin block sync cleanup vmop ] page_trap_count"
	safepointRule = rules.New("safepoint statistics",
		`^`+rules.Uptime+`: `+rules.VMOperation+`\s+`+
			`\[`+bracketCount+rules.Counter+`\s+`+rules.Counter+`\s*\]\s+`+
			`\[`+bracketCount+rules.Counter+`\s+`+rules.Counter+`\s+`+rules.Counter+`\s+`+rules.Counter+`\s*\]\s+`+
			rules.Counter+`\s*$`)
	safepointHeaderRule = rules.New("safepoint header",
		`^\s*vmop\s+\[\s*threads:.*\]\s+\[\s*time:.*\]\s+page_trap_count\s*$`)
	safepointFooterRule = rules.New("safepoint footer",
		`^(?:Polling page always armed|\s*(?:`+rules.VMOperation+`|[A-Za-z]+)\s+\d+\s*$|\s*\d+ VM operations coalesced during safepoint|Maximum sync time\s+\d+ ms|Maximum vm operation time \(except for Exit VM operation\)\s+\d+ ms)`)
)

// SafepointParser reads -XX:+PrintSafepointStatistics output. The
// statistics rules themselves are shared with every pre-unified parser,
// since GC logs may interleave them.
type SafepointParser struct {
	machine
	rules *rules.Set[handler]
}

// NewSafepointParser returns a parser publishing on the safepoint topic.
func NewSafepointParser(d *diary.Diary, emit Emit, opts ...Option) *SafepointParser {
	p := &SafepointParser{machine: newMachine(model.SourceSafepoint, d, emit, opts)}
	p.rules = rules.NewSet[handler]()
	p.addPreUnifiedCommon(p.rules)
	return p
}

func (p *SafepointParser) Consume(line model.LogLine) {
	if p.step(line, nil) {
		p.dispatch(p.rules, line.Text)
	}
}

// 1 uptime; 2 vm operation; 3-5 threads; 6-10 times in ms; 11 page traps.
// The timestamp is when the operation was requested, so the pause lasts
// sync + cleanup + vmop from there.
func (m *machine) safepointStatistics(tr *rules.Trace) {
	m.statistics++
	sync, cleanup, vmop := tr.Millis(8), tr.Millis(9), tr.Millis(10)
	m.publish(&model.Safepoint{
		Base:             m.base(model.SourceSafepoint, model.Uptime(tr.Float(1)), true, sync+cleanup+vmop, ""),
		VMOperation:      tr.Group(2),
		TotalThreads:     tr.Int(3),
		InitiallyRunning: tr.Int(4),
		WaitToBlock:      tr.Int(5),
		Spin:             tr.Millis(6),
		Block:            tr.Millis(7),
		Sync:             sync,
		Cleanup:          cleanup,
		VMOp:             vmop,
		PageTrapCount:    tr.Int(11),
	})
}
