package parser

import (
	"github.com/atikulmunna/gclens/internal/model"
	"github.com/atikulmunna/gclens/internal/rules"
)

// Lines shared by every pre-unified dialect, and the stopped-time line that
// unified logs print under the safepoint tag.
var (
	stoppedTimeRule = rules.New("stopped time",
		rules.StampPrefix+`Total time for which application threads were stopped: (\d+[.,]\d+) seconds(?:, Stopping threads took: (\d+[.,]\d+) seconds)?`)
	applicationTimeRule = rules.New("application time",
		rules.StampPrefix+`Application time: \d+[.,]\d+ seconds`)
	bannerRule = rules.New("banner",
		`^(?:(?:Java HotSpot\(TM\)|OpenJDK) .*|Memory: \d+k page.*|CommandLine flags: .*)$`)
	heapDumpRule = rules.New("heap dump",
		`^(?:Heap|\{Heap (?:before|after) GC.*|\}|\s+(?:def new generation|tenured generation|the space|eden space|from space|to space|object space|PSYoungGen|ParOldGen|PSOldGen|par new generation|concurrent mark-sweep generation|concurrent-mark-sweep perm gen|garbage-first heap|region size|Metaspace|class space)\b.*)$`)
	tenuringRule = rules.New("tenuring",
		`^(?:Desired survivor size \d+ bytes, new threshold \d+ \(max \d+\)|- age\s+\d+:\s+\d+ bytes,\s+\d+ total)`)
	cpuRule = rules.New("cpu times", `^\s*`+rules.CPUBreakdown+`\s*$`)
)

// addPreUnifiedCommon registers the shared pre-unified rules on set.
func (m *machine) addPreUnifiedCommon(set *rules.Set[handler]) {
	set.Add(safepointRule, m.safepointStatistics).
		Add(safepointHeaderRule, ignore).
		Add(safepointFooterRule, ignore).
		Add(stoppedTimeRule, m.stoppedTime).
		Add(applicationTimeRule, ignore).
		Add(bannerRule, ignore).
		Add(heapDumpRule, ignore).
		Add(tenuringRule, ignore)
}

// stoppedTime turns -XX:+PrintGCApplicationStoppedTime output into a
// safepoint event. The line is printed once the threads resume.
func (m *machine) stoppedTime(tr *rules.Trace) {
	stamp, ok := tr.Stamp(1, 2)
	total := tr.Float(3)
	stopping := tr.Float(4)
	m.publish(&model.Safepoint{
		Base:        m.endBase(model.SourceSafepoint, stamp, ok, total, ""),
		VMOperation: "application stopped",
		Sync:        stopping,
		VMOp:        total - stopping,
	})
}
