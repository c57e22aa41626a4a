package diary

import (
	"errors"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/atikulmunna/gclens/internal/rules"
)

// DefaultBudget is the number of non-blank lines inspected before detection
// gives up.
const DefaultBudget = 25

// ErrUnknownFormat is returned when no collector could be identified within
// the detection budget.
var ErrUnknownFormat = errors.New("no garbage collector identified")

// probe decides a fact when its needle occurs in a line that does not
// also contain unless.
type probe struct {
	needle    string
	collector Key
	unless    string
}

func (p probe) fires(text string) bool {
	if !strings.Contains(text, p.needle) {
		return false
	}
	return p.unless == "" || !strings.Contains(text, p.unless)
}

// Probes are checked in order; the first collector decided wins.
var (
	unifiedProbes = []probe{
		{"Using G1", G1, ""},
		{"Using Serial", Serial, ""},
		{"Using Parallel", Parallel, ""},
		{"Using Concurrent Mark Sweep", CMS, ""},
		{"Using Shenandoah", Shenandoah, ""},
		{"Using The Z Garbage Collector", ZGC, ""},
		{"Initializing The Z Garbage Collector", ZGC, ""},
		// Headerless logs, e.g. later files of a rotation set. G1 causes
		// come first: JDK 9-11 G1 also prints "Pause Initial Mark".
		{"G1 Evacuation Pause", G1, ""},
		{"G1 Humongous Allocation", G1, ""},
		{"G1 Compaction Pause", G1, ""},
		{"G1 Preventive Collection", G1, ""},
		{"G1 Periodic Collection", G1, ""},
		{"Pause Young (Normal)", G1, ""},
		{"Pause Young (Concurrent Start)", G1, ""},
		{"Pause Young (Prepare Mixed)", G1, ""},
		{"Pause Init Mark", Shenandoah, ""},
		{"Pause Mark Start", ZGC, ""},
		{"Pause Full (Ergonomics)", Parallel, ""},
		// gc,heap lines name the generations.
		{"PSYoungGen:", Parallel, ""},
		{"ParOldGen:", Parallel, ""},
		{"PSOldGen:", Parallel, ""},
		{"DefNew:", Serial, ""},
		{"Tenured:", Serial, ""},
		{"ParNew:", CMS, ""},
		{"Pause Initial Mark", CMS, "G1 "},
	}
	preUnifiedProbes = []probe{
		{"[PSYoungGen", Parallel, ""},
		{"[ParOldGen", Parallel, ""},
		{"[PSOldGen", Parallel, ""},
		{"[ParNew", CMS, ""},
		{"CMS-concurrent", CMS, ""},
		{"CMS Initial Mark", CMS, ""},
		{"concurrent mark-sweep generation", CMS, ""},
		{"[DefNew", Serial, ""},
		{"[Tenured", Serial, ""},
		{"G1 Evacuation Pause", G1, ""},
		{"[GC pause (", G1, ""},
		{"garbage-first heap", G1, ""},
		{"[GC concurrent-", G1, ""},
		{"Shenandoah", Shenandoah, ""},
	}
	flagProbes = []probe{
		{"-XX:+UseG1GC", G1, ""},
		{"-XX:+UseSerialGC", Serial, ""},
		{"-XX:+UseParallelGC", Parallel, ""},
		{"-XX:+UseParallelOldGC", Parallel, ""},
		{"-XX:+UseConcMarkSweepGC", CMS, ""},
		{"-XX:+UseShenandoahGC", Shenandoah, ""},
		{"-XX:+UseZGC", ZGC, ""},
	}

	commandLineRe      = regexp.MustCompile(`(?:CommandLine flags|Command Line|JVM Args):\s*(.*)$`)
	safepointStatsRe   = regexp.MustCompile(`^` + rules.Uptime + `: ` + rules.VMOperation + `\s+\[`)
	safepointHeaderRe  = regexp.MustCompile(`^\s*vmop\s+\[\s*threads:`)
	unifiedSafepointRe = regexp.MustCompile(`^Safepoint "[^"]+"`)
	preUnifiedUptimeRe = regexp.MustCompile(`^(?:` + rules.DateStamp + `: )?` + rules.Uptime + `: `)
	preUnifiedDateRe   = regexp.MustCompile(`^` + rules.DateStamp + `: `)
)

// Diarizer inspects the first lines of a log and fills a Diary.
type Diarizer struct {
	budget int
	seen   int
	diary  *Diary
	logger *zap.Logger
}

// NewDiarizer returns a Diarizer that inspects at most budget non-blank lines.
// A non-positive budget selects DefaultBudget.
func NewDiarizer(budget int, logger *zap.Logger) *Diarizer {
	if budget <= 0 {
		budget = DefaultBudget
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Diarizer{budget: budget, diary: New(), logger: logger}
}

// Complete reports whether detection needs no more lines, either because
// format and collector are both decided or because the budget is spent.
func (z *Diarizer) Complete() bool {
	if z.seen >= z.budget {
		return true
	}
	_, collector := z.diary.Collector()
	return collector && z.diary.Known(Unified)
}

// Diarize feeds one line and reports whether detection is complete.
func (z *Diarizer) Diarize(line string) bool {
	if z.Complete() {
		return true
	}
	if strings.TrimSpace(line) == "" {
		return false
	}
	z.seen++

	if d, msg, ok := rules.SplitDecorators(line); ok {
		z.record(Unified, true)
		z.unified(d, msg)
	} else {
		z.preUnified(line)
	}
	return z.Complete()
}

// Diary returns the diary being filled. Callers must not mutate it while
// detection is in progress.
func (z *Diarizer) Diary() *Diary { return z.diary }

// Finish closes detection. Undecided collector and format facts become
// False. ErrUnknownFormat is returned when neither a collector nor a
// safepoint trace was identified.
//
// Once a collector is known, an undecided Safepoint fact stays Unknown:
// statistics may be interleaved with GC output past the detected prefix,
// and only the parser sees them.
func (z *Diarizer) Finish() (*Diary, error) {
	z.diary.SetIfUnknown(Unified, false)
	for k := range collectors {
		z.diary.SetIfUnknown(k, false)
	}
	if _, ok := z.diary.Collector(); !ok {
		z.diary.SetIfUnknown(Safepoint, false)
	}
	if _, ok := z.diary.Family(); !ok {
		return z.diary, ErrUnknownFormat
	}
	return z.diary, nil
}

func (z *Diarizer) unified(d rules.Decorators, msg string) {
	if !d.Date.IsZero() {
		z.record(DateStamps, true)
	}
	if d.HasUptime {
		z.record(UptimeStamps, true)
	}
	if z.commandLine(msg) {
		return
	}
	if d.HasTag("safepoint") || unifiedSafepointRe.MatchString(msg) {
		z.record(Safepoint, true)
	}
	if d.HasTag("age") || strings.HasPrefix(msg, "Desired survivor size") {
		z.record(TenuringDistribution, true)
	}
	z.probe(unifiedProbes, msg)
}

func (z *Diarizer) preUnified(line string) {
	if z.commandLine(line) {
		return
	}
	if safepointStatsRe.MatchString(line) || safepointHeaderRe.MatchString(line) {
		z.record(Safepoint, true)
		return
	}
	if preUnifiedDateRe.MatchString(line) {
		z.record(DateStamps, true)
	}
	if preUnifiedUptimeRe.MatchString(line) {
		z.record(UptimeStamps, true)
	}
	if strings.Contains(line, "Desired survivor size") {
		z.record(TenuringDistribution, true)
	}
	if strings.Contains(line, "[Times: user=") {
		z.record(CPUTimes, true)
	}
	if z.probe(preUnifiedProbes, line) {
		z.record(Unified, false)
	}
}

// commandLine captures a JVM command line and decides the collector from its
// flags when possible.
func (z *Diarizer) commandLine(line string) bool {
	m := commandLineRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	z.diary.SetCommandLine(strings.TrimSpace(m[1]))
	z.probe(flagProbes, m[1])
	return true
}

func (z *Diarizer) probe(probes []probe, text string) bool {
	for _, p := range probes {
		if p.fires(text) {
			if err := z.diary.SetCollector(p.collector); err != nil {
				z.logger.Debug("ignoring contradicting collector probe",
					zap.String("needle", p.needle), zap.Error(err))
				continue
			}
			return true
		}
	}
	return false
}

func (z *Diarizer) record(k Key, v bool) {
	if err := z.diary.Set(k, v); err != nil {
		z.logger.Debug("ignoring contradicting fact", zap.Error(err))
	}
}

// Detect runs a Diarizer over lines and finishes it.
func Detect(lines []string, budget int, logger *zap.Logger) (*Diary, error) {
	z := NewDiarizer(budget, logger)
	for _, l := range lines {
		if z.Diarize(l) {
			break
		}
	}
	return z.Finish()
}
