package model

// Event is a typed runtime event produced by a parser. Events are treated as
// read-only once published on a channel.
type Event interface {
	Source() EventSource
	Timestamp() DateTimeStamp
	// Duration is the elapsed time of the event in decimal seconds.
	Duration() float64
	Cause() string
	// Estimated reports whether the timestamp was inferred from the parser's
	// last known clock because the line carried none.
	Estimated() bool
}

// Base holds the fields every event carries.
type Base struct {
	Src            EventSource   `json:"source"`
	At             DateTimeStamp `json:"timestamp"`
	Elapsed        float64       `json:"duration"`
	GCCause        string        `json:"cause,omitempty"`
	ClockEstimated bool          `json:"estimated,omitempty"`
}

func (b *Base) Source() EventSource      { return b.Src }
func (b *Base) Timestamp() DateTimeStamp { return b.At }
func (b *Base) Duration() float64        { return b.Elapsed }
func (b *Base) Cause() string            { return b.GCCause }
func (b *Base) Estimated() bool          { return b.ClockEstimated }

// End returns the moment the event finished.
func (b *Base) End() DateTimeStamp { return b.At.Add(b.Elapsed) }

// PauseType names the stop-the-world phase of a collector.
type PauseType string

const (
	PauseYoung           PauseType = "Young"
	PauseMixed           PauseType = "Mixed"
	PauseFull            PauseType = "Full"
	PauseInitialMark     PauseType = "Initial Mark"
	PauseRemark          PauseType = "Remark"
	PauseCleanup         PauseType = "Cleanup"
	PauseInitMark        PauseType = "Init Mark"
	PauseFinalMark       PauseType = "Final Mark"
	PauseInitUpdateRefs  PauseType = "Init Update Refs"
	PauseFinalUpdateRefs PauseType = "Final Update Refs"
	PauseDegenerated     PauseType = "Degenerated"
	PauseMarkStart       PauseType = "Mark Start"
	PauseMarkEnd         PauseType = "Mark End"
	PauseRelocateStart   PauseType = "Relocate Start"
)

// GCPause is a stop-the-world collection or collection phase.
type GCPause struct {
	Base
	GCID      int                `json:"gc_id"`
	Type      PauseType          `json:"type"`
	Heap      *MemoryPoolSummary `json:"heap,omitempty"`
	Young     *MemoryPoolSummary `json:"young,omitempty"`
	Tenured   *MemoryPoolSummary `json:"tenured,omitempty"`
	Metaspace *MemoryPoolSummary `json:"metaspace,omitempty"`
	CPU       *CPUSummary        `json:"cpu,omitempty"`
}

// ConcurrentPhase is a collector phase that runs alongside the application.
type ConcurrentPhase struct {
	Base
	GCID  int    `json:"gc_id"`
	Phase string `json:"phase"`
	// CPUTime is the phase's own CPU time where the log reports it
	// (CMS "a/b secs" reports CPU/wall).
	CPUTime float64            `json:"cpu_time,omitempty"`
	Heap    *MemoryPoolSummary `json:"heap,omitempty"`
}

// Safepoint is one JVM safepoint: a global pause that need not be a
// collection. Times are in decimal seconds.
type Safepoint struct {
	Base
	VMOperation      string  `json:"vm_operation"`
	TotalThreads     int     `json:"total_threads"`
	InitiallyRunning int     `json:"initially_running"`
	WaitToBlock      int     `json:"wait_to_block"`
	Spin             float64 `json:"spin"`
	Block            float64 `json:"block"`
	Sync             float64 `json:"sync"`
	Cleanup          float64 `json:"cleanup"`
	VMOp             float64 `json:"vmop"`
	PageTrapCount    int     `json:"page_trap_count"`
}

// JVMTermination is the end-of-data marker. It is published exactly once per
// topic, after every other event of that topic.
type JVMTermination struct {
	Base
	// EstimatedRuntime is the parser's last known clock, including the
	// duration of the final event.
	EstimatedRuntime float64 `json:"estimated_runtime"`
	Lines            int     `json:"lines"`
	Skipped          int     `json:"skipped"`
}
