package rules

import "strings"

// Grammar fragments shared by the collector rule sets. Each fragment that
// captures documents how many groups it adds.
const (
	// Decimal seconds since JVM start, e.g. "12.345". 1 group.
	Uptime = `(\d+[.,]\d{3})`
	// ISO-8601 date stamp printed by -XX:+PrintGCDateStamps. 1 group.
	DateStamp = `(\d{4}-\d\d-\d\dT\d\d:\d\d:\d\d[.,]\d{3}[+-]\d{4})`
	// Optional "date: uptime: " prefix of pre-unified lines. 2 groups.
	StampPrefix = `^(?:` + DateStamp + `: )?(?:` + Uptime + `: )?`
	// Memory size with unit, e.g. "1024K", "24.0M", "0.0B". 1 group.
	MemorySize = `(\d+(?:[.,]\d+)?[BKMG])`
	// "before->after(size)". 3 groups.
	Occupancy = MemorySize + `->` + MemorySize + `\(` + MemorySize + `\)`
	// "before(size)->after(size)" as printed on G1 detail lines. 4 groups.
	SizedOccupancy = MemorySize + `\(` + MemorySize + `\)->` + MemorySize + `\(` + MemorySize + `\)`
	// Pre-unified pause duration, e.g. "0.0123450 secs". 1 group.
	PauseTime = `(\d+[.,]\d+) secs`
	// Unified pause duration, e.g. "3.456ms". 1 group.
	UnifiedDuration = `(\d+[.,]\d+)ms`
	// Parenthesised GC cause, tolerating "System.gc()". 1 group.
	Cause = `\(((?:[^()]|\(\))+)\)`
	// Unified collection id, e.g. "GC(12)". 1 group.
	GCID = `GC\((\d+)\)`
	// Unsigned counter. 1 group.
	Counter = `(\d+)`
	// "[Times: user=0.01 sys=0.00, real=0.01 secs]". 3 groups.
	CPUBreakdown = `\[Times: user=(\d+[.,]\d+) sys=(\d+[.,]\d+), real=(\d+[.,]\d+) secs\s*\]`
)

// VMOperations is the closed set of safepoint operation names recognised in
// pre-unified safepoint statistics.
var VMOperations = []string{
	"Deoptimize",
	"no vm operation",
	"EnableBiasedLocking",
	"GenCollectForAllocation",
	"RevokeBias",
	"BulkRevokeBias",
	"ThreadDump",
	"FindDeadlocks",
	"Exit",
}

// VMOperation is an alternation over VMOperations. 1 group.
var VMOperation = `(` + strings.Join(VMOperations, "|") + `)`
