package model

import "fmt"

// MemoryPoolSummary is the occupancy of a memory pool before and after a
// collection, in bytes. A size of -1 means the log did not report it.
type MemoryPoolSummary struct {
	OccupancyBefore int64 `json:"occupancy_before"`
	SizeBefore      int64 `json:"size_before"`
	OccupancyAfter  int64 `json:"occupancy_after"`
	SizeAfter       int64 `json:"size_after"`
}

// NewMemoryPoolSummary builds a summary where the pool size did not change.
func NewMemoryPoolSummary(before, after, size int64) *MemoryPoolSummary {
	return &MemoryPoolSummary{
		OccupancyBefore: before,
		SizeBefore:      size,
		OccupancyAfter:  after,
		SizeAfter:       size,
	}
}

// Reclaimed returns the number of bytes freed by the collection.
func (m *MemoryPoolSummary) Reclaimed() int64 {
	return m.OccupancyBefore - m.OccupancyAfter
}

func (m *MemoryPoolSummary) String() string {
	return fmt.Sprintf("%dK(%dK)->%dK(%dK)",
		m.OccupancyBefore/1024, m.SizeBefore/1024, m.OccupancyAfter/1024, m.SizeAfter/1024)
}

// CPUSummary is the "[Times: user=… sys=…, real=…]" record of a pause.
type CPUSummary struct {
	User float64 `json:"user"`
	Sys  float64 `json:"sys"`
	Real float64 `json:"real"`
}
