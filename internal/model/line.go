package model

// LogLine is a single line of GC log text together with its 1-based position
// in the (possibly concatenated) source stream.
type LogLine struct {
	Text   string
	Number int
}

// EndOfData is the reserved sentinel that terminates every line stream.
var EndOfData = LogLine{Number: -1}

// IsEndOfData reports whether l is the end-of-data sentinel.
func (l LogLine) IsEndOfData() bool {
	return l.Number == EndOfData.Number && l.Text == ""
}
