package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemory(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"1024K", 1024 * 1024},
		{"24.0M", 24 * 1024 * 1024},
		{"3072.0K", 3072 * 1024},
		{"0.0B", 0},
		{"512B", 512},
		{"2G", 2 * 1024 * 1024 * 1024},
		{"100", 100 * 1024},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseMemory(tt.in), tt.in)
	}
}

func TestParseDecimalComma(t *testing.T) {
	assert.InDelta(t, 12.345, ParseDecimal("12,345"), 1e-9)
	assert.InDelta(t, 0.5, ParseDecimal("0.5"), 1e-9)
	assert.Zero(t, ParseDecimal("abc"))
}

func TestStampPrefix(t *testing.T) {
	r := New("prefix", StampPrefix+`\[GC`)

	tr := r.Parse("2020-01-01T10:00:00.000+0000: 1.234: [GC (Allocation Failure)")
	require.NotNil(t, tr)
	stamp, ok := tr.Stamp(1, 2)
	require.True(t, ok)
	assert.True(t, stamp.HasDate())
	assert.InDelta(t, 1.234, stamp.Seconds(), 1e-9)

	tr = r.Parse("[GC (Allocation Failure)")
	require.NotNil(t, tr)
	_, ok = tr.Stamp(1, 2)
	assert.False(t, ok)
}

func TestCauseToleratesSystemGC(t *testing.T) {
	r := New("cause", `Full GC `+Cause)
	tr := r.Parse("Full GC (System.gc()) 10M->2M(256M)")
	require.NotNil(t, tr)
	assert.Equal(t, "System.gc()", tr.Group(1))
}

func TestOccupancy(t *testing.T) {
	r := New("occ", Occupancy)
	tr := r.Parse("24M->4M(256M)")
	require.NotNil(t, tr)
	m := tr.Occupancy(1)
	assert.Equal(t, int64(24<<20), m.OccupancyBefore)
	assert.Equal(t, int64(4<<20), m.OccupancyAfter)
	assert.Equal(t, int64(256<<20), m.SizeAfter)
	assert.Equal(t, int64(20<<20), m.Reclaimed())
}

func TestSetMatchPromotesWinner(t *testing.T) {
	s := NewSet[string]()
	s.Add(New("young", `Pause Young`), "y")
	s.Add(New("full", `Pause Full`), "f")
	s.Add(New("remark", `Pause Remark`), "r")
	assert.Equal(t, []string{"young", "full", "remark"}, s.Order())

	h, tr, ok := s.Match("GC(3) Pause Remark 1.0ms")
	require.True(t, ok)
	assert.Equal(t, "r", h)
	assert.Equal(t, "remark", tr.Rule().Name())
	assert.Equal(t, []string{"remark", "young", "full"}, s.Order())

	_, _, ok = s.Match("nothing to see")
	assert.False(t, ok)
	assert.Equal(t, []string{"remark", "young", "full"}, s.Order())
}

func TestSplitDecorators(t *testing.T) {
	d, msg, ok := SplitDecorators("[0.011s][info][gc] Using G1")
	require.True(t, ok)
	assert.Equal(t, "Using G1", msg)
	assert.True(t, d.HasUptime)
	assert.InDelta(t, 0.011, d.Uptime, 1e-9)
	assert.Equal(t, "info", d.Level)
	assert.True(t, d.HasTag("gc"))

	d, msg, ok = SplitDecorators("[2021-03-01T10:00:00.123+0000][12ms][info ][gc,phases   ] GC(0) Pause Mark Start 0.012ms")
	require.True(t, ok)
	assert.Equal(t, "GC(0) Pause Mark Start 0.012ms", msg)
	assert.True(t, d.HasTag("phases"))
	stamp, ok := d.Stamp()
	require.True(t, ok)
	assert.True(t, stamp.HasDate())
	assert.InDelta(t, 0.012, stamp.Seconds(), 1e-9)
}

func TestSplitDecoratorsRejectsPreUnified(t *testing.T) {
	for _, line := range []string{
		"[GC (Allocation Failure) [PSYoungGen: 33280K->5104K(38400K)] 33280K->5112K(125952K), 0.0045670 secs]",
		"[CMS-concurrent-mark-start]",
		"0.099: Deoptimize [ 9 0 0 ] [ 0 0 0 0 0 ] 0",
		"",
	} {
		_, _, ok := SplitDecorators(line)
		assert.False(t, ok, line)
	}
}
