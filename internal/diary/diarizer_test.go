package diary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/gclens/internal/model"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name    string
		lines   []string
		family  model.EventSource
		unified bool
	}{
		{
			name:    "unified g1",
			lines:   []string{"[0.011s][info][gc] Using G1", "[0.345s][info][gc] GC(0) Pause Young (Normal) (G1 Evacuation Pause) 24M->4M(256M) 3.456ms"},
			family:  model.SourceG1,
			unified: true,
		},
		{
			name:    "unified zgc",
			lines:   []string{"[0.010s][info][gc,init] Initializing The Z Garbage Collector"},
			family:  model.SourceZGC,
			unified: true,
		},
		{
			name:    "unified shenandoah from pause",
			lines:   []string{"[0.500s][info][gc] GC(0) Pause Init Mark 0.345ms"},
			family:  model.SourceShenandoah,
			unified: true,
		},
		{
			name:    "headerless unified g1 initial mark",
			lines:   []string{"[150.000s][info][gc] GC(41) Pause Initial Mark (G1 Humongous Allocation) 120M->60M(256M) 4.000ms"},
			family:  model.SourceG1,
			unified: true,
		},
		{
			name:    "headerless unified g1 young",
			lines:   []string{"[120.010s][info][gc] GC(40) Pause Young (G1 Evacuation Pause) 100M->40M(256M) 10.000ms"},
			family:  model.SourceG1,
			unified: true,
		},
		{
			name:    "headerless unified cms initial mark",
			lines:   []string{"[12.000s][info][gc] GC(7) Pause Initial Mark 60M->60M(256M) 1.234ms"},
			family:  model.SourceCMS,
			unified: true,
		},
		{
			name: "headerless unified parallel heap",
			lines: []string{
				"[2.000s][info][gc,start] GC(3) Pause Young (Allocation Failure)",
				"[2.004s][info][gc,heap] GC(3) PSYoungGen: 6144K->1008K(7168K)",
			},
			family:  model.SourceParallel,
			unified: true,
		},
		{
			name:    "headerless unified parallel ergonomics",
			lines:   []string{"[9.000s][info][gc] GC(12) Pause Full (Ergonomics) 40M->20M(128M) 56.000ms"},
			family:  model.SourceParallel,
			unified: true,
		},
		{
			name: "headerless unified serial heap",
			lines: []string{
				"[2.000s][info][gc,start] GC(3) Pause Young (Allocation Failure)",
				"[2.004s][info][gc,heap] GC(3) DefNew: 4416K->512K(4928K)",
			},
			family:  model.SourceSerial,
			unified: true,
		},
		{
			name: "pre-unified parallel with safepoint statistics",
			lines: []string{
				"2.345: [GC (Allocation Failure) [PSYoungGen: 33280K->5104K(38400K)] 33280K->5112K(125952K), 0.0045670 secs]",
				"         vmop                    [threads: total initially_running wait_to_block]    [time: spin block sync cleanup vmop] page_trap_count",
				"3.099: Deoptimize [ 9 0 0 ] [ 0 0 0 0 0 ] 0",
			},
			family: model.SourceParallel,
		},
		{
			name:   "pre-unified parallel",
			lines:  []string{"2.345: [GC (Allocation Failure) [PSYoungGen: 33280K->5104K(38400K)] 33280K->5112K(125952K), 0.0045670 secs] [Times: user=0.01 sys=0.00, real=0.00 secs]"},
			family: model.SourceParallel,
		},
		{
			name:   "pre-unified cms",
			lines:  []string{"3.456: [GC (Allocation Failure) 3.456: [ParNew: 34944K->4352K(39296K), 0.0123450 secs] 34944K->10500K(126720K), 0.0124560 secs]"},
			family: model.SourceCMS,
		},
		{
			name:   "pre-unified serial",
			lines:  []string{"1.234: [GC (Allocation Failure) 1.234: [DefNew: 34944K->4352K(39296K), 0.0123450 secs] 34944K->10500K(126720K), 0.0124560 secs]"},
			family: model.SourceSerial,
		},
		{
			name:   "pre-unified g1",
			lines:  []string{"1.234: [GC pause (G1 Evacuation Pause) (young), 0.0123456 secs]"},
			family: model.SourceG1,
		},
		{
			name:   "command line flags",
			lines:  []string{"Java HotSpot(TM) 64-Bit Server VM (25.202-b08)", "CommandLine flags: -XX:InitialHeapSize=268435456 -XX:+UseConcMarkSweepGC"},
			family: model.SourceCMS,
		},
		{
			name:   "safepoint statistics",
			lines:  []string{"         vmop                    [threads: total initially_running wait_to_block]    [time: spin block sync cleanup vmop] page_trap_count", "0.099: Deoptimize [ 9 0 0 ] [ 0 0 0 0 0 ] 0"},
			family: model.SourceSafepoint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Detect(tt.lines, DefaultBudget, nil)
			require.NoError(t, err)
			fam, ok := d.Family()
			require.True(t, ok)
			assert.Equal(t, tt.family, fam)
			assert.Equal(t, tt.unified, d.Is(Unified))
			assert.True(t, d.Known(Unified))
		})
	}
}

func TestDetectRejectsAmbiguousCause(t *testing.T) {
	// Serial and Parallel print the same young pause line.
	lines := []string{"[2.000s][info][gc] GC(3) Pause Young (Allocation Failure) 24M->5M(128M) 4.000ms"}
	_, err := Detect(lines, DefaultBudget, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestDetectIsIdempotent(t *testing.T) {
	lines := []string{
		"2020-01-01T10:00:00.000+0000: 1.234: [GC (Allocation Failure) 1.234: [DefNew: 34944K->4352K(39296K), 0.0123450 secs] 34944K->10500K(126720K), 0.0124560 secs] [Times: user=0.01 sys=0.00, real=0.01 secs]",
	}
	a, err := Detect(lines, DefaultBudget, nil)
	require.NoError(t, err)
	b, err := Detect(lines, DefaultBudget, nil)
	require.NoError(t, err)
	assert.Equal(t, a.Facts(), b.Facts())
	assert.True(t, a.Is(DateStamps))
	assert.True(t, a.Is(UptimeStamps))
	assert.True(t, a.Is(CPUTimes))
}

func TestDetectFailsWithinBudget(t *testing.T) {
	lines := make([]string, 0, 40)
	for i := 0; i < 30; i++ {
		lines = append(lines, "some application chatter")
	}
	lines = append(lines, "[0.011s][info][gc] Using G1")

	_, err := Detect(lines, DefaultBudget, nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	// A larger budget reaches the decisive line.
	d, err := Detect(lines, 40, nil)
	require.NoError(t, err)
	assert.True(t, d.Is(G1))
}

func TestBlankLinesDoNotSpendBudget(t *testing.T) {
	z := NewDiarizer(2, nil)
	for i := 0; i < 10; i++ {
		assert.False(t, z.Diarize("   "))
	}
	assert.False(t, z.Diarize("chatter"))
	assert.True(t, z.Diarize("[0.011s][info][gc] Using Serial"))
	d, err := z.Finish()
	require.NoError(t, err)
	assert.True(t, d.Is(Serial))
}

func TestFinishResolvesUnknownFacts(t *testing.T) {
	z := NewDiarizer(DefaultBudget, nil)
	z.Diarize("[0.011s][info][gc] Using Parallel")
	d, err := z.Finish()
	require.NoError(t, err)
	for _, k := range []Key{Unified, G1, Serial, CMS, Shenandoah, ZGC} {
		assert.True(t, d.Known(k), k)
	}
	assert.Equal(t, Unknown, d.Get(TenuringDistribution))
	// Left for the parser, which may still meet statistics lines.
	assert.Equal(t, Unknown, d.Get(Safepoint))
}
