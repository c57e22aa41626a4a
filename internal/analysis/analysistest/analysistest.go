// Package analysistest builds analysed JVM models from synthetic logs for
// tests of the packages that consume them.
package analysistest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/atikulmunna/gclens/internal/analysis"
	"github.com/atikulmunna/gclens/internal/jvm"
	"github.com/atikulmunna/gclens/internal/source"
)

// ParallelLog returns a pre-unified Parallel GC log of n young pauses of
// 10ms, step seconds apart.
func ParallelLog(n int, step float64) []string {
	lines := []string{
		"OpenJDK 64-Bit Server VM (25.362-b09) for linux-amd64 JRE (1.8.0_362-b09)",
		"CommandLine flags: -XX:+PrintGC -XX:+PrintGCDetails -XX:+UseParallelGC",
	}
	for i := 0; i < n; i++ {
		lines = append(lines, fmt.Sprintf(
			"%.3f: [GC (Allocation Failure) [PSYoungGen: 33280K->5104K(38400K)] 33280K->5112K(125952K), 0.0100000 secs] [Times: user=0.01 sys=0.00, real=0.01 secs]",
			float64(i+1)*step))
	}
	return lines
}

// WriteLog writes lines to name in a temporary directory and returns its path.
func WriteLog(t testing.TB, name string, lines ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	return p
}

// Analyze analyses lines as a log called name.
func Analyze(t testing.TB, name string, lines ...string) *jvm.JavaVirtualMachine {
	t.Helper()
	p := WriteLog(t, name, lines...)
	l, err := source.New(name, []string{p})
	require.NoError(t, err)
	a, err := analysis.New(analysis.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	m, err := a.Analyze(ctx, l)
	require.NoError(t, err)
	return m
}
