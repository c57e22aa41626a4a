package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestWatcherReportsChangedPattern(t *testing.T) {
	dir := t.TempDir()
	gc := filepath.Join(dir, "gc.log")
	other := filepath.Join(dir, "app.log")
	require.NoError(t, os.WriteFile(gc, []byte("0.100: [GC]\n"), 0o644))
	require.NoError(t, os.WriteFile(other, []byte("hello\n"), 0o644))

	pattern := filepath.Join(dir, "gc*.log")
	w, err := New([]string{pattern}, WithLogger(zaptest.NewLogger(t)), WithQuiet(50*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, []string{dir}, w.Dirs())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Unrelated files are ignored; several writes and a rotation collapse
	// into one report.
	require.NoError(t, os.WriteFile(other, []byte("world\n"), 0o644))
	require.NoError(t, os.WriteFile(gc, []byte("0.200: [GC]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gc.1.log"), []byte("0.300: [GC]\n"), 0o644))

	select {
	case got := <-w.Changes():
		assert.Equal(t, pattern, got)
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case got := <-w.Changes():
		t.Fatalf("unexpected second report %q", got)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	for range w.Changes() {
	}
}

func TestWatcherMissingDirectory(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "nope", "*.log")}, WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	assert.Empty(t, w.Dirs())
}
