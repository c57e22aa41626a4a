package diary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/gclens/internal/model"
)

func TestFactNeverRevertsOrFlips(t *testing.T) {
	d := New()
	assert.Equal(t, Unknown, d.Get(G1))

	require.NoError(t, d.Set(G1, true))
	require.NoError(t, d.Set(G1, true))
	assert.ErrorIs(t, d.Set(G1, false), ErrFactConflict)
	assert.Equal(t, True, d.Get(G1))

	d.SetIfUnknown(G1, false)
	assert.Equal(t, True, d.Get(G1))
}

func TestSetCollectorExcludesOthers(t *testing.T) {
	d := New()
	require.NoError(t, d.SetCollector(Parallel))

	src, ok := d.Collector()
	require.True(t, ok)
	assert.Equal(t, model.SourceParallel, src)
	assert.Equal(t, False, d.Get(G1))
	assert.Equal(t, False, d.Get(ZGC))

	assert.ErrorIs(t, d.SetCollector(CMS), ErrFactConflict)
	assert.Error(t, d.SetCollector(Unified))
}

func TestFamilyFallsBackToSafepoint(t *testing.T) {
	d := New()
	_, ok := d.Family()
	assert.False(t, ok)

	require.NoError(t, d.Set(Safepoint, true))
	fam, ok := d.Family()
	require.True(t, ok)
	assert.Equal(t, model.SourceSafepoint, fam)
}

func TestCommandLineFirstWins(t *testing.T) {
	d := New()
	d.SetCommandLine("-Xmx1g")
	d.SetCommandLine("-Xmx2g")
	assert.Equal(t, "-Xmx1g", d.CommandLine())
}
