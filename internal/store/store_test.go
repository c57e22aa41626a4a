package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/atikulmunna/gclens/internal/analysis/analysistest"
	"github.com/atikulmunna/gclens/internal/output"
)

func open(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "gclens.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	rep := output.NewReport(analysistest.Analyze(t, "app.log", analysistest.ParallelLog(30, 1)...))

	saved, err := s.Save(ctx, rep)
	require.NoError(t, err)

	got, err := s.Get(ctx, "app.log")
	require.NoError(t, err)
	assert.Equal(t, "parallel", got.Collector)
	assert.InDelta(t, 29.01, got.Runtime, 1e-9)
	assert.False(t, got.Fragment)
	assert.Zero(t, got.Warnings)
	assert.True(t, saved.AnalysedAt.Equal(got.AnalysedAt))

	var body map[string]any
	require.NoError(t, json.Unmarshal(got.Report, &body))
	assert.Equal(t, "app.log", body["name"])
}

func TestGetUnknown(t *testing.T) {
	_, err := open(t).Get(context.Background(), "missing.log")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveReplacesAndListOrders(t *testing.T) {
	s := open(t)
	ctx := context.Background()
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	_, err := s.Save(ctx, output.Report{Name: "a.log", Collector: "g1", Runtime: 5, Fragment: true})
	require.NoError(t, err)
	_, err = s.Save(ctx, output.Report{Name: "b.log", Collector: "zgc", Runtime: 100})
	require.NoError(t, err)
	_, err = s.Save(ctx, output.Report{Name: "a.log", Collector: "g1", Runtime: 50})
	require.NoError(t, err)

	recs, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "a.log", recs[0].Name)
	assert.Equal(t, 50.0, recs[0].Runtime)
	assert.False(t, recs[0].Fragment)
	assert.Equal(t, "b.log", recs[1].Name)

	require.NoError(t, s.Delete(ctx, "a.log"))
	require.NoError(t, s.Delete(ctx, "a.log"))
	recs, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}
