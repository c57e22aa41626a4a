package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atikulmunna/gclens/internal/analysis/analysistest"
	"github.com/atikulmunna/gclens/internal/store"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestAnalyzeJSON(t *testing.T) {
	path := analysistest.WriteLog(t, "gc.log", analysistest.ParallelLog(30, 1)...)
	db := filepath.Join(t.TempDir(), "gclens.db")

	out, err := run(t, "analyze", path, "--output", "json", "--store", db, "--log-level", "error")
	require.NoError(t, err)

	var rep map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &rep), out)
	assert.Equal(t, path, rep["name"])
	assert.Equal(t, "parallel", rep["collector"])

	st, err := store.Open(db, nil)
	require.NoError(t, err)
	defer st.Close()
	rec, err := st.Get(context.Background(), path)
	require.NoError(t, err)
	assert.InDelta(t, 29.01, rec.Runtime, 1e-9)
}

func TestAnalyzeReportsMissingAndUnknown(t *testing.T) {
	garbage := analysistest.WriteLog(t, "notes.txt", "hello", "world")
	_, err := run(t, "analyze", filepath.Join(t.TempDir(), "missing.log"), garbage,
		"--output", "text", "--store", "", "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.log")
	assert.Contains(t, err.Error(), "format detection failed")
}
