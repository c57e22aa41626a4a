package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/atikulmunna/gclens/internal/output"
	"github.com/atikulmunna/gclens/internal/store"
)

func setup(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "gclens.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return New(st, "0", zaptest.NewLogger(t)), st
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealthz(t *testing.T) {
	s, _ := setup(t)
	w := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 0, body["analyses"])
}

func TestAnalysesAPI(t *testing.T) {
	s, st := setup(t)
	ctx := context.Background()

	w := get(t, s, "/api/analyses")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	_, err := st.Save(ctx, output.Report{Name: "/var/log/app/gc*.log", Collector: "g1", Runtime: 42})
	require.NoError(t, err)

	w = get(t, s, "/api/analyses")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []store.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "g1", recs[0].Collector)

	w = get(t, s, "/api/analyses/"+url.PathEscape("/var/log/app/gc*.log"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rec store.Record
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rec))
	assert.Equal(t, 42.0, rec.Runtime)

	w = get(t, s, "/api/analyses/missing.log")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebSocketPush(t *testing.T) {
	s, _ := setup(t)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return s.subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)
	s.Publish(store.Record{Name: "gc.log", Collector: "zgc"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var rec store.Record
	require.NoError(t, conn.ReadJSON(&rec))
	assert.Equal(t, "gc.log", rec.Name)
	assert.Equal(t, "zgc", rec.Collector)

	conn.Close()
	assert.Eventually(t, func() bool { return s.subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}
