// Package server exposes analysis reports over HTTP and pushes new ones to
// websocket clients.
package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/atikulmunna/gclens/internal/store"
)

// Reports is the read side of the analysis store.
type Reports interface {
	List(ctx context.Context) ([]store.Record, error)
	Get(ctx context.Context, name string) (store.Record, error)
}

// Server holds the Gin engine and the websocket subscribers.
type Server struct {
	engine  *gin.Engine
	reports Reports
	logger  *zap.Logger
	port    string
	started time.Time

	mu   sync.Mutex
	subs map[chan store.Record]struct{}
	http *http.Server
}

// New creates the HTTP API over reports.
func New(reports Reports, port string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	// Analysis names are log patterns; clients escape their slashes.
	engine.UseRawPath = true
	engine.UnescapePathValues = true

	s := &Server{
		engine:  engine,
		reports: reports,
		logger:  logger,
		port:    port,
		started: time.Now(),
		subs:    make(map[chan store.Record]struct{}),
	}

	s.setupRoutes()
	return s
}

// Handler returns the server's routes, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.engine }

func (s *Server) setupRoutes() {
	// Health check.
	s.engine.GET("/healthz", func(c *gin.Context) {
		recs, err := s.reports.List(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"uptime":      time.Since(s.started).Round(time.Second).String(),
			"analyses":    len(recs),
			"subscribers": s.subscribers(),
		})
	})

	// Analyses API.
	s.engine.GET("/api/analyses", s.listAnalyses)
	s.engine.GET("/api/analyses/:name", s.getAnalysis)

	// WebSocket.
	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/allocs", gin.WrapH(pprof.Handler("allocs")))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

func (s *Server) listAnalyses(c *gin.Context) {
	recs, err := s.reports.List(c.Request.Context())
	if err != nil {
		s.logger.Error("list analyses", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = []store.Record{}
	}
	c.JSON(http.StatusOK, recs)
}

func (s *Server) getAnalysis(c *gin.Context) {
	name := c.Param("name")
	rec, err := s.reports.Get(c.Request.Context(), name)
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		s.logger.Error("get analysis", zap.String("name", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusOK, rec)
	}
}

// Start runs the server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	s.http = &http.Server{Addr: ":" + s.port, Handler: s.engine, ReadHeaderTimeout: 10 * time.Second}
	srv := s.http
	s.mu.Unlock()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("serving", zap.String("addr", srv.Addr))

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeSubscribers()
		if err := srv.Shutdown(shutdown); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
