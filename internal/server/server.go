// Package server is the thin HTTP front-end over the index core: it
// marshals JSON in and out and maps core errors to status codes. All
// index logic lives behind the coordinator and the search engine.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prism-search/prism/internal/config"
	"github.com/prism-search/prism/internal/debug"
	"github.com/prism-search/prism/internal/indexing"
	"github.com/prism-search/prism/internal/search"
)

// Server serves the HTTP API for one project root.
type Server struct {
	cfg    *config.Config
	coord  *indexing.Coordinator
	engine *search.Engine

	httpServer *http.Server
	listener   net.Listener
	startTime  time.Time
	ready      atomic.Bool

	mu      sync.Mutex
	running bool
}

// New creates a server over an initialized coordinator and engine.
func New(cfg *config.Config, coord *indexing.Coordinator, engine *search.Engine) *Server {
	s := &Server{
		cfg:       cfg,
		coord:     coord,
		engine:    engine,
		startTime: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/search", s.handleSearch)
	mux.HandleFunc("/explain", s.handleExplain)
	mux.HandleFunc("/file", s.handleFile)
	mux.HandleFunc("/reindex", s.handleReindex)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/watch/start", s.handleWatchStart)
	mux.HandleFunc("/watch/stop", s.handleWatchStop)

	s.httpServer = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// SetReady marks the index as loaded. Until then query endpoints answer
// 503 so clients can distinguish "still indexing" from "no results".
func (s *Server) SetReady() {
	s.ready.Store(true)
}

// Start begins listening. It returns once the listener is bound; the
// accept loop runs in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	ln, err := net.Listen("tcp", s.cfg.Server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.running = true

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			debug.LogServer("serve loop ended: %v\n", err)
		}
	}()

	debug.LogServer("listening on %s\n", ln.Addr())
	return nil
}

// Addr returns the bound listen address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	return s.httpServer.Shutdown(ctx)
}
