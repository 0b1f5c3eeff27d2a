package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prism-search/prism/internal/debug"
	"github.com/prism-search/prism/internal/indexing"
	"github.com/prism-search/prism/internal/search"
	"github.com/prism-search/prism/internal/version"
)

type errorResponse struct {
	Error string `json:"error"`
}

type searchResponse struct {
	Query       string          `json:"query"`
	Count       int             `json:"count"`
	Results     []search.Result `json:"results"`
	Suggestions []string        `json:"suggestions,omitempty"`
}

type fileResponse struct {
	Path  string                `json:"path"`
	Lines []indexing.LineRecord `json:"lines"`
}

type statsResponse struct {
	Version string            `json:"version"`
	Uptime  string            `json:"uptime"`
	Index   indexing.Stats    `json:"index"`
	Cache   search.CacheStats `json:"cache"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Files   int    `json:"files"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		debug.LogServer("response encode failed: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// requireMethod rejects mismatched methods with 405. Returns false when
// the handler should bail.
func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}

func (s *Server) requireReady(w http.ResponseWriter) bool {
	if !s.ready.Load() {
		writeError(w, http.StatusServiceUnavailable, "index not ready")
		return false
	}
	return true
}

// handleSearch answers GET /search?q=...&limit=N.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !s.requireReady(w) {
		return
	}

	query := r.URL.Query().Get("q")
	limit := parseLimit(r.URL.Query().Get("limit"))

	results, err := s.engine.Search(query, limit)
	if err != nil {
		if errors.Is(err, search.ErrQueryTooLong) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := searchResponse{
		Query:   query,
		Count:   len(results),
		Results: results,
	}
	if len(results) == 0 {
		resp.Suggestions = s.engine.Suggest(query)
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleExplain answers GET /explain?symbol=...&limit=N.
func (s *Server) handleExplain(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !s.requireReady(w) {
		return
	}

	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol parameter")
		return
	}
	limit := parseLimit(r.URL.Query().Get("limit"))

	usage, err := s.engine.ExplainUsage(symbol, limit)
	if err != nil {
		if errors.Is(err, search.ErrQueryTooLong) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, usage)
}

// handleFile answers GET /file?path=... with the indexed line records.
// Unknown paths are 404.
func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) || !s.requireReady(w) {
		return
	}

	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing path parameter")
		return
	}

	lines, err := s.coord.GetFileContext(path)
	if err != nil {
		if errors.Is(err, indexing.ErrNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, fileResponse{Path: path, Lines: lines})
}

// handleReindex answers POST /reindex. It runs a delta reconcile against
// the filesystem and reports the applied changes.
func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	summary, err := s.coord.Reconcile(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.ready.Store(true)

	writeJSON(w, http.StatusOK, summary)
}

// handleStats answers GET /stats.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Version: version.Version,
		Uptime:  time.Since(s.startTime).Round(time.Second).String(),
		Index:   s.coord.Stats(),
		Cache:   s.engine.CacheStats(),
	})
}

// handleHealth answers GET /health. Always 200 once the process is up;
// readiness shows in the status field.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	status := "indexing"
	if s.ready.Load() {
		status = "ok"
	}

	st := s.coord.Store()
	st.RLock()
	files := st.FileCount()
	st.RUnlock()

	writeJSON(w, http.StatusOK, healthResponse{
		Status:  status,
		Version: version.Version,
		Files:   files,
	})
}

// handleWatchStart answers POST /watch/start.
func (s *Server) handleWatchStart(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	if err := s.coord.StartWatcher(); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "watching"})
}

// handleWatchStop answers POST /watch/stop.
func (s *Server) handleWatchStop(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	s.coord.StopWatcher()
	writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}

// parseLimit reads a limit parameter; malformed or absent values fall
// back to zero so the engine applies its default.
func parseLimit(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
