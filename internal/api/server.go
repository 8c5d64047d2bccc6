// Package api provides the HTTP API for browsing stored runs and sweeps.
// Every endpoint is GET-only; results are written by the CLI, never here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/cluster-trip/internal/engine"
	"github.com/talgya/cluster-trip/internal/persistence"
	"github.com/talgya/cluster-trip/internal/plot"
	"github.com/talgya/cluster-trip/internal/sweep"
)

const (
	defaultRunLimit = 50
	maxRunLimit     = 500
)

// Server serves stored results over HTTP.
type Server struct {
	DB      *persistence.DB
	Addr    string
	Version string

	// Requests per minute per client IP. Zero disables limiting.
	RateLimit int

	started time.Time
}

// Handler returns the routed handler with CORS and rate limiting applied.
func (s *Server) Handler() http.Handler {
	if s.started.IsZero() {
		s.started = time.Now()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/runs", s.handleRuns)
	mux.HandleFunc("/api/v1/runs/", s.handleRunRoutes)
	mux.HandleFunc("/api/v1/sweeps/", s.handleSweepRoutes)

	var handler http.Handler = mux
	if s.RateLimit > 0 {
		limiter := NewRateLimiter(s.RateLimit, time.Minute)
		handler = RateLimitMiddleware(limiter, handler.ServeHTTP)
	}
	return corsMiddleware(getOnly(handler))
}

// Serve listens on s.Addr until ctx is cancelled, then shuts down.
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		slog.Info("HTTP API starting", "addr", s.Addr, "rate_limit", s.RateLimit)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	slog.Info("HTTP API shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS to a comma-separated list of extra origins.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func getOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.DB.CountRuns()
	if err != nil {
		serverError(w, "count runs", err)
		return
	}
	writeJSON(w, map[string]any{
		"name":       "cluster-trip",
		"version":    s.Version,
		"started":    humanize.Time(s.started),
		"uptime_sec": int(time.Since(s.started).Seconds()),
		"runs":       runs,
	})
}

// handleRuns lists recent runs. ?limit caps the count; ?sweep filters by sweep.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if sweepID := r.URL.Query().Get("sweep"); sweepID != "" {
		runs, err := s.DB.SweepRuns(sweepID)
		if err != nil {
			serverError(w, "sweep runs", err)
			return
		}
		writeJSON(w, nonNil(runs))
		return
	}

	limit := defaultRunLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 && n <= maxRunLimit {
			limit = n
		}
	}
	runs, err := s.DB.ListRuns(limit)
	if err != nil {
		serverError(w, "list runs", err)
		return
	}
	writeJSON(w, nonNil(runs))
}

// handleRunRoutes dispatches /api/v1/runs/:id, /api/v1/runs/:id/summary,
// /api/v1/runs/:id/history, /api/v1/runs/:id/series/:name and
// /api/v1/runs/:id/plot.
func (s *Server) handleRunRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/runs/"), "/"), "/")
	id := parts[0]
	if id == "" {
		http.Error(w, "missing run id", http.StatusBadRequest)
		return
	}

	sub := ""
	if len(parts) > 1 {
		sub = parts[1]
	}

	switch {
	case sub == "history" && len(parts) == 2:
		if _, err := s.DB.GetRunRecord(id); err != nil {
			lookupError(w, "run", err)
			return
		}
		history, err := s.DB.RunHistory(id)
		if err != nil {
			serverError(w, "run history", err)
			return
		}
		writeJSON(w, history)
		return
	case sub == "" || sub == "summary" || sub == "series" || sub == "plot":
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	result, err := s.DB.GetRun(id)
	if err != nil {
		lookupError(w, "run", err)
		return
	}

	switch sub {
	case "":
		writeJSON(w, result.Document())
	case "summary":
		writeJSON(w, sweep.Summarize(result))
	case "series":
		if len(parts) != 3 {
			http.Error(w, "usage: /api/v1/runs/:id/series/:name", http.StatusBadRequest)
			return
		}
		series, ok := result.Series(parts[2])
		if !ok {
			http.Error(w, "unknown series", http.StatusNotFound)
			return
		}
		writeJSON(w, map[string]any{"name": parts[2], "values": series})
	case "plot":
		s.writePlot(w, r, result.Document())
	}
}

// writePlot renders a run chart. Query: format=png|svg, series=a,b.
func (s *Server) writePlot(w http.ResponseWriter, r *http.Request, doc engine.Document) {
	opts := plot.Options{
		Title:  "run " + doc.RunID,
		Format: strings.ToLower(r.URL.Query().Get("format")),
	}
	if names := r.URL.Query().Get("series"); names != "" {
		opts.Series = strings.Split(names, ",")
	}

	contentType := "image/png"
	switch opts.Format {
	case "", plot.FormatPNG:
	case plot.FormatSVG:
		contentType = "image/svg+xml"
	default:
		http.Error(w, "format must be png or svg", http.StatusBadRequest)
		return
	}

	var buf bytes.Buffer
	if err := plot.Render(&buf, doc, opts); err != nil {
		if errors.Is(err, plot.ErrUnknownSeries) || errors.Is(err, plot.ErrTooShort) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		serverError(w, "render plot", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(buf.Bytes())
}

// handleSweepRoutes serves /api/v1/sweeps/:id and /api/v1/sweeps/:id/runs.
func (s *Server) handleSweepRoutes(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/sweeps/"), "/"), "/")
	id := parts[0]
	if id == "" {
		http.Error(w, "missing sweep id", http.StatusBadRequest)
		return
	}

	report, err := s.DB.GetSweep(id)
	if err != nil {
		lookupError(w, "sweep", err)
		return
	}

	switch {
	case len(parts) == 1:
		writeJSON(w, report)
	case len(parts) == 2 && parts[1] == "runs":
		runs, err := s.DB.SweepRuns(id)
		if err != nil {
			serverError(w, "sweep runs", err)
			return
		}
		writeJSON(w, nonNil(runs))
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

func lookupError(w http.ResponseWriter, what string, err error) {
	if errors.Is(err, persistence.ErrNotFound) {
		http.Error(w, what+" not found", http.StatusNotFound)
		return
	}
	serverError(w, what+" lookup", err)
}

func serverError(w http.ResponseWriter, op string, err error) {
	slog.Error("API query failed", "op", op, "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func nonNil(runs []persistence.RunRecord) []persistence.RunRecord {
	if runs == nil {
		return []persistence.RunRecord{}
	}
	return runs
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		slog.Warn("write response failed", "error", err)
	}
}
