// Package server exposes the simulation runner over a local HTTP JSON API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nvandessel/phsim/internal/chart"
	"github.com/nvandessel/phsim/internal/logging"
	"github.com/nvandessel/phsim/internal/metrics"
	"github.com/nvandessel/phsim/internal/ratelimit"
	"github.com/nvandessel/phsim/internal/runner"
	"github.com/nvandessel/phsim/internal/scenarios"
	"github.com/nvandessel/phsim/internal/store"
)

const (
	// DefaultAddr lets the OS pick a free port on the loopback interface.
	DefaultAddr = "localhost:0"

	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second

	// throttleKey labels HTTP rejections in the throttle metric.
	throttleKey = "http"
)

// Server serves the simulation API.
type Server struct {
	runner         *runner.Runner
	metricsHandler http.Handler
	recorder       metrics.Recorder
	limiter        *ratelimit.Limiter
	logger         *slog.Logger

	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
	listenAddr string
	addr       string
}

// Option configures a Server.
type Option func(*Server)

// WithAddr sets the listen address. The default is DefaultAddr.
func WithAddr(addr string) Option {
	return func(s *Server) { s.listenAddr = addr }
}

// WithMetrics serves p's registry on /metrics and counts throttled requests.
func WithMetrics(p *metrics.PrometheusRecorder) Option {
	return func(s *Server) {
		s.metricsHandler = p.Handler()
		s.recorder = p
	}
}

// WithLimiter rate limits simulation endpoints per client address.
func WithLimiter(l *ratelimit.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithLogger sets the request logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates an API server for r.
func NewServer(r *runner.Runner, opts ...Option) *Server {
	s := &Server{
		runner:     r,
		recorder:   metrics.Nop{},
		logger:     logging.Discard(),
		listenAddr: DefaultAddr,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Addr returns the address the server is listening on (e.g., "localhost:PORT").
// Returns empty string if the server hasn't started yet.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/scenarios", s.handleScenarios)
	mux.HandleFunc("POST /api/simulate", s.limited(s.handleSimulate))
	mux.HandleFunc("POST /api/compare", s.limited(s.handleCompare))
	mux.HandleFunc("GET /api/chart", s.limited(s.handleChart))
	mux.HandleFunc("GET /api/history", s.handleHistoryList)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryGet)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleHistoryDelete)
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}
	return s.logRequests(mux)
}

// ListenAndServe starts the HTTP server and blocks until the context is
// cancelled. Returns nil on clean shutdown.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	s.mu.Lock()
	s.listener = ln
	s.addr = ln.Addr().String()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Unlock()

	s.logger.Info("api server listening", "addr", s.addr)

	// Graceful shutdown when context is cancelled.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	err = s.httpServer.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method, "path", r.URL.Path, "status", rec.status, "duration", time.Since(start))
	})
}

// limited rejects requests from clients over their budget with 429.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	if s.limiter == nil {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ok, wait := s.limiter.Take(clientKey(r))
		if !ok {
			s.recorder.IncThrottle(throttleKey)
			w.Header().Set("Retry-After", strconv.Itoa(int(wait.Round(time.Second).Seconds())+1))
			writeError(w, http.StatusTooManyRequests, ratelimit.ErrRateLimited.Error())
			return
		}
		next(w, r)
	}
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps runner and store errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, scenarios.ErrUnknownScenario), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	case errors.Is(err, runner.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name": "phsim",
		"endpoints": []string{
			"GET /api/scenarios",
			"POST /api/simulate",
			"POST /api/compare",
			"GET /api/chart",
			"GET /api/history",
			"GET /api/history/{id}",
			"DELETE /api/history/{id}",
			"GET /metrics",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"scenarios":    s.runner.Catalog().List(),
		"agents":       scenarios.Agents(),
		"complexities": scenarios.Complexities(),
	})
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req runner.Request
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Source = "http"

	resp, err := s.runner.Run(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// compareRequest is the body of POST /api/compare.
type compareRequest struct {
	scenarios.Comparison
	Runs       int              `json:"runs,omitempty"`
	Seed       uint64           `json:"seed,omitempty"`
	Visibility chart.Visibility `json:"visibility,omitempty"`
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c := req.Comparison
	if c.Complexity == "" {
		c.Complexity = runner.DefaultComplexityProfile
	}
	if c.NChanges == 0 {
		c.NChanges = scenarios.DefaultChanges
	}

	resp, err := s.runner.Compare(r.Context(), c, runner.CompareOptions{
		Runs: req.Runs, Seed: req.Seed, Visibility: req.Visibility,
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := runner.ChartRequest{
		Complexity: q.Get("complexity"),
		Visibility: chart.Visibility(q.Get("visibility")),
	}
	if keys := q.Get("scenarios"); keys != "" {
		req.Keys = strings.Split(keys, ",")
	}

	var err error
	if v := q.Get("sc"); v != "" {
		var sc float64
		if sc, err = strconv.ParseFloat(v, 64); err == nil {
			req.SystemComplexity = &sc
		}
	}
	if err == nil {
		req.NChanges, err = intParam(q.Get("changes"))
	}
	if err == nil {
		req.Runs, err = intParam(q.Get("runs"))
	}
	if err == nil && q.Get("seed") != "" {
		req.Seed, err = strconv.ParseUint(q.Get("seed"), 10, 64)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid query parameter: "+err.Error())
		return
	}

	resp, err := s.runner.Chart(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

func (s *Server) historyStore(w http.ResponseWriter) store.ResultStore {
	rs := s.runner.Store()
	if rs == nil {
		writeError(w, http.StatusNotFound, "result history is disabled")
	}
	return rs
}

func (s *Server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	rs := s.historyStore(w)
	if rs == nil {
		return
	}

	q := r.URL.Query()
	opts := store.ListOptions{Scenario: q.Get("scenario"), Source: q.Get("source")}
	limit, err := intParam(q.Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid limit: "+err.Error())
		return
	}
	opts.Limit = limit

	list, err := rs.List(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []store.Summary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": list, "count": len(list)})
}

func (s *Server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	rs := s.historyStore(w)
	if rs == nil {
		return
	}

	res, err := rs.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	rs := s.historyStore(w)
	if rs == nil {
		return
	}

	id := r.PathValue("id")
	if err := rs.Delete(r.Context(), id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": id})
}
