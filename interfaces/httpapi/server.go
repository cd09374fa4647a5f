// Package httpapi exposes the dispatcher over a local HTTP API.
//
// # Routes
//
//	POST /v1/dispatch                  run one dispatch cycle
//	POST /v1/run                       generate code for a command and dispatch it
//	GET  /v1/actions                   list the action whitelist
//	GET  /v1/history                   list recorded outcomes
//	GET  /v1/history/{id}/userscript   export a record as a userscript
//	GET  /v1/stats                     outcome counts by source
//	GET  /v1/health                    liveness
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/felixgeelhaar/domguard/application"
	"github.com/felixgeelhaar/domguard/domain/action"
	"github.com/felixgeelhaar/domguard/domain/dispatch"
	"github.com/felixgeelhaar/domguard/infrastructure/logging"
	"github.com/felixgeelhaar/domguard/infrastructure/observability"
)

// MaxBodyBytes bounds request bodies.
const MaxBodyBytes = 1 << 20

// Collector reads in-process metrics.
type Collector interface {
	Collect(ctx context.Context) (metricdata.ResourceMetrics, error)
}

// Config configures the API server.
type Config struct {
	// Dispatcher runs cycles. Required.
	Dispatcher *application.Dispatcher

	// History serves the history routes. Optional.
	History *application.HistoryService

	// Metrics serves /v1/stats. Optional.
	Metrics Collector

	// Addr is the listen address (default "127.0.0.1:8080").
	Addr string

	// ReadTimeout is the HTTP read timeout.
	ReadTimeout time.Duration

	// WriteTimeout is the HTTP write timeout.
	WriteTimeout time.Duration
}

// Server is the local HTTP API.
type Server struct {
	config     Config
	mux        *http.ServeMux
	httpServer *http.Server
}

// New creates a new API server.
func New(cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	s := &Server{
		config: cfg,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.mux.HandleFunc("POST /v1/dispatch", s.handleDispatch)
	s.mux.HandleFunc("POST /v1/run", s.handleRun)
	s.mux.HandleFunc("GET /v1/actions", s.handleActions)
	s.mux.HandleFunc("GET /v1/history", s.handleHistory)
	s.mux.HandleFunc("GET /v1/history/{id}/userscript", s.handleExport)
	s.mux.HandleFunc("GET /v1/stats", s.handleStats)
	s.mux.HandleFunc("GET /v1/health", s.handleHealth)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.withMiddleware(s.mux)
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// ListenAndServe listens on the configured address and serves until ctx is
// done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.config.Addr)
	if err != nil {
		return err
	}
	logging.Info().
		Add(logging.Component("httpapi")).
		Add(logging.Str("addr", ln.Addr().String())).
		Msg("listening")
	return s.Serve(ctx, ln)
}

// withMiddleware wraps the handler with common middleware.
func (s *Server) withMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")

		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		handler.ServeHTTP(sw, r)

		logging.Debug().
			Add(logging.Component("httpapi")).
			Add(logging.Str("method", r.Method)).
			Add(logging.Str("path", r.URL.Path)).
			Add(logging.Str("status", strconv.Itoa(sw.status))).
			Add(logging.Duration(time.Since(start))).
			Msg("request")
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// DispatchRequest is the body of POST /v1/dispatch.
type DispatchRequest struct {
	Command string `json:"command"`
	Code    string `json:"code"`
	Source  string `json:"source,omitempty"`
	Target  string `json:"target"`
}

// RunRequest is the body of POST /v1/run.
type RunRequest struct {
	Command string `json:"command"`
	Target  string `json:"target"`
}

// ActionInfo describes one whitelisted action.
type ActionInfo struct {
	ID          action.ID     `json:"id"`
	Description string        `json:"description"`
	Slot        string        `json:"slot"`
	Default     action.Params `json:"default"`
	CatchAll    bool          `json:"catch_all,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleDispatch(w http.ResponseWriter, r *http.Request) {
	var req DispatchRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := s.config.Dispatcher.Dispatch(r.Context(), dispatch.Request{
		Command: req.Command,
		Code:    req.Code,
		Source:  req.Source,
		Target:  req.Target,
	})
	s.writeOutcome(w, out, err)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if !decode(w, r, &req) {
		return
	}

	out, err := s.config.Dispatcher.Run(r.Context(), req.Command, req.Target)
	s.writeOutcome(w, out, err)
}

// writeOutcome answers 200 for every completed cycle, failed ones included.
// The outcome carries success and source.
func (s *Server) writeOutcome(w http.ResponseWriter, out dispatch.Outcome, err error) {
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, action.ErrUnknownAction) {
			status = http.StatusUnprocessableEntity
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActions(w http.ResponseWriter, _ *http.Request) {
	specs := s.config.Dispatcher.Registry().List()
	infos := make([]ActionInfo, 0, len(specs))
	for _, spec := range specs {
		infos = append(infos, ActionInfo{
			ID:          spec.ID,
			Description: spec.Description,
			Slot:        spec.Slot.String(),
			Default:     spec.Default,
			CatchAll:    spec.IsCatchAll(),
		})
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.config.History == nil {
		writeError(w, http.StatusServiceUnavailable, application.ErrNoHistory)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	records, err := s.config.History.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if records == nil {
		records = []dispatch.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if s.config.History == nil {
		writeError(w, http.StatusServiceUnavailable, application.ErrNoHistory)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid record id"))
		return
	}

	script, err := s.config.History.Export(r.Context(), id)
	switch {
	case errors.Is(err, dispatch.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err)
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
	default:
		writeJSON(w, http.StatusOK, script)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.config.Metrics == nil {
		writeError(w, http.StatusServiceUnavailable, observability.ErrMetricsDisabled)
		return
	}

	rm, err := s.config.Metrics.Collect(r.Context())
	if errors.Is(err, observability.ErrMetricsDisabled) {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"outcomes": observability.OutcomeCounts(rm),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseFilter(r *http.Request) (dispatch.ListFilter, error) {
	q := r.URL.Query()
	filter := dispatch.ListFilter{Source: dispatch.Source(q.Get("source"))}

	if filter.Source != "" && !filter.Source.IsValid() {
		return filter, errors.New("invalid source")
	}
	if v := q.Get("success"); v != "" {
		ok, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errors.New("invalid success flag")
		}
		filter.SuccessOnly = ok
		filter.FailedOnly = !ok
	}
	if v := q.Get("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("invalid since timestamp")
		}
		filter.Since = since
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("invalid limit")
		}
		filter.Limit = n
	}
	return filter, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
