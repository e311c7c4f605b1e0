// Package httpapi exposes the API concept over HTTP.
//
// POST /api/{method} turns the JSON body into an API.request stimulus,
// lets the cascade run, then answers with the output the rules assembled
// for that request.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pmanandhar1452/sync-simulation-incremental/internal/engine"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/ir"
	"github.com/pmanandhar1452/sync-simulation-incremental/internal/store"
)

// FlowHeader carries the flow token of the cascade a request started.
const FlowHeader = "X-Syncsim-Flow"

const maxBodyBytes = 1 << 20

// Server routes HTTP requests to the API concept.
type Server struct {
	api     *engine.Handle
	logger  *slog.Logger
	store   *store.Store
	metrics http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithStore serves the trace log under /debug/flows.
func WithStore(st *store.Store) Option {
	return func(s *Server) { s.store = st }
}

// WithMetrics serves h at /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// NewHandler returns the HTTP handler for api, the instrumented API
// concept.
func NewHandler(api *engine.Handle, opts ...Option) http.Handler {
	s := &Server{api: api, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(enableCORS)

	r.Get("/healthz", s.health)
	r.Post("/api/{method}", s.call)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	if s.store != nil {
		r.Get("/debug/flows", s.listFlows)
		r.Get("/debug/flows/{flow}", s.getFlow)
	}
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "timestamp": time.Now().UnixMilli()})
}

// call handles POST /api/{method}.
func (s *Server) call(w http.ResponseWriter, r *http.Request) {
	method := chi.URLParam(r, "method")

	input, err := readObject(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("invalid request body", "method", method, "error", err)
		return
	}
	delete(input, "request")
	input["method"] = ir.IRString(method)

	out, err := s.api.Dispatch(r.Context(), "request", input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "request failed")
		s.logger.Error("api request failed", "method", method, "error", err)
		return
	}
	w.Header().Set(FlowHeader, out.Flow)
	if msg := out.Output.String(ir.ErrorField); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	rows, err := s.api.Query(r.Context(), "_get", ir.IRObject{"request": out.Output["request"]})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read response failed")
		s.logger.Error("read api response failed", "method", method, "error", err)
		return
	}
	if len(rows) == 0 {
		writeError(w, http.StatusNotFound, "request not found")
		return
	}
	output, _ := rows[0].Get("output")
	if _, unset := output.(ir.IRNull); unset || output == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no rule answered method %q", method))
		return
	}
	writeIR(w, http.StatusOK, output)
}

func (s *Server) listFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := s.store.ListFlows(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list flows failed")
		s.logger.Error("list flows failed", "error", err)
		return
	}
	writeJSON(w, http.StatusOK, flows)
}

func (s *Server) getFlow(w http.ResponseWriter, r *http.Request) {
	flow := chi.URLParam(r, "flow")
	records, err := s.store.ReadFlow(r.Context(), flow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read flow failed")
		s.logger.Error("read flow failed", "flow", flow, "error", err)
		return
	}
	faults, err := s.store.ReadFaults(r.Context(), flow)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "read faults failed")
		s.logger.Error("read faults failed", "flow", flow, "error", err)
		return
	}
	if len(records) == 0 && len(faults) == 0 {
		writeError(w, http.StatusNotFound, "flow not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"flow": flow, "records": records, "faults": faults})
}

func readObject(r *http.Request) (ir.IRObject, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return ir.IRObject{}, nil
	}
	var obj ir.IRObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		obj = ir.IRObject{}
	}
	return obj, nil
}

func writeIR(w http.ResponseWriter, status int, v ir.IRValue) {
	data, err := ir.MarshalCanonical(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode response failed")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("response encode failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
