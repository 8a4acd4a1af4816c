// Package api serves stored backtest runs over HTTP and streams trades over websockets.
package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"bar-backtest-lab/internal/backtest"
	"bar-backtest-lab/internal/domain"
	"bar-backtest-lab/internal/metrics"
	"bar-backtest-lab/internal/observability"
	"bar-backtest-lab/internal/reporting"
	"bar-backtest-lab/internal/storage"
	"bar-backtest-lab/internal/strategy"
)

// Options wires the server to stores and, optionally, to a runner for new runs.
type Options struct {
	Runs   storage.RunStore
	Trades storage.TradeStore
	Events storage.SignalEventStore // optional

	// Runner and Driver enable POST /runs. Both nil disables it.
	Runner *backtest.Runner
	Driver *backtest.Driver

	// StreamInterval paces websocket trade messages. Zero sends without delay.
	StreamInterval time.Duration

	Logger *zap.Logger
}

// Server is the HTTP API.
type Server struct {
	opts       Options
	aggregator *metrics.Aggregator
	generator  *reporting.Generator
	logger     *zap.Logger
	mux        *http.ServeMux
}

// NewServer creates the server and registers routes.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		opts:       opts,
		aggregator: metrics.NewAggregator(opts.Runs, opts.Trades),
		generator:  reporting.NewGenerator(opts.Runs, opts.Trades),
		logger:     logger,
		mux:        http.NewServeMux(),
	}

	s.route("GET /health", "health", s.handleHealth)
	s.mux.Handle("GET /metrics", observability.Handler())
	s.route("GET /runs", "runs", s.handleListRuns)
	s.route("POST /runs", "runs_create", s.handleCreateRun)
	s.route("GET /runs/{id}", "run", s.handleGetRun)
	s.route("GET /runs/{id}/trades", "run_trades", s.handleTrades)
	s.route("GET /runs/{id}/events", "run_events", s.handleEvents)
	s.route("GET /runs/{id}/report", "run_report", s.handleReport)
	s.route("GET /runs/{id}/stream", "run_stream", s.handleStream)

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// route registers a handler that records request metrics under name.
func (s *Server) route(pattern, name string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		observability.RecordHTTPRequest(name, strconv.Itoa(rec.status))
	})
}

// statusRecorder captures the response code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack exposes the underlying connection for websocket upgrades.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// runResponse is the body of GET /runs/{id}.
type runResponse struct {
	Run     *domain.RunRecord `json:"run"`
	Summary *domain.Summary   `json:"summary"`
}

// createRunRequest is the body of POST /runs.
type createRunRequest struct {
	Symbol   string                `json:"symbol"`
	From     int64                 `json:"from"` // Unix ms, inclusive
	To       int64                 `json:"to"`   // Unix ms, inclusive; 0 loads every bar
	Strategy domain.StrategyConfig `json:"strategy"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	runs, err := s.opts.Runs.List(r.Context(), limit)
	if err != nil {
		s.fail(w, err)
		return
	}
	if runs == nil {
		runs = []*domain.RunRecord{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	run, err := s.opts.Runs.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	summary, err := s.aggregator.Summarize(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Run: run, Summary: summary})
}

func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.opts.Runs.GetByID(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}

	trades, err := s.opts.Trades.GetByRunID(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if trades == nil {
		trades = []*domain.Trade{}
	}
	writeJSON(w, http.StatusOK, trades)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.opts.Events == nil {
		writeError(w, http.StatusNotImplemented, "event log storage not configured")
		return
	}

	id := r.PathValue("id")
	if _, err := s.opts.Runs.GetByID(r.Context(), id); err != nil {
		s.fail(w, err)
		return
	}

	events, err := s.opts.Events.GetByRunID(r.Context(), id)
	if err != nil {
		s.fail(w, err)
		return
	}
	if events == nil {
		events = []*domain.SignalEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := s.generator.Generate(r.Context(), r.PathValue("id"))
	if err != nil {
		s.fail(w, err)
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "md", "markdown":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(reporting.RenderMarkdown(report)))
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		_, _ = w.Write([]byte(reporting.RenderTradesCSV(report)))
	case "json":
		writeJSON(w, http.StatusOK, report)
	default:
		writeError(w, http.StatusBadRequest, "unknown format "+format)
	}
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runner == nil || s.opts.Driver == nil {
		writeError(w, http.StatusNotImplemented, "runs cannot be started on this server")
		return
	}

	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	symbol := s.opts.Driver.Instrument().Symbol
	if req.Symbol == "" {
		req.Symbol = symbol
	}
	if !strings.EqualFold(req.Symbol, symbol) {
		writeError(w, http.StatusBadRequest, "server is configured for "+symbol)
		return
	}
	req.Symbol = symbol

	strat, err := strategy.FromConfig(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.opts.Runner.RunStored(r.Context(), s.opts.Driver, req.Symbol, req.From, req.To, strat)
	if err != nil {
		s.fail(w, err)
		return
	}

	summary := metrics.Compute(out.Record.InitialBalance, out.Result.Trades)
	summary.RunID = out.Record.RunID
	summary.StrategyID = out.Record.StrategyID
	writeJSON(w, http.StatusCreated, runResponse{Run: out.Record, Summary: summary})
}

// fail maps domain errors to status codes.
func (s *Server) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, backtest.ErrNoBars):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrConfiguration), errors.Is(err, storage.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotConfigured):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		s.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
