// Package http exposes the tallier's results over a small read-only
// HTTP surface: the last completed tally as JSON and a liveness check.
package http

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ckb-ringvote/ringvote/log"
	"github.com/ckb-ringvote/ringvote/metrics"
	"github.com/ckb-ringvote/ringvote/tally"
)

// Handler serves the most recent tally.Result produced by a background
// tally loop, plus liveness and metrics endpoints.
type Handler struct {
	httpHandler http.Handler
	log         log.Logger

	stateLk sync.RWMutex
	result  *tally.Result
	updated time.Time
	lastErr error
}

// New builds a Handler. Call Update whenever a Tallier.Run completes,
// successfully or not, to keep /tally and /health current.
func New(logger log.Logger) *Handler {
	if logger == nil {
		logger = log.DefaultLogger()
	}
	h := &Handler{log: logger}

	mux := chi.NewMux()
	mux.Get("/tally", h.serveTally)
	mux.Get("/health", h.serveHealth)
	mux.Handle("/metrics", metrics.Handler())

	h.httpHandler = withCommonHeaders(instrument(mux))
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.httpHandler.ServeHTTP(w, r)
}

// Update records the outcome of a tally run. A nil err replaces the
// served result; a non-nil err leaves the last-good result in place
// (if any) but marks /health unhealthy until a successful run follows.
func (h *Handler) Update(result *tally.Result, err error) {
	h.stateLk.Lock()
	defer h.stateLk.Unlock()
	h.updated = time.Now()
	h.lastErr = err
	if err == nil {
		h.result = result
	}
}

func (h *Handler) snapshot() (*tally.Result, time.Time, error) {
	h.stateLk.RLock()
	defer h.stateLk.RUnlock()
	return h.result, h.updated, h.lastErr
}

func (h *Handler) serveTally(w http.ResponseWriter, r *http.Request) {
	result, _, _ := h.snapshot()
	if result == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"no tally run has completed yet"}`))
		return
	}
	body, err := result.JSON()
	if err != nil {
		h.log.Errorw("http: encode tally result", "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(body)
}

type healthBody struct {
	Healthy     bool      `json:"healthy"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
	Error       string    `json:"error,omitempty"`
}

func (h *Handler) serveHealth(w http.ResponseWriter, r *http.Request) {
	result, updated, err := h.snapshot()
	body := healthBody{Healthy: result != nil && err == nil, LastUpdated: updated}
	if err != nil {
		body.Error = err.Error()
	}
	w.Header().Set("Content-Type", "application/json")
	if !body.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(body)
}

// withCommonHeaders stamps every response with a server identifier.
func withCommonHeaders(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Server", "ringvote")
		h.ServeHTTP(w, r)
	})
}

// instrument wraps h with the request-count, latency, and in-flight
// collectors from the metrics package.
func instrument(h http.Handler) http.Handler {
	return promhttp.InstrumentHandlerInFlight(metrics.HTTPInFlight,
		promhttp.InstrumentHandlerDuration(metrics.HTTPLatency,
			promhttp.InstrumentHandlerCounter(metrics.HTTPCallCounter, h)))
}
