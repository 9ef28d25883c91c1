// Package metrics exposes Prometheus collectors for the verifier and
// tallier, and a small standalone metrics server for mounting them
// alongside pprof debug endpoints.
package metrics

import (
	"errors"
	"net"
	"net/http"
	"runtime"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ckb-ringvote/ringvote/log"
	"github.com/ckb-ringvote/ringvote/verifier"
)

var (
	// Registry is the registry every collector in this package is
	// registered against, and the one mounted at /metrics.
	Registry = prometheus.NewRegistry()

	// VotesAccepted counts vote transactions that passed verification and
	// were not dropped as a duplicate key image.
	VotesAccepted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ringvote_votes_accepted_total",
		Help: "Number of vote transactions accepted into a tally.",
	})

	// VotesRejected counts vote transactions that failed verification,
	// labeled by verifier.Code so a bad-ring-signature spike and a
	// malformed-witness spike show up as distinct series.
	VotesRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ringvote_votes_rejected_total",
		Help: "Number of vote transactions rejected by the verifier, by error code.",
	}, []string{"code"})

	// VotesDuplicate counts vote transactions that verified correctly but
	// carried a key image already counted by an earlier transaction.
	VotesDuplicate = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ringvote_votes_duplicate_total",
		Help: "Number of otherwise-valid vote transactions dropped for reusing a key image.",
	})

	// TallyCandidateVotes is the last completed tally's per-candidate
	// count, labeled by the candidate id's uppercase little-endian hex
	// (matching the JSON/table rendering in tally.Result).
	TallyCandidateVotes = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ringvote_tally_candidate_votes",
		Help: "Vote count for a candidate as of the last completed tally run.",
	}, []string{"candidate_id"})

	// TallyRunDuration times a full Tallier.Run call.
	TallyRunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ringvote_tally_run_duration_seconds",
		Help:    "Duration of a full scan-validate-dedup-count tally run.",
		Buckets: prometheus.DefBuckets,
	})

	// HTTPCallCounter counts requests served by the status endpoint.
	HTTPCallCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ringvote_http_call_counter",
		Help: "Number of HTTP calls received by the status endpoint.",
	}, []string{"code", "method"})

	// HTTPLatency times status endpoint requests.
	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:        "ringvote_http_response_duration",
		Help:        "Histogram of status endpoint request latencies.",
		Buckets:     prometheus.DefBuckets,
		ConstLabels: prometheus.Labels{"handler": "http"},
	}, []string{"method"})

	// HTTPInFlight is a gauge of in-flight status endpoint requests.
	HTTPInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ringvote_http_in_flight",
		Help: "A gauge of status endpoint requests currently being served.",
	})

	// FetchFailures counts failed chain RPC calls, labeled by source
	// (typically a chain.HTTPSource's URL), as reported by a
	// FetchFailureMonitor.
	FetchFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ringvote_fetch_failures_total",
		Help: "Number of failed chain RPC calls, by source.",
	}, []string{"source"})

	bound = false
)

func bindMetrics() error {
	if bound {
		return nil
	}
	bound = true

	if err := Registry.Register(collectors.NewGoCollector()); err != nil {
		return err
	}
	if err := Registry.Register(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{})); err != nil {
		return err
	}

	all := []prometheus.Collector{
		VotesAccepted,
		VotesRejected,
		VotesDuplicate,
		TallyCandidateVotes,
		TallyRunDuration,
		HTTPCallCounter,
		HTTPLatency,
		HTTPInFlight,
		FetchFailures,
	}
	for _, c := range all {
		if err := Registry.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// ObserveVerifyResult records a single verifier.Verify outcome against
// VotesAccepted/VotesRejected. Callers that additionally drop the
// transaction as a duplicate key image should call VotesDuplicate.Inc()
// themselves, since Verify has no notion of tally-level dedup.
func ObserveVerifyResult(err error) {
	if err == nil {
		VotesAccepted.Inc()
		return
	}
	code := verifier.Unknown
	var vc verifier.Code
	if errors.As(err, &vc) {
		code = vc
	}
	VotesRejected.WithLabelValues(code.Error()).Inc()
}

// Handler returns the promhttp handler serving Registry, suitable for
// mounting directly on an application mux (e.g. the status server's own
// /metrics route) in addition to, or instead of, Start's standalone
// listener.
func Handler() http.Handler {
	_ = bindMetrics()
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}

// Start binds bindMetrics' collectors and listens on metricsBind,
// serving /metrics and, if non-nil, pprof debug endpoints under
// /debug/pprof.
func Start(metricsBind string, pprof http.Handler) net.Listener {
	logger := log.DefaultLogger()
	if err := bindMetrics(); err != nil {
		logger.Warnw("", "metrics", "metric setup failed", "err", err)
		return nil
	}

	if !strings.Contains(metricsBind, ":") {
		metricsBind = "localhost:" + metricsBind
	}
	l, err := net.Listen("tcp", metricsBind)
	if err != nil {
		logger.Warnw("", "metrics", "listen failed", "err", err)
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry}))
	if pprof != nil {
		mux.Handle("/debug/pprof/", pprof)
	}
	mux.HandleFunc("/debug/gc", func(w http.ResponseWriter, _ *http.Request) {
		runtime.GC()
		_, _ = w.Write([]byte("GC run complete"))
	})

	s := http.Server{Addr: l.Addr().String(), Handler: mux}
	go func() {
		logger.Warnw("", "metrics", "listen finished", "err", s.Serve(l))
	}()
	return l
}
