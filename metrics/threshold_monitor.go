package metrics

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/ckb-ringvote/ringvote/log"
)

// FetchFailureMonitor watches the rate of failed chain RPC calls (as
// reported through ReportFailure, e.g. by a tallier's
// GetTransaction/ScanVoteTxHashes) against a configured endpoint and escalates log level once failures
// in a period cross half, then all, of a threshold. It resets every
// period so a transient blip doesn't keep tripping the alert.
type FetchFailureMonitor struct {
	lock      sync.RWMutex
	log       log.Logger
	source    string
	threshold int
	failures  map[string]bool
	ctx       context.Context
	cancel    func()
	period    time.Duration
}

// NewFetchFailureMonitor builds a monitor for a given RPC source
// (typically a chain.HTTPSource's URL).
func NewFetchFailureMonitor(source string, l log.Logger, threshold int) *FetchFailureMonitor {
	ctx, cancel := context.WithCancel(context.Background())
	if l == nil {
		l = log.DefaultLogger()
	}
	return &FetchFailureMonitor{
		log:       l,
		source:    source,
		threshold: threshold,
		failures:  make(map[string]bool),
		ctx:       ctx,
		cancel:    cancel,
		period:    1 * time.Minute,
	}
}

// Start runs the periodic escalation check until Stop is called.
func (m *FetchFailureMonitor) Start() {
	m.log.Infow("starting fetch failure monitor", "source", m.source)

	go func() {
		for {
			select {
			case <-m.ctx.Done():
				m.log.Infow("ending fetch failure monitor", "source", m.source)
				return
			default:
				m.tick()
				time.Sleep(m.period)
			}
		}
	}()
}

func (m *FetchFailureMonitor) tick() {
	m.lock.RLock()
	var failingCalls []string
	for call := range m.failures {
		failingCalls = append(failingCalls, call)
	}
	m.lock.RUnlock()

	switch {
	case len(failingCalls) >= m.threshold:
		m.log.Errorw("failed RPC calls crossed threshold in the last period",
			"source", m.source, "threshold", m.threshold, "failures", len(failingCalls), "calls", strings.Join(failingCalls, ","))
	case len(failingCalls) >= m.threshold/2:
		m.log.Warnw("failed RPC calls crossed half threshold in the last period",
			"source", m.source, "threshold", m.threshold, "failures", len(failingCalls), "calls", strings.Join(failingCalls, ","))
	default:
		m.log.Debugw("fetch failure monitor healthy",
			"source", m.source, "threshold", m.threshold, "failures", len(failingCalls))
	}

	m.lock.Lock()
	m.failures = make(map[string]bool)
	m.lock.Unlock()
}

// Stop ends the monitor's background goroutine.
func (m *FetchFailureMonitor) Stop() {
	m.cancel()
}

// ReportFailure records a single failed RPC call (identified by method
// and target, e.g. "get_transaction:<hash>") against this monitor and
// the package-level FetchFailures counter.
func (m *FetchFailureMonitor) ReportFailure(call string) {
	m.lock.Lock()
	m.failures[call] = true
	m.lock.Unlock()
	FetchFailures.WithLabelValues(m.source).Inc()
}
