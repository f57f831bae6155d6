// Package health exposes /livez and /readyz probe endpoints backed by
// periodic background checks.
//
// Checks carry Kubernetes-style failure and success thresholds so a single
// slow database ping does not flip readiness: a probe must fail
// consecutively to be marked unhealthy, and recover consecutively to be
// marked healthy again.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// Default probe thresholds, matching Kubernetes defaults.
const (
	defaultFailureThreshold = 3
	defaultSuccessThreshold = 1
)

// CheckFunc probes one component. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

// probe is a single registered check with its threshold state.
//
// run() executes on exactly one goroutine per probe, so the consecutive
// counters need no synchronization. The healthy flag and lastErr are read
// from HTTP handler goroutines and therefore use atomics.
type probe struct {
	name             string
	timeout          time.Duration
	check            CheckFunc
	failureThreshold int
	successThreshold int

	healthy atomic.Bool
	lastErr atomic.Pointer[error]

	consecutiveFails int
	consecutiveOK    int
}

func newProbe(name string, timeout time.Duration, check CheckFunc) *probe {
	p := &probe{
		name:             name,
		timeout:          timeout,
		check:            check,
		failureThreshold: defaultFailureThreshold,
		successThreshold: defaultSuccessThreshold,
	}
	p.healthy.Store(true) // healthy until proven otherwise
	return p
}

func (p *probe) isHealthy() bool {
	return p.healthy.Load()
}

func (p *probe) getLastError() error {
	if e := p.lastErr.Load(); e != nil {
		return *e
	}
	return nil
}

// run executes the check once and advances the threshold counters.
// Must only be called from the probe's own goroutine.
func (p *probe) run(ctx context.Context) {
	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.check(checkCtx)
	p.lastErr.Store(&err)

	if err != nil {
		p.consecutiveOK = 0
		p.consecutiveFails++
		if p.consecutiveFails >= p.failureThreshold {
			p.healthy.Store(false)
		}
	} else {
		p.consecutiveFails = 0
		p.consecutiveOK++
		if p.consecutiveOK >= p.successThreshold {
			p.healthy.Store(true)
		}
	}
}

// Health owns the liveness and readiness probe sets for a service.
type Health struct {
	ready atomic.Bool

	// mu guards the probe slices and cancel. Registration happens before
	// Start; HTTP handlers snapshot the slices under RLock and release
	// immediately, never holding the lock across probe state reads.
	mu              sync.RWMutex
	livenessChecks  []*probe
	readinessChecks []*probe
	cancel          context.CancelFunc
}

// New returns a Health service in the not-ready state. Call SetReady(true)
// once startup (pool, migrations, router) has completed.
func New() *Health {
	return &Health{}
}

// AddLivenessCheck registers a probe for /livez: is the process itself
// functioning (goroutine count, GC pauses).
func (h *Health) AddLivenessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.livenessChecks = append(h.livenessChecks, newProbe(name, timeout, check))
}

// AddReadinessCheck registers a probe for /readyz: can the service take
// traffic (database reachable, dependencies up).
func (h *Health) AddReadinessCheck(name string, timeout time.Duration, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readinessChecks = append(h.readinessChecks, newProbe(name, timeout, check))
}

// Start launches one background goroutine per registered probe, each running
// at the given interval until Stop or context cancellation. Register all
// probes before calling Start.
func (h *Health) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	h.mu.Lock()
	h.cancel = cancel
	probes := make([]*probe, 0, len(h.livenessChecks)+len(h.readinessChecks))
	probes = append(probes, h.livenessChecks...)
	probes = append(probes, h.readinessChecks...)
	h.mu.Unlock()

	for _, p := range probes {
		go probeLoop(ctx, p, interval)
	}
}

func probeLoop(ctx context.Context, p *probe, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First run immediately rather than one interval in.
	p.run(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.run(ctx)
		}
	}
}

// SetReady flips the manual readiness gate: true after startup completes,
// false at the start of graceful shutdown to drain traffic.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// IsReady reports whether the service can take traffic: the manual gate is
// open and every readiness probe is currently healthy.
func (h *Health) IsReady() bool {
	if !h.ready.Load() {
		return false
	}

	h.mu.RLock()
	probes := h.readinessChecks
	h.mu.RUnlock()

	for _, p := range probes {
		if !p.isHealthy() {
			return false
		}
	}
	return true
}

// Stop cancels all probe goroutines. Safe to call more than once.
func (h *Health) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
}

// statusResponse is the JSON body served by both probe endpoints.
type statusResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LiveEndpoint serves /livez: 200 {"status":"ok"} while every liveness probe
// passes, 503 with the failing probes otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	probes := make([]*probe, len(h.livenessChecks))
	copy(probes, h.livenessChecks)
	h.mu.RUnlock()

	writeStatus(w, unhealthyProbes(probes))
}

// ReadyEndpoint serves /readyz: 200 only when the manual gate is open and
// every readiness probe passes.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	ready := h.ready.Load()

	h.mu.RLock()
	probes := make([]*probe, len(h.readinessChecks))
	copy(probes, h.readinessChecks)
	h.mu.RUnlock()

	failures := unhealthyProbes(probes)
	if !ready {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// unhealthyProbes maps probe name to error message for every probe currently
// unhealthy, using the error stored by the probe's last run.
func unhealthyProbes(probes []*probe) map[string]string {
	failures := make(map[string]string)
	for _, p := range probes {
		if p.isHealthy() {
			continue
		}
		if err := p.getLastError(); err != nil {
			failures[p.name] = err.Error()
		} else {
			failures[p.name] = "check is unhealthy"
		}
	}
	return failures
}

func writeStatus(w http.ResponseWriter, failures map[string]string) {
	w.Header().Set("Content-Type", "application/json")

	resp := statusResponse{Status: "ok"}
	status := http.StatusOK

	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Checks = failures
		status = http.StatusServiceUnavailable
	}

	w.WriteHeader(status)

	// Status code is already committed; an encode failure here means the
	// client went away.
	_ = json.NewEncoder(w).Encode(resp)
}
