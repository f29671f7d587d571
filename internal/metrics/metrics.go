package metrics

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// latencyWindowSize bounds the sliding window of request durations.
const latencyWindowSize = 1000

// Aggregator holds process-wide counters for the front-end. It is created
// once in main and handed to every component that mutates or reads it; all
// counter mutation is atomic, so concurrent requests never lose updates.
type Aggregator struct {
	requestsTotal atomic.Int64
	activeJobs    atomic.Int64
	completedJobs atomic.Int64
	failedJobs    atomic.Int64
	workerErrors  atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
	next      int
	filled    bool

	startedAt time.Time
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	RequestsTotal    int64         `json:"requestsTotal"`
	ActiveJobs       int64         `json:"activeJobs"`
	CompletedJobs    int64         `json:"completedJobs"`
	FailedJobs       int64         `json:"failedJobs"`
	WorkerErrors     int64         `json:"workerErrors"`
	AverageLatencyMS float64 `json:"averageLatencyMs"`
	UptimeSeconds    float64 `json:"uptimeSeconds"`
}

// NewAggregator creates an aggregator with uptime measured from now.
func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies: make([]time.Duration, latencyWindowSize),
		startedAt: time.Now(),
	}
}

// ObserveRequest records one inbound request and its duration.
func (a *Aggregator) ObserveRequest(d time.Duration) {
	a.requestsTotal.Add(1)

	a.mu.Lock()
	a.latencies[a.next] = d
	a.next++
	if a.next == latencyWindowSize {
		a.next = 0
		a.filled = true
	}
	a.mu.Unlock()
}

// JobSubmitted bumps the active gauge for a job the worker accepted.
func (a *Aggregator) JobSubmitted() {
	a.activeJobs.Add(1)
}

// JobCompleted moves one job from active to completed. Called exactly once
// per job, on the first observed terminal transition.
func (a *Aggregator) JobCompleted() {
	a.completedJobs.Add(1)
	a.decrementActive()
}

// JobFailed moves one job from active to failed.
func (a *Aggregator) JobFailed() {
	a.failedJobs.Add(1)
	a.decrementActive()
}

// WorkerError counts a submission the worker rejected. No job was created,
// so no job counter moves.
func (a *Aggregator) WorkerError() {
	a.workerErrors.Add(1)
}

// decrementActive floors the gauge at zero; a restart of the front-end can
// observe terminal transitions for jobs whose submission it never counted.
func (a *Aggregator) decrementActive() {
	for {
		cur := a.activeJobs.Load()
		if cur <= 0 {
			return
		}
		if a.activeJobs.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

func (a *Aggregator) averageLatency() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.next
	if a.filled {
		n = latencyWindowSize
	}
	if n == 0 {
		return 0
	}
	var total time.Duration
	for i := 0; i < n; i++ {
		total += a.latencies[i]
	}
	return total / time.Duration(n)
}

// Uptime reports how long this process has been serving.
func (a *Aggregator) Uptime() time.Duration {
	return time.Since(a.startedAt)
}

// Snapshot returns a consistent-enough copy of all counters for reporting.
func (a *Aggregator) Snapshot() Snapshot {
	return Snapshot{
		RequestsTotal:    a.requestsTotal.Load(),
		ActiveJobs:       a.activeJobs.Load(),
		CompletedJobs:    a.completedJobs.Load(),
		FailedJobs:       a.failedJobs.Load(),
		WorkerErrors:     a.workerErrors.Load(),
		AverageLatencyMS: float64(a.averageLatency()) / float64(time.Millisecond),
		UptimeSeconds:    a.Uptime().Seconds(),
	}
}

// RenderText formats the snapshot in the counter/gauge text exposition
// format: help text, type, then one value per line.
func (a *Aggregator) RenderText() string {
	s := a.Snapshot()
	var b strings.Builder
	writeMetric(&b, "requests_total", "counter", "Total HTTP requests handled.", float64(s.RequestsTotal))
	writeMetric(&b, "active_jobs", "gauge", "Jobs submitted and not yet observed terminal.", float64(s.ActiveJobs))
	writeMetric(&b, "completed_jobs_total", "counter", "Jobs observed completed.", float64(s.CompletedJobs))
	writeMetric(&b, "failed_jobs_total", "counter", "Jobs observed failed.", float64(s.FailedJobs))
	writeMetric(&b, "worker_errors_total", "counter", "Submissions rejected by the worker service.", float64(s.WorkerErrors))
	writeMetric(&b, "request_latency_avg_ms", "gauge", "Average request latency over the last 1000 requests.", s.AverageLatencyMS)
	writeMetric(&b, "uptime_seconds", "gauge", "Seconds since process start.", s.UptimeSeconds)
	return b.String()
}

func writeMetric(b *strings.Builder, name, kind, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s %s\n", name, kind)
	fmt.Fprintf(b, "%s %g\n", name, value)
}
