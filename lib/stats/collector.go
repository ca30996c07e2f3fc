package stats

import (
	"fmt"
	vm "github.com/VictoriaMetrics/metrics"
	"github.com/jamiealquiza/tachymeter"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	gometrics "github.com/rcrowley/go-metrics"
	"io"
	"math"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("stats")

const (
	// DefaultSamples is the number of latency samples kept per operation for percentiles
	DefaultSamples = 10000

	// AggregatedName is the name of the row that sums up all operations
	AggregatedName = "Aggregated"
)

// --------------------------------------------------------------------------
// Per operation statistics
// --------------------------------------------------------------------------

// opStats holds the statistics of one (request type, name) pair
type opStats struct {
	requestType string
	name        string

	requests atomic.Int64
	failures atomic.Int64
	totalNs  atomic.Int64
	minNs    atomic.Int64
	maxNs    atomic.Int64

	mu        sync.Mutex // guards latencies
	latencies *tachymeter.Tachymeter

	sizes  *sizeHistogram
	meter  gometrics.Meter
	errors *xsync.MapOf[string, *atomic.Int64]

	// prometheus exposition, nil for the aggregated row
	vmRequests *vm.Counter
	vmFailures *vm.Counter
	vmBytes    *vm.Counter
	vmLatency  *vm.Histogram
}

func newOpStats(requestType, name string, samples int, meter gometrics.Meter) *opStats {
	op := &opStats{
		requestType: requestType,
		name:        name,
		latencies:   tachymeter.New(&tachymeter.Config{Size: samples}),
		sizes:       newSizeHistogram(),
		meter:       meter,
		errors:      xsync.NewMapOf[string, *atomic.Int64](),
	}
	op.minNs.Store(math.MaxInt64)
	return op
}

func (op *opStats) add(e Event) {
	ns := int64(e.Elapsed)

	// requests is bumped last, a reader that sees a request also sees its min and max
	op.totalNs.Add(ns)
	storeMin(&op.minNs, ns)
	storeMax(&op.maxNs, ns)
	op.requests.Add(1)

	op.mu.Lock()
	op.latencies.AddTime(e.Elapsed)
	op.mu.Unlock()

	op.sizes.AddSample(e.ResponseSize)
	op.meter.Mark(1)

	if !e.Success() {
		op.failures.Add(1)
		counter, _ := op.errors.LoadOrCompute(e.Err.Error(), func() *atomic.Int64 {
			return &atomic.Int64{}
		})
		counter.Add(1)
	}

	if op.vmRequests != nil {
		op.vmRequests.Inc()
		op.vmBytes.Add(e.ResponseSize)
		op.vmLatency.Update(e.Elapsed.Seconds())
		if !e.Success() {
			op.vmFailures.Inc()
		}
	}
}

// report builds the report row, elapsed is the time since the collector was started
func (op *opStats) report(elapsed time.Duration) OpReport {
	r := OpReport{
		Type:     op.requestType,
		Name:     op.name,
		Requests: op.requests.Load(),
		Failures: op.failures.Load(),
	}
	if r.Requests == 0 {
		return r
	}

	op.mu.Lock()
	op.latencies.SetWallTime(elapsed)
	m := op.latencies.Calc()
	op.mu.Unlock()

	r.FailRate = float64(r.Failures) / float64(r.Requests)
	r.AvgMs = nsToMs(op.totalNs.Load() / r.Requests)
	if minNs := op.minNs.Load(); minNs != math.MaxInt64 {
		r.MinMs = nsToMs(minNs)
	}
	r.MaxMs = nsToMs(op.maxNs.Load())
	r.P50Ms = durationToMs(m.Time.P50)
	r.P95Ms = durationToMs(m.Time.P95)
	r.P99Ms = durationToMs(m.Time.P99)
	r.AvgSize = op.sizes.Average()
	r.P95Size = op.sizes.Percentile(95)
	r.CurrentRPS = op.meter.Rate1()
	if secs := elapsed.Seconds(); secs > 0 {
		r.RPS = float64(r.Requests) / secs
		r.FailuresPerSec = float64(r.Failures) / secs
	}
	return r
}

// --------------------------------------------------------------------------
// Collector
// --------------------------------------------------------------------------

// Collector aggregates metric events of all virtual users.
// It implements ISink and is safe for concurrent use.
type Collector struct {
	start    time.Time
	samples  int
	ops      *xsync.MapOf[string, *opStats]
	total    *opStats
	set      *vm.Set
	registry gometrics.Registry
}

// NewCollector creates a new collector, samples is the number of latency samples
// kept per operation (<= 0 uses DefaultSamples)
func NewCollector(samples int) *Collector {
	if samples <= 0 {
		samples = DefaultSamples
	}
	registry := gometrics.NewRegistry()
	return &Collector{
		start:    time.Now(),
		samples:  samples,
		ops:      xsync.NewMapOf[string, *opStats](),
		total:    newOpStats("", AggregatedName, samples, gometrics.GetOrRegisterMeter(AggregatedName, registry)),
		set:      vm.NewSet(),
		registry: registry,
	}
}

// Record adds an event to the statistics of its operation and to the aggregated row
func (c *Collector) Record(e Event) {
	op := c.getOrCreate(e.RequestType, e.Name)
	op.add(e)
	c.total.add(e)

	if !e.Success() {
		Logger.Debugf("%s %s failed after %s: %v", e.RequestType, e.Name, e.Elapsed, e.Err)
	}
}

// Snapshot returns the current statistics, rows are sorted by type and name
func (c *Collector) Snapshot() *Report {
	elapsed := time.Since(c.start)
	report := &Report{
		Start:    c.start,
		Duration: elapsed,
	}

	c.ops.Range(func(_ string, op *opStats) bool {
		report.Ops = append(report.Ops, op.report(elapsed))
		op.errors.Range(func(msg string, count *atomic.Int64) bool {
			report.Errors = append(report.Errors, ErrorReport{
				Type:        op.requestType,
				Name:        op.name,
				Message:     msg,
				Occurrences: count.Load(),
			})
			return true
		})
		return true
	})
	report.Total = c.total.report(elapsed)

	sort.Slice(report.Ops, func(i, j int) bool {
		if report.Ops[i].Type != report.Ops[j].Type {
			return report.Ops[i].Type < report.Ops[j].Type
		}
		return report.Ops[i].Name < report.Ops[j].Name
	})
	sort.Slice(report.Errors, func(i, j int) bool {
		return report.Errors[i].Occurrences > report.Errors[j].Occurrences
	})
	return report
}

// WritePrometheus writes all counters and histograms in the prometheus text format
func (c *Collector) WritePrometheus(w io.Writer) {
	c.set.WritePrometheus(w)
}

// Close stops the throughput meters
func (c *Collector) Close() {
	c.registry.UnregisterAll()
}

func (c *Collector) getOrCreate(requestType, name string) *opStats {
	key := requestType + " " + name
	op, _ := c.ops.LoadOrCompute(key, func() *opStats {
		op := newOpStats(requestType, name, c.samples, gometrics.GetOrRegisterMeter(key, c.registry))
		labels := fmt.Sprintf(`{type=%q,name=%q}`, requestType, name)
		op.vmRequests = c.set.GetOrCreateCounter("kvload_requests_total" + labels)
		op.vmFailures = c.set.GetOrCreateCounter("kvload_failures_total" + labels)
		op.vmBytes = c.set.GetOrCreateCounter("kvload_response_bytes_total" + labels)
		op.vmLatency = c.set.GetOrCreateHistogram("kvload_request_duration_seconds" + labels)
		return op
	})
	return op
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func storeMin(v *atomic.Int64, n int64) {
	for {
		cur := v.Load()
		if n >= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}

func storeMax(v *atomic.Int64, n int64) {
	for {
		cur := v.Load()
		if n <= cur || v.CompareAndSwap(cur, n) {
			return
		}
	}
}

func nsToMs(ns int64) float64 {
	return float64(ns) / float64(time.Millisecond)
}

func durationToMs(d time.Duration) float64 {
	return nsToMs(int64(d))
}
