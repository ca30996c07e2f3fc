// Package stats collects the metric events emitted by the virtual users and
// turns them into reports.
//
// Key Components:
//
//   - Event/ISink: one immutable record per sent request and the interface
//     that receives it. A GET on an empty key registry sends nothing and
//     therefore emits no event.
//
//   - Collector: the shared ISink of a run. Events are grouped by request
//     type and name. Per group it keeps request and failure counters, exact
//     min/avg/max latency, percentiles over a sliding window of samples
//     (tachymeter), a response size histogram, a one minute throughput rate
//     (go-metrics Meter) and the failure messages with their counts.
//     All counters are mirrored into a VictoriaMetrics set for prometheus.
//
//   - Report: a snapshot of the collector, printable as a table and
//     exportable as CSV.
//
//   - Router/ServeMetrics: an optional http endpoint with /metrics
//     (prometheus text format) and /stats (json report).
package stats
