package stats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"github.com/goccy/go-json"
	gometrics "github.com/rcrowley/go-metrics"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func event(name string, ms int, size int, err error) Event {
	return Event{
		RequestType:  "TCP",
		Name:         name,
		Elapsed:      time.Duration(ms) * time.Millisecond,
		ResponseSize: size,
		Err:          err,
	}
}

// TestCollectorAggregation checks counters, latencies and failures per operation
func TestCollectorAggregation(t *testing.T) {
	c := NewCollector(0)
	defer c.Close()

	c.Record(event("set_key", 10, 60, nil))
	c.Record(event("set_key", 30, 60, nil))
	c.Record(event("set_key", 20, 40, errors.New("boom")))
	c.Record(event("get_key", 5, 30, errors.New("not found")))

	report := c.Snapshot()

	if len(report.Ops) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(report.Ops))
	}
	// rows are sorted by name
	if report.Ops[0].Name != "get_key" || report.Ops[1].Name != "set_key" {
		t.Errorf("unexpected row order: %s, %s", report.Ops[0].Name, report.Ops[1].Name)
	}

	set, ok := report.Op("set_key")
	if !ok {
		t.Fatalf("set_key missing from report")
	}
	if set.Requests != 3 || set.Failures != 1 {
		t.Errorf("set_key requests=%d failures=%d, want 3 and 1", set.Requests, set.Failures)
	}
	if set.MinMs != 10 || set.MaxMs != 30 || set.AvgMs != 20 {
		t.Errorf("set_key min=%.2f avg=%.2f max=%.2f, want 10, 20, 30", set.MinMs, set.AvgMs, set.MaxMs)
	}
	if set.AvgSize != 53 {
		t.Errorf("set_key avg size = %d, want 53", set.AvgSize)
	}
	if set.P50Ms < set.MinMs || set.P99Ms > set.MaxMs {
		t.Errorf("percentiles out of range: p50=%.2f p99=%.2f", set.P50Ms, set.P99Ms)
	}

	if report.Total.Name != AggregatedName || report.Total.Requests != 4 || report.Total.Failures != 2 {
		t.Errorf("unexpected total row %+v", report.Total)
	}
	if report.Total.FailRate != 0.5 {
		t.Errorf("total fail rate = %.2f, want 0.5", report.Total.FailRate)
	}

	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 error groups, got %d", len(report.Errors))
	}
}

// TestCollectorGroupsErrors checks that equal messages are counted together
func TestCollectorGroupsErrors(t *testing.T) {
	c := NewCollector(0)
	defer c.Close()

	for i := 0; i < 3; i++ {
		c.Record(event("get_key", 1, 10, errors.New("not found")))
	}
	c.Record(event("get_key", 1, 10, errors.New("connection refused")))

	report := c.Snapshot()
	if len(report.Errors) != 2 {
		t.Fatalf("expected 2 error groups, got %d", len(report.Errors))
	}
	if report.Errors[0].Message != "not found" || report.Errors[0].Occurrences != 3 {
		t.Errorf("most frequent error = %+v", report.Errors[0])
	}
}

// TestCollectorConcurrentRecord records from many goroutines at once
func TestCollectorConcurrentRecord(t *testing.T) {
	c := NewCollector(100)
	defer c.Close()

	var wg sync.WaitGroup
	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				c.Record(event("set_key", i%7+1, 50, nil))
				if i%50 == 0 {
					_ = c.Snapshot()
				}
			}
		}()
	}
	wg.Wait()

	report := c.Snapshot()
	if report.Total.Requests != 10000 {
		t.Errorf("total requests = %d, want 10000", report.Total.Requests)
	}
	if report.Total.MinMs != 1 || report.Total.MaxMs != 7 {
		t.Errorf("min=%.2f max=%.2f, want 1 and 7", report.Total.MinMs, report.Total.MaxMs)
	}
}

// TestEmptySnapshot checks that a snapshot without events does not fail
func TestEmptySnapshot(t *testing.T) {
	c := NewCollector(0)
	defer c.Close()

	report := c.Snapshot()
	if len(report.Ops) != 0 || report.Total.Requests != 0 {
		t.Errorf("unexpected report %+v", report)
	}
	if !strings.Contains(report.String(), AggregatedName) {
		t.Errorf("table must contain the aggregated row")
	}
}

// TestReportWithoutMinimum checks that a row whose minimum is not yet stored
// reports 0 instead of the sentinel
func TestReportWithoutMinimum(t *testing.T) {
	op := newOpStats("GET", "k", 10, gometrics.NewMeter())
	defer op.meter.Stop()
	op.requests.Store(1)
	op.totalNs.Store(int64(time.Millisecond))

	r := op.report(time.Second)
	if r.MinMs != 0 {
		t.Errorf("MinMs = %.2f, want 0", r.MinMs)
	}
}

// TestReportString checks the rendered table
func TestReportString(t *testing.T) {
	c := NewCollector(0)
	defer c.Close()
	c.Record(event("set_key", 2, 10, nil))
	c.Record(event("get_key", 2, 10, errors.New("not found")))

	out := c.Snapshot().String()
	for _, want := range []string{"set_key", "get_key", AggregatedName, "Failures:", "not found"} {
		if !strings.Contains(out, want) {
			t.Errorf("table does not contain %q:\n%s", want, out)
		}
	}
}

// TestWriteCSV checks the csv export
func TestWriteCSV(t *testing.T) {
	c := NewCollector(0)
	defer c.Close()
	c.Record(event("set_key", 2, 10, nil))
	c.Record(event("get_key", 4, 10, nil))

	path := filepath.Join(t.TempDir(), "results.csv")
	if err := c.Snapshot().WriteCSV(path); err != nil {
		t.Fatalf("WriteCSV() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read csv: %v", err)
	}
	records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("invalid csv: %v", err)
	}
	// header + 2 operations + aggregated
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	if records[0][0] != "Type" || records[3][1] != AggregatedName {
		t.Errorf("unexpected csv layout: %v", records)
	}
}

// TestWritePrometheus checks the exposed metric names
func TestWritePrometheus(t *testing.T) {
	c := NewCollector(0)
	defer c.Close()
	c.Record(event("set_key", 2, 10, nil))
	c.Record(event("set_key", 2, 10, errors.New("boom")))

	var buf bytes.Buffer
	c.WritePrometheus(&buf)
	out := buf.String()

	for _, want := range []string{
		`kvload_requests_total{type="TCP",name="set_key"} 2`,
		`kvload_failures_total{type="TCP",name="set_key"} 1`,
		`kvload_response_bytes_total{type="TCP",name="set_key"} 20`,
		`kvload_request_duration_seconds_bucket`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("prometheus output does not contain %q:\n%s", want, out)
		}
	}
}

// TestRouter checks the http endpoints
func TestRouter(t *testing.T) {
	c := NewCollector(0)
	defer c.Close()
	c.Record(event("set_key", 2, 10, nil))

	srv := httptest.NewServer(c.Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatalf("GET /stats error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET /stats status = %d", resp.StatusCode)
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		t.Fatalf("failed to decode stats: %v", err)
	}
	if report.Total.Requests != 1 {
		t.Errorf("total requests = %d, want 1", report.Total.Requests)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("GET /metrics status = %d", resp.StatusCode)
	}
}

// TestSizeHistogram checks the response size buckets
func TestSizeHistogram(t *testing.T) {
	h := newSizeHistogram()
	if h.Average() != 0 || h.Percentile(50) != 0 {
		t.Errorf("empty histogram must report 0")
	}

	for i := 0; i < 90; i++ {
		h.AddSample(20)
	}
	for i := 0; i < 10; i++ {
		h.AddSample(5000)
	}

	if got := h.Percentile(50); got != 32 {
		t.Errorf("Percentile(50) = %d, want 32", got)
	}
	if got := h.Percentile(95); got != 16384 {
		t.Errorf("Percentile(95) = %d, want 16384", got)
	}
	if got := h.Average(); got != 518 {
		t.Errorf("Average() = %d, want 518", got)
	}
}
