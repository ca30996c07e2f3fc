package stats

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// OpReport is one row of a report
type OpReport struct {
	Type           string  `json:"type"`
	Name           string  `json:"name"`
	Requests       int64   `json:"requests"`
	Failures       int64   `json:"failures"`
	FailRate       float64 `json:"fail_rate"`
	AvgMs          float64 `json:"avg_ms"`
	MinMs          float64 `json:"min_ms"`
	P50Ms          float64 `json:"p50_ms"`
	P95Ms          float64 `json:"p95_ms"`
	P99Ms          float64 `json:"p99_ms"`
	MaxMs          float64 `json:"max_ms"`
	AvgSize        int     `json:"avg_size"`
	P95Size        int     `json:"p95_size"`
	RPS            float64 `json:"rps"`
	FailuresPerSec float64 `json:"failures_per_sec"`
	CurrentRPS     float64 `json:"current_rps"`
}

// ErrorReport counts the failures of one operation with the same message
type ErrorReport struct {
	Type        string `json:"type"`
	Name        string `json:"name"`
	Message     string `json:"message"`
	Occurrences int64  `json:"occurrences"`
}

// Report is a point in time view of the collected statistics
type Report struct {
	Start    time.Time     `json:"start"`
	Duration time.Duration `json:"duration"`
	Ops      []OpReport    `json:"ops"`
	Total    OpReport      `json:"total"`
	Errors   []ErrorReport `json:"errors"`
}

// Op returns the row for the given operation name
func (r *Report) Op(name string) (OpReport, bool) {
	for _, op := range r.Ops {
		if op.Name == name {
			return op, true
		}
	}
	return OpReport{}, false
}

// String renders the report as a table
func (r *Report) String() string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-6s %-12s %10s %10s %8s %8s %8s %8s %8s %8s %10s %10s\n",
		"Type", "Name", "# reqs", "# fails", "Avg", "Min", "Med", "95%", "99%", "Max", "req/s", "fails/s")
	b.WriteString(strings.Repeat("-", 118) + "\n")
	for _, op := range r.Ops {
		writeRow(&b, op)
	}
	b.WriteString(strings.Repeat("-", 118) + "\n")
	writeRow(&b, r.Total)

	if len(r.Errors) > 0 {
		b.WriteString("\nFailures:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "%8d  %s %s: %s\n", e.Occurrences, e.Type, e.Name, e.Message)
		}
	}
	return b.String()
}

func writeRow(b *strings.Builder, op OpReport) {
	fmt.Fprintf(b, "%-6s %-12s %10d %10s %8.2f %8.2f %8.2f %8.2f %8.2f %8.2f %10.2f %10.2f\n",
		op.Type, op.Name, op.Requests,
		fmt.Sprintf("%d(%.1f%%)", op.Failures, op.FailRate*100),
		op.AvgMs, op.MinMs, op.P50Ms, op.P95Ms, op.P99Ms, op.MaxMs,
		op.RPS, op.FailuresPerSec)
}

// WriteCSV writes one line per operation plus the aggregated row to csvPath
func (r *Report) WriteCSV(csvPath string) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Type", "Name", "Requests", "Failures", "FailRate",
		"AvgMs", "MinMs", "P50Ms", "P95Ms", "P99Ms", "MaxMs",
		"AvgSize", "P95Size", "RequestsPerSec", "FailuresPerSec", "DurationSec",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	rows := append(append([]OpReport{}, r.Ops...), r.Total)
	for _, op := range rows {
		row := []string{
			op.Type,
			op.Name,
			strconv.FormatInt(op.Requests, 10),
			strconv.FormatInt(op.Failures, 10),
			formatFloat(op.FailRate),
			formatFloat(op.AvgMs),
			formatFloat(op.MinMs),
			formatFloat(op.P50Ms),
			formatFloat(op.P95Ms),
			formatFloat(op.P99Ms),
			formatFloat(op.MaxMs),
			strconv.Itoa(op.AvgSize),
			strconv.Itoa(op.P95Size),
			formatFloat(op.RPS),
			formatFloat(op.FailuresPerSec),
			formatFloat(r.Duration.Seconds()),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", op.Name, err)
		}
	}

	writer.Flush()
	return writer.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}
