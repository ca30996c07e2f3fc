package stats

import (
	"time"
)

// Event is the record of one request, emitted exactly once per request that
// was actually sent. Events are immutable once created.
type Event struct {
	RequestType  string        // protocol label, "TCP" for the key-value client
	Name         string        // operation name, e.g. "set_key"
	Elapsed      time.Duration // wall-clock time from before the send to after the response
	ResponseSize int           // number of response bytes received
	Err          error         // nil on success, the failure description otherwise
}

// Success reports whether the request succeeded
func (e Event) Success() bool {
	return e.Err == nil
}

// Millis returns the elapsed time in milliseconds
func (e Event) Millis() float64 {
	return float64(e.Elapsed) / float64(time.Millisecond)
}

// ISink receives metric events. Implementations must be safe for concurrent use
// since all virtual users share the same sink.
type ISink interface {
	Record(e Event)
}
