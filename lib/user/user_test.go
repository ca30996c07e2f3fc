package user

import (
	"context"
	"errors"
	"github.com/ValentinKolb/kvload/lib/stats"
	"github.com/ValentinKolb/kvload/rpc/common"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClient records requests and answers with a fixed response function
type fakeClient struct {
	mu         sync.Mutex
	requests   []*common.Request
	connects   int
	closes     int
	connectErr error
	respond    func(req *common.Request) *common.Response
}

func (f *fakeClient) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connects++
	return f.connectErr
}

func (f *fakeClient) Send(req *common.Request) *common.Response {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	resp := common.NewOKResponse("")
	resp.Size = 15
	return resp
}

func (f *fakeClient) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

// eventRecorder is a concurrent-safe sink keeping all events
type eventRecorder struct {
	mu     sync.Mutex
	events []stats.Event
}

func (r *eventRecorder) Record(e stats.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) all() []stats.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]stats.Event{}, r.events...)
}

func newTestUser(t *testing.T, config Config, client *fakeClient) (*User, *eventRecorder) {
	t.Helper()
	if config.Seed == 0 {
		config.Seed = 1
	}
	sink := &eventRecorder{}
	u, err := New(config, func() IClient { return client }, sink)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return u, sink
}

// TestGetKeyEmptyRegistry checks that a GET without written keys does nothing
func TestGetKeyEmptyRegistry(t *testing.T) {
	client := &fakeClient{}
	u, sink := newTestUser(t, DefaultConfig(), client)
	u.OnStart()
	defer u.OnStop()

	u.GetKey()

	if len(client.requests) != 0 {
		t.Errorf("GET on empty registry sent %d requests", len(client.requests))
	}
	if len(sink.all()) != 0 {
		t.Errorf("GET on empty registry emitted %d events", len(sink.all()))
	}
}

// TestSetKey checks the SET request, the registry and the emitted event
func TestSetKey(t *testing.T) {
	client := &fakeClient{}
	u, sink := newTestUser(t, DefaultConfig(), client)
	u.now = func() time.Time { return time.UnixMilli(1000) }
	u.OnStart()
	defer u.OnStop()

	u.SetKey()

	if len(client.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(client.requests))
	}
	req := client.requests[0]
	if req.Key != "key_1000" || !req.IsSet() || !strings.HasPrefix(*req.Value, "value_") {
		t.Errorf("unexpected request %s", req)
	}
	if keys := u.Registry().Keys(); len(keys) != 1 || keys[0] != "key_1000" {
		t.Errorf("registry = %v, want [key_1000]", keys)
	}

	events := sink.all()
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	e := events[0]
	if e.Name != TaskSetKey || e.RequestType != RequestType || !e.Success() || e.ResponseSize != 15 {
		t.Errorf("unexpected event %+v", e)
	}
}

// TestGetKeyUsesWrittenKey checks that GET only reads keys written before
func TestGetKeyUsesWrittenKey(t *testing.T) {
	client := &fakeClient{}
	u, sink := newTestUser(t, DefaultConfig(), client)
	u.OnStart()
	defer u.OnStop()

	u.SetKey()
	written := client.requests[0].Key
	for i := 0; i < 10; i++ {
		u.GetKey()
	}

	for _, req := range client.requests[1:] {
		if req.IsSet() || req.Key != written {
			t.Errorf("unexpected GET request %s", req)
		}
	}
	if n := len(sink.all()); n != 11 {
		t.Errorf("expected 11 events, got %d", n)
	}
}

// TestFailedRequestEvent checks that ERROR responses become failed events carrying the message
func TestFailedRequestEvent(t *testing.T) {
	client := &fakeClient{respond: func(req *common.Request) *common.Response {
		return common.NewErrorResponse("not found")
	}}
	u, sink := newTestUser(t, DefaultConfig(), client)
	u.OnStart()
	defer u.OnStop()

	u.SetKey()
	u.GetKey()

	events := sink.all()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	for _, e := range events {
		if e.Success() || e.Err.Error() != "not found" {
			t.Errorf("unexpected event %+v", e)
		}
	}
	// the key is kept even though the SET failed
	if u.Registry().Len() != 1 {
		t.Errorf("registry len = %d, want 1", u.Registry().Len())
	}
}

// TestWeightedSelection checks that the SET:GET ratio converges to 2:1
func TestWeightedSelection(t *testing.T) {
	client := &fakeClient{}
	u, _ := newTestUser(t, DefaultConfig(), client)

	counts := map[string]int{}
	const ticks = 30000
	for i := 0; i < ticks; i++ {
		counts[u.pick().Name]++
	}

	ratio := float64(counts[TaskSetKey]) / float64(counts[TaskGetKey])
	if ratio < 1.85 || ratio > 2.15 {
		t.Errorf("SET:GET ratio = %.3f (%v), want about 2", ratio, counts)
	}
}

// TestWeightsOnlySet checks that a zero weight disables a task
func TestWeightsOnlySet(t *testing.T) {
	client := &fakeClient{}
	config := DefaultConfig()
	config.GetWeight = 0
	u, _ := newTestUser(t, config, client)
	u.OnStart()
	defer u.OnStop()

	for i := 0; i < 100; i++ {
		u.Tick()
	}
	for _, req := range client.requests {
		if !req.IsSet() {
			t.Fatalf("GET sent although its weight is 0")
		}
	}
}

// TestValueSize checks random payloads of a fixed length
func TestValueSize(t *testing.T) {
	client := &fakeClient{}
	config := DefaultConfig()
	config.ValueSize = 64
	u, _ := newTestUser(t, config, client)
	u.OnStart()
	defer u.OnStop()

	u.SetKey()
	if got := len(*client.requests[0].Value); got != 64 {
		t.Errorf("value length = %d, want 64", got)
	}
}

// TestLifecycle checks eager connect on start and close on stop
func TestLifecycle(t *testing.T) {
	client := &fakeClient{connectErr: errors.New("connection refused")}
	u, _ := newTestUser(t, DefaultConfig(), client)

	if u.State() != StateStopped {
		t.Errorf("new user state = %s", u.State())
	}

	// a failed connect does not prevent the user from running
	u.OnStart()
	if client.connects != 1 || u.State() != StateRunning {
		t.Errorf("connects=%d state=%s after OnStart", client.connects, u.State())
	}

	u.SetKey()
	u.OnStop()
	if client.closes != 1 || u.State() != StateStopped {
		t.Errorf("closes=%d state=%s after OnStop", client.closes, u.State())
	}
	if u.Registry().Len() != 0 {
		t.Errorf("registry must be discarded on stop")
	}
}

// TestRunStopsOnCancel checks that Run ticks until the context is done
func TestRunStopsOnCancel(t *testing.T) {
	client := &fakeClient{}
	config := DefaultConfig()
	config.WaitMin = time.Millisecond
	config.WaitMax = 2 * time.Millisecond
	u, sink := newTestUser(t, config, client)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	done := make(chan struct{})
	go func() {
		u.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	if len(sink.all()) == 0 {
		t.Errorf("Run emitted no events")
	}
	if client.closes != 1 {
		t.Errorf("client closed %d times, want 1", client.closes)
	}
	if u.State() != StateStopped {
		t.Errorf("state after Run = %s", u.State())
	}
}

// TestConfigValidate checks rejected configurations
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"negative weight", func(c *Config) { c.SetWeight = -1 }},
		{"no weights", func(c *Config) { c.SetWeight, c.GetWeight = 0, 0 }},
		{"value too large", func(c *Config) { c.ValueSize = common.MaxValueLength + 1 }},
		{"wait range", func(c *Config) { c.WaitMin, c.WaitMax = time.Second, time.Millisecond }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(&config)
			if _, err := New(config, nil, nil); err == nil {
				t.Errorf("New() accepted invalid config %+v", config)
			}
		})
	}
}
