package harness

import (
	"context"
	"github.com/ValentinKolb/kvload/lib/stats"
	"github.com/ValentinKolb/kvload/lib/user"
	"github.com/ValentinKolb/kvload/rpc/client"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/ValentinKolb/kvload/rpc/serializer"
	"github.com/ValentinKolb/kvload/rpc/server"
	"github.com/ValentinKolb/kvload/rpc/transport/tcp"
	"testing"
	"time"
)

// startStore starts the reference store on a random port
func startStore(t *testing.T) string {
	t.Helper()
	s := server.NewRPCServer(
		common.ServerConfig{Endpoint: "127.0.0.1:0"},
		tcp.NewTCPServerTransport(),
		serializer.NewJSONSerializer(),
	)
	if err := s.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	go func() { _ = s.Serve() }()
	t.Cleanup(func() { _ = s.Close() })
	return s.Addr().String()
}

func clientFactory(addr string) user.ClientFactory {
	return func() user.IClient {
		config := common.DefaultClientConfig(addr)
		config.TimeoutSecond = 5
		return client.NewTCPClient(config)
	}
}

// TestRunAgainstStore runs a short load test against the reference store
func TestRunAgainstStore(t *testing.T) {
	addr := startStore(t)
	collector := stats.NewCollector(0)
	defer collector.Close()

	config := Config{
		Users:     5,
		SpawnRate: 100,
		RunTime:   500 * time.Millisecond,
		User:      user.DefaultConfig(),
	}
	config.User.Seed = 7

	runner, err := NewRunner(config, clientFactory(addr), collector)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if runner.SpawnedUsers() != 5 {
		t.Errorf("spawned %d users, want 5", runner.SpawnedUsers())
	}
	if runner.ActiveUsers() != 0 {
		t.Errorf("%d users still active after Run", runner.ActiveUsers())
	}
	if report.Total.Requests == 0 {
		t.Fatalf("no requests recorded")
	}
	if report.Total.Failures != 0 {
		t.Errorf("unexpected failures: %v", report.Errors)
	}

	set, okSet := report.Op(user.TaskSetKey)
	get, okGet := report.Op(user.TaskGetKey)
	if !okSet || !okGet {
		t.Fatalf("expected set_key and get_key rows, got %+v", report.Ops)
	}
	if set.Requests <= get.Requests {
		t.Errorf("set_key (%d) should outnumber get_key (%d)", set.Requests, get.Requests)
	}
}

// TestRunWithoutStore checks that an unreachable store shows up as failures only
func TestRunWithoutStore(t *testing.T) {
	collector := stats.NewCollector(0)
	defer collector.Close()

	config := Config{
		Users:   2,
		RunTime: 200 * time.Millisecond,
		User:    user.DefaultConfig(),
	}
	config.User.WaitMin = 5 * time.Millisecond
	config.User.WaitMax = 5 * time.Millisecond

	runner, err := NewRunner(config, clientFactory("127.0.0.1:1"), collector)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	report, err := runner.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Total.Requests == 0 || report.Total.Failures != report.Total.Requests {
		t.Errorf("expected only failed requests, got %+v", report.Total)
	}
	if len(report.Errors) == 0 {
		t.Errorf("failure messages must be reported")
	}
}

// TestRunCancel checks that cancelling the context stops spawning and running
func TestRunCancel(t *testing.T) {
	addr := startStore(t)
	collector := stats.NewCollector(0)
	defer collector.Close()

	config := Config{
		Users:     100,
		SpawnRate: 10,
		User:      user.DefaultConfig(),
	}
	runner, err := NewRunner(config, clientFactory(addr), collector)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := runner.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Run took %s after cancel", elapsed)
	}
	if n := runner.SpawnedUsers(); n >= 100 {
		t.Errorf("spawned %d users although the run was cancelled", n)
	}
}

// TestInvalidConfig checks that invalid configs are rejected
func TestInvalidConfig(t *testing.T) {
	if _, err := NewRunner(Config{Users: 0, User: user.DefaultConfig()}, nil, nil); err == nil {
		t.Errorf("expected error for 0 users")
	}
	if _, err := NewRunner(Config{Users: 1}, nil, nil); err == nil {
		t.Errorf("expected error for missing task weights")
	}
}
