package harness

import (
	"context"
	"fmt"
	"github.com/ValentinKolb/kvload/lib/stats"
	"github.com/ValentinKolb/kvload/lib/user"
	"github.com/lni/dragonboat/v4/logger"
	"go.uber.org/ratelimit"
	"golang.org/x/sync/errgroup"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("harness")

// Config configures a load test run
type Config struct {
	Users          int           // number of virtual users
	SpawnRate      int           // users started per second, <= 0 starts all at once
	RunTime        time.Duration // duration of the run, 0 runs until the context is done
	ReportInterval time.Duration // interval of the progress log, 0 disables it
	User           user.Config   // template for all users, ID and Seed are set per user
}

// Validate checks the config for invalid values
func (c Config) Validate() error {
	if c.Users <= 0 {
		return fmt.Errorf("number of users must be positive, got %d", c.Users)
	}
	if c.RunTime < 0 {
		return fmt.Errorf("run time must not be negative, got %s", c.RunTime)
	}
	return c.User.Validate()
}

// Runner spawns the virtual users, lets them run and stops them again
type Runner struct {
	config    Config
	factory   user.ClientFactory
	collector *stats.Collector
	active    atomic.Int32
	spawned   atomic.Int32
}

// NewRunner creates a new runner, all users report to collector
func NewRunner(config Config, factory user.ClientFactory, collector *stats.Collector) (*Runner, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Runner{
		config:    config,
		factory:   factory,
		collector: collector,
	}, nil
}

// Run spawns the users with the configured spawn rate and blocks until the run
// time is over or ctx is done. All users are stopped (and their connections
// closed) before Run returns the final report.
func (r *Runner) Run(ctx context.Context) (*stats.Report, error) {
	if r.config.RunTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.config.RunTime)
		defer cancel()
	}

	limiter := ratelimit.NewUnlimited()
	if r.config.SpawnRate > 0 {
		limiter = ratelimit.New(r.config.SpawnRate, ratelimit.WithoutSlack)
	}

	g, gctx := errgroup.WithContext(ctx)

	progressDone := make(chan struct{})
	defer close(progressDone)
	if r.config.ReportInterval > 0 {
		go r.logProgress(r.config.ReportInterval, progressDone)
	}

	Logger.Infof("Spawning %d users (%d/s)", r.config.Users, r.config.SpawnRate)
	for i := 0; i < r.config.Users; i++ {
		limiter.Take()
		if gctx.Err() != nil {
			break
		}

		config := r.config.User
		config.ID = i
		if config.Seed != 0 {
			config.Seed += int64(i)
		}

		u, err := user.New(config, r.factory, r.collector)
		if err != nil {
			return nil, fmt.Errorf("failed to create user %d: %w", i, err)
		}

		r.spawned.Add(1)
		g.Go(func() error {
			r.active.Add(1)
			defer r.active.Add(-1)
			u.Run(gctx)
			return nil
		})
	}
	Logger.Infof("%d users spawned", r.spawned.Load())

	if err := g.Wait(); err != nil {
		return nil, err
	}
	Logger.Infof("All users stopped")
	return r.collector.Snapshot(), nil
}

// ActiveUsers returns the number of currently running users
func (r *Runner) ActiveUsers() int {
	return int(r.active.Load())
}

// SpawnedUsers returns the number of users started so far
func (r *Runner) SpawnedUsers() int {
	return int(r.spawned.Load())
}

func (r *Runner) logProgress(interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			total := r.collector.Snapshot().Total
			Logger.Infof("users=%d requests=%d failures=%d rps=%.1f avg=%.2fms p95=%.2fms",
				r.ActiveUsers(), total.Requests, total.Failures, total.CurrentRPS, total.AvgMs, total.P95Ms)
		}
	}
}
