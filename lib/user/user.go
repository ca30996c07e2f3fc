package user

import (
	"context"
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/kvload/lib/registry"
	"github.com/ValentinKolb/kvload/lib/stats"
	"github.com/ValentinKolb/kvload/rpc/common"
	"github.com/lni/dragonboat/v4/logger"
	"math/rand"
	"sync/atomic"
	"time"
)

var Logger = logger.GetLogger("user")

const (
	// TaskSetKey is the metric name of the SET task
	TaskSetKey = "set_key"
	// TaskGetKey is the metric name of the GET task
	TaskGetKey = "get_key"
	// RequestType is the request type label of all events
	RequestType = "TCP"

	maxValueNumber = 1000
	payloadChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// --------------------------------------------------------------------------
// Interface Definitions
// --------------------------------------------------------------------------

// IClient is the protocol client used by a virtual user (see client.Client)
type IClient interface {
	// Connect opens the connection, errors are not retried
	Connect() error
	// Send sends a request and never fails, failures are returned as ERROR responses
	Send(req *common.Request) *common.Response
	// Close releases the connection, it is safe to call it multiple times
	Close() error
}

// ClientFactory creates the client of a user, it is called once per start
type ClientFactory func() IClient

// State is the lifecycle state of a user
type State int32

const (
	StateStopped State = iota
	StateRunning
)

func (s State) String() string {
	if s == StateRunning {
		return "RUNNING"
	}
	return "STOPPED"
}

// --------------------------------------------------------------------------
// Config
// --------------------------------------------------------------------------

// Config configures the behavior of a virtual user
type Config struct {
	ID          int           // only used for logging
	SetWeight   int           // relative weight of the SET task
	GetWeight   int           // relative weight of the GET task
	ValueSize   int           // 0 sends value_<1..1000>, > 0 sends random payloads of this length
	RegistryCap int           // 0 keeps all keys, > 0 keeps only the newest keys
	WaitMin     time.Duration // minimal pause between two ticks
	WaitMax     time.Duration // maximal pause between two ticks
	Seed        int64         // 0 picks a random seed
}

// DefaultConfig returns the config with a 2:1 weighting of SET and GET
func DefaultConfig() Config {
	return Config{
		SetWeight: 2,
		GetWeight: 1,
	}
}

// Validate checks the config for invalid values
func (c Config) Validate() error {
	if c.SetWeight < 0 || c.GetWeight < 0 {
		return fmt.Errorf("task weights must not be negative (set=%d, get=%d)", c.SetWeight, c.GetWeight)
	}
	if c.SetWeight+c.GetWeight == 0 {
		return fmt.Errorf("at least one task weight must be positive")
	}
	if c.ValueSize < 0 || c.ValueSize > common.MaxValueLength {
		return fmt.Errorf("value size must be between 0 and %d, got %d", common.MaxValueLength, c.ValueSize)
	}
	if c.WaitMin < 0 || c.WaitMax < c.WaitMin {
		return fmt.Errorf("invalid wait range %s..%s", c.WaitMin, c.WaitMax)
	}
	return nil
}

// --------------------------------------------------------------------------
// Virtual User
// --------------------------------------------------------------------------

// Task is one weighted behavior of a user
type Task struct {
	Name   string
	Weight int
	Run    func()
}

// User is a virtual user: one client, one key registry and a weighted set of tasks.
// A user is driven by a single goroutine, only State may be read concurrently.
type User struct {
	config   Config
	factory  ClientFactory
	sink     stats.ISink
	client   IClient
	registry *registry.KeyRegistry
	rng      *rand.Rand
	tasks    []Task
	weights  int
	state    atomic.Int32
	now      func() time.Time
}

// New creates a stopped user
func New(config Config, factory ClientFactory, sink stats.ISink) (*User, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	seed := config.Seed
	if seed == 0 {
		seed = generateSeed()
	}

	u := &User{
		config:   config,
		factory:  factory,
		sink:     sink,
		registry: registry.New(config.RegistryCap),
		rng:      rand.New(rand.NewSource(seed)),
		now:      time.Now,
	}
	u.tasks = []Task{
		{Name: TaskSetKey, Weight: config.SetWeight, Run: u.SetKey},
		{Name: TaskGetKey, Weight: config.GetWeight, Run: u.GetKey},
	}
	for _, task := range u.tasks {
		u.weights += task.Weight
	}
	return u, nil
}

// OnStart creates the client and connects eagerly.
// A failed connect is logged only, the next request connects lazily.
func (u *User) OnStart() {
	u.client = u.factory()
	if err := u.client.Connect(); err != nil {
		Logger.Warningf("user %d: initial connect failed: %v", u.config.ID, err)
	}
	u.state.Store(int32(StateRunning))
}

// OnStop closes the client and discards the key registry
func (u *User) OnStop() {
	if u.client != nil {
		if err := u.client.Close(); err != nil {
			Logger.Warningf("user %d: failed to close client: %v", u.config.ID, err)
		}
		u.client = nil
	}
	u.registry.Reset()
	u.state.Store(int32(StateStopped))
}

// State returns the current lifecycle state
func (u *User) State() State {
	return State(u.state.Load())
}

// Registry returns the key registry of the user
func (u *User) Registry() *registry.KeyRegistry {
	return u.registry
}

// Tick picks one task according to the weights and runs it
func (u *User) Tick() {
	u.pick().Run()
}

// Run starts the user, ticks until ctx is done and stops the user.
// Cancellation is only observed between ticks, a request in flight is completed.
func (u *User) Run(ctx context.Context) {
	u.OnStart()
	defer u.OnStop()

	for ctx.Err() == nil {
		u.Tick()
		if !u.wait(ctx) {
			return
		}
	}
}

// SetKey writes a new key with a random value and remembers the key
func (u *User) SetKey() {
	key := fmt.Sprintf("key_%d", u.now().UnixMilli())
	value := u.nextValue()
	u.registry.Append(key)

	u.send(TaskSetKey, common.NewSetRequest(key, value))
}

// GetKey reads a random key written by this user, it does nothing if no key was written yet
func (u *User) GetKey() {
	key, ok := u.registry.Random(u.rng)
	if !ok {
		return
	}

	u.send(TaskGetKey, common.NewGetRequest(key))
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (u *User) send(name string, req *common.Request) {
	if u.client == nil {
		u.client = u.factory()
	}

	start := time.Now()
	resp := u.client.Send(req)
	elapsed := time.Since(start)

	u.sink.Record(stats.Event{
		RequestType:  RequestType,
		Name:         name,
		Elapsed:      elapsed,
		ResponseSize: resp.Size,
		Err:          resp.Err(),
	})
}

func (u *User) pick() Task {
	n := u.rng.Intn(u.weights)
	for _, task := range u.tasks {
		if n < task.Weight {
			return task
		}
		n -= task.Weight
	}
	return u.tasks[len(u.tasks)-1]
}

func (u *User) nextValue() string {
	if u.config.ValueSize == 0 {
		return fmt.Sprintf("value_%d", u.rng.Intn(maxValueNumber)+1)
	}
	b := make([]byte, u.config.ValueSize)
	for i := range b {
		b[i] = payloadChars[u.rng.Intn(len(payloadChars))]
	}
	return string(b)
}

// wait pauses between two ticks, it returns false if ctx is done
func (u *User) wait(ctx context.Context) bool {
	d := u.config.WaitMin
	if span := u.config.WaitMax - u.config.WaitMin; span > 0 {
		d += time.Duration(u.rng.Int63n(int64(span) + 1))
	}
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// generateSeed creates a random seed, falling back to the current time
func generateSeed() int64 {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}
