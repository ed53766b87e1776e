package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	nhttp "github.com/niuniu-server/niuniu-load/internal/http"
	"github.com/niuniu-server/niuniu-load/internal/metrics"
	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

// Recorder receives every reported request.
type Recorder interface {
	Record(method, name string, d time.Duration, size int64, err error)
}

// Options configures a Runner.
type Options struct {
	Host      string
	Users     int
	SpawnRate float64 // users per second
	// RunTime of zero runs until the context is cancelled or Stop is called.
	RunTime  time.Duration
	Profiles []*scenario.Profile

	// Seed seeds each user's random source (seed + user id). Zero uses the clock.
	Seed int64

	Executor  Executor
	Events    *Events
	Recorders []Recorder
	// Logger defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Validate checks that the options describe a runnable test.
func (o *Options) Validate() error {
	var errs []error
	if o.Host == "" {
		errs = append(errs, errors.New("host is required"))
	}
	if o.Users < 1 {
		errs = append(errs, fmt.Errorf("users must be at least 1, got %d", o.Users))
	}
	if o.SpawnRate <= 0 {
		errs = append(errs, fmt.Errorf("spawn rate must be positive, got %v", o.SpawnRate))
	}
	if o.RunTime < 0 {
		errs = append(errs, fmt.Errorf("run time must not be negative, got %v", o.RunTime))
	}
	if len(o.Profiles) == 0 {
		errs = append(errs, errors.New("at least one profile is required"))
	}
	weighted := false
	for _, p := range o.Profiles {
		if p.Weight > 0 {
			weighted = true
		}
	}
	if len(o.Profiles) > 0 && !weighted {
		errs = append(errs, errors.New("at least one profile needs a positive weight"))
	}
	return errors.Join(errs...)
}

// Result is the outcome of a finished run.
type Result struct {
	Host      string          `json:"host"`
	Profiles  []string        `json:"profiles"`
	Users     int             `json:"users"`
	SpawnRate float64         `json:"spawnRate"`
	RunTime   time.Duration   `json:"runTime"`
	StartTime time.Time       `json:"startTime"`
	EndTime   time.Time       `json:"endTime"`
	Stats     *metrics.Report `json:"stats"`
}

// Failed reports whether any request failed.
func (r *Result) Failed() bool {
	return r.Stats != nil && r.Stats.Total.Failures > 0
}

// Runner spawns users and runs them until the run time elapses.
type Runner struct {
	opts   Options
	stats  *metrics.Collector
	logger zerolog.Logger

	active  atomic.Int32
	spawned atomic.Int32
	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	start  time.Time
}

// NewRunner validates opts and creates a runner.
func NewRunner(opts Options) (*Runner, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Executor == nil {
		opts.Executor = nhttp.NewClient(opts.Host)
	}
	if opts.Events == nil {
		opts.Events = NewEvents()
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	return &Runner{
		opts:   opts,
		stats:  metrics.NewCollector(),
		logger: logger,
	}, nil
}

// Stats returns the live statistics.
func (r *Runner) Stats() *metrics.Report {
	return r.stats.Snapshot()
}

// ActiveUsers returns the number of users currently running.
func (r *Runner) ActiveUsers() int {
	return int(r.active.Load())
}

// SpawnedUsers returns how many users have been spawned so far.
func (r *Runner) SpawnedUsers() int {
	return int(r.spawned.Load())
}

// IsRunning reports whether Run is in progress.
func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

// Elapsed returns the time since the run started.
func (r *Runner) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.start.IsZero() {
		return 0
	}
	return time.Since(r.start)
}

// Stop ends a running test. It is safe to call at any time.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// Run spawns users at the configured rate and blocks until the run time
// elapses, ctx is cancelled, or Stop is called. Cancellation is the normal
// way to end an unbounded run and is not returned as an error.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if !r.running.CompareAndSwap(false, true) {
		return nil, errors.New("runner is already running")
	}
	defer r.running.Store(false)

	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if r.opts.RunTime > 0 {
		runCtx, cancel = context.WithTimeout(ctx, r.opts.RunTime)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	r.mu.Lock()
	r.cancel = cancel
	r.start = time.Now()
	r.mu.Unlock()

	r.stats.Reset()
	info := TestInfo{
		Host:     r.opts.Host,
		Profiles: profileNames(r.opts.Profiles),
		Users:    r.opts.Users,
		Time:     r.start,
	}
	r.opts.Events.fireTestStart(info)

	var wg sync.WaitGroup
	r.spawn(runCtx, &wg)
	<-runCtx.Done()
	wg.Wait()

	r.stats.Stop()
	end := time.Now()
	info.Time = end
	r.opts.Events.fireTestStop(info)

	return &Result{
		Host:      r.opts.Host,
		Profiles:  info.Profiles,
		Users:     r.opts.Users,
		SpawnRate: r.opts.SpawnRate,
		RunTime:   r.opts.RunTime,
		StartTime: r.start,
		EndTime:   end,
		Stats:     r.stats.Snapshot(),
	}, nil
}

// spawn starts users one at a time, 1/SpawnRate apart, the first immediately.
func (r *Runner) spawn(ctx context.Context, wg *sync.WaitGroup) {
	order := SpawnOrder(r.opts.Users, r.opts.Profiles)
	interval := time.Duration(float64(time.Second) / r.opts.SpawnRate)

	for i, profile := range order {
		if i > 0 && !sleep(ctx, interval) {
			return
		}
		if ctx.Err() != nil {
			return
		}

		id := i + 1
		user := NewUser(id, profile, r.opts.Executor, r.userRand(id), r.report, r.logger)
		r.spawned.Add(1)
		r.active.Add(1)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.active.Add(-1)
			if err := user.Run(ctx); err != nil {
				r.logger.Error().Err(err).Int("user", user.ID).Msg("user exited")
			}
		}()
	}

	r.logger.Info().Int("users", len(order)).Msg("all users spawned")
}

func (r *Runner) userRand(id int) *rand.Rand {
	seed := r.opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed + int64(id)))
}

func (r *Runner) report(o nhttp.Outcome) {
	r.stats.Record(o.Method, o.Name, o.Duration, o.Length, o.Err)
	for _, rec := range r.opts.Recorders {
		rec.Record(o.Method, o.Name, o.Duration, o.Length, o.Err)
	}
	r.opts.Events.fireRequest(o)
}

func profileNames(profiles []*scenario.Profile) []string {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	return names
}
