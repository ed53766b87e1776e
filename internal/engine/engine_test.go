package engine

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nhttp "github.com/niuniu-server/niuniu-load/internal/http"
	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

// fakeExecutor answers every task instantly with a configurable outcome.
type fakeExecutor struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (f *fakeExecutor) Execute(ctx context.Context, task *scenario.Task, s *scenario.Session) nhttp.Outcome {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[task.Name]++
	f.mu.Unlock()
	return nhttp.Outcome{Method: task.Method, Name: task.Path, Task: task.Name, Duration: time.Millisecond, Err: f.err}
}

func (f *fakeExecutor) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func fastProfile(name string, weight int) *scenario.Profile {
	return &scenario.Profile{
		Name:   name,
		Weight: weight,
		Wait:   scenario.Between(time.Millisecond, 2*time.Millisecond),
		Tasks: []*scenario.Task{
			{Name: name + "_a", Weight: 1, Method: http.MethodGet, Path: "/a"},
			{Name: name + "_b", Weight: 3, Method: http.MethodGet, Path: "/b"},
		},
	}
}

func TestDistribute(t *testing.T) {
	tests := []struct {
		name    string
		users   int
		weights []int
		want    []int
	}{
		{"even split", 4, []int{1, 1, 1, 1}, []int{1, 1, 1, 1}},
		{"remainder to first", 10, []int{1, 1, 1}, []int{4, 3, 3}},
		{"weighted", 10, []int{3, 1}, []int{8, 2}},
		{"fewer users than profiles", 2, []int{1, 1, 1, 1}, []int{1, 1, 0, 0}},
		{"zero weight excluded", 5, []int{0, 1}, []int{0, 5}},
		{"no users", 0, []int{1}, []int{0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var profiles []*scenario.Profile
			for i, w := range tt.weights {
				profiles = append(profiles, fastProfile(string(rune('A'+i)), w))
			}
			assert.Equal(t, tt.want, Distribute(tt.users, profiles))
		})
	}
}

func TestSpawnOrder_Interleaves(t *testing.T) {
	a, b := fastProfile("A", 1), fastProfile("B", 1)
	order := SpawnOrder(4, []*scenario.Profile{a, b})

	require.Len(t, order, 4)
	assert.Equal(t, []string{"A", "B", "A", "B"}, []string{order[0].Name, order[1].Name, order[2].Name, order[3].Name})
}

func TestOptions_Validate(t *testing.T) {
	valid := Options{Host: "http://x", Users: 1, SpawnRate: 1, Profiles: []*scenario.Profile{fastProfile("A", 1)}}
	assert.NoError(t, valid.Validate())

	bad := Options{Users: 0, SpawnRate: 0, RunTime: -time.Second}
	err := bad.Validate()
	require.Error(t, err)
	for _, want := range []string{"host", "users", "spawn rate", "run time", "profile"} {
		assert.Contains(t, err.Error(), want)
	}

	unweighted := valid
	unweighted.Profiles = []*scenario.Profile{fastProfile("A", 0)}
	assert.Error(t, unweighted.Validate())
}

func TestUser_RunUntilCancelled(t *testing.T) {
	exec := &fakeExecutor{}
	var reported atomic.Int64
	profile := fastProfile("A", 1)
	started, stopped := false, false
	profile.OnStart = func(s *scenario.Session) error { started = true; return nil }
	profile.OnStop = func(s *scenario.Session) { stopped = true }

	u := NewUser(1, profile, exec, rand.New(rand.NewSource(1)), func(nhttp.Outcome) { reported.Add(1) }, zeroLogger())
	assert.Equal(t, UserStateIdle, u.State())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, u.Run(ctx))

	assert.True(t, started)
	assert.True(t, stopped)
	assert.Equal(t, UserStateStopped, u.State())
	assert.Greater(t, reported.Load(), int64(5))
	assert.Greater(t, exec.count("A_b"), exec.count("A_a"))
}

func TestUser_StartFailure(t *testing.T) {
	profile := fastProfile("A", 1)
	stopped := false
	profile.OnStart = func(s *scenario.Session) error { return errors.New("no account") }
	profile.OnStop = func(s *scenario.Session) { stopped = true }

	u := NewUser(1, profile, &fakeExecutor{}, nil, nil, zeroLogger())
	err := u.Run(context.Background())
	require.Error(t, err)
	assert.False(t, stopped)
	assert.Equal(t, UserStateStopped, u.State())
}

func TestUser_NoTasks(t *testing.T) {
	u := NewUser(1, &scenario.Profile{Name: "empty"}, &fakeExecutor{}, nil, nil, zeroLogger())
	assert.Error(t, u.Run(context.Background()))
}

func TestRunner_RunTime(t *testing.T) {
	exec := &fakeExecutor{}
	var starts, stops atomic.Int32
	events := NewEvents()
	events.OnTestStart(func(TestInfo) { starts.Add(1) })
	events.OnTestStop(func(TestInfo) { stops.Add(1) })

	r, err := NewRunner(Options{
		Host:      "http://example.test",
		Users:     4,
		SpawnRate: 100,
		RunTime:   200 * time.Millisecond,
		Profiles:  []*scenario.Profile{fastProfile("A", 1), fastProfile("B", 1)},
		Seed:      1,
		Executor:  exec,
		Events:    events,
	})
	require.NoError(t, err)

	start := time.Now()
	result, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 200*time.Millisecond)
	assert.Equal(t, int32(1), starts.Load())
	assert.Equal(t, int32(1), stops.Load())
	assert.Equal(t, 4, r.SpawnedUsers())
	assert.Equal(t, 0, r.ActiveUsers())
	assert.False(t, r.IsRunning())
	assert.False(t, result.Failed())
	assert.Equal(t, []string{"A", "B"}, result.Profiles)
	assert.Greater(t, result.Stats.Total.Requests, int64(10))
	assert.Greater(t, exec.count("A_a"), 0)
	assert.Greater(t, exec.count("B_b"), 0)
}

func TestRunner_StopEndsUnboundedRun(t *testing.T) {
	r, err := NewRunner(Options{
		Host:      "http://example.test",
		Users:     2,
		SpawnRate: 50,
		Profiles:  []*scenario.Profile{fastProfile("A", 1)},
		Executor:  &fakeExecutor{err: errors.New("boom")},
	})
	require.NoError(t, err)

	var requests atomic.Int64
	r.opts.Recorders = append(r.opts.Recorders, recorderFunc(func() { requests.Add(1) }))

	go func() {
		time.Sleep(100 * time.Millisecond)
		r.Stop()
	}()

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Failed())
	assert.Equal(t, result.Stats.Total.Requests, requests.Load())
	require.NotEmpty(t, result.Stats.Failures)
	assert.Equal(t, "boom", result.Stats.Failures[0].Error)
}

func TestRunner_CancelledContextStopsSpawning(t *testing.T) {
	r, err := NewRunner(Options{
		Host:      "http://example.test",
		Users:     100,
		SpawnRate: 10,
		Profiles:  []*scenario.Profile{fastProfile("A", 1)},
		Executor:  &fakeExecutor{},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 250*time.Millisecond)
	defer cancel()

	_, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Less(t, r.SpawnedUsers(), 10)
	assert.Equal(t, 0, r.ActiveUsers())
}

func TestRunner_AgainstHTTPServer(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch r.URL.Path {
		case "/health", "/api/status":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	stress := scenario.StressTestUser()
	stress.Wait = scenario.Between(time.Millisecond, 5*time.Millisecond)
	game := scenario.GameServerUser()
	game.Wait = scenario.Between(time.Millisecond, 5*time.Millisecond)

	var transportErrors atomic.Int64
	events := NewEvents()
	events.OnRequest(func(o nhttp.Outcome) {
		if o.Transport {
			transportErrors.Add(1)
		}
	})

	r, err := NewRunner(Options{
		Host:      server.URL,
		Users:     2,
		SpawnRate: 100,
		RunTime:   300 * time.Millisecond,
		Profiles:  []*scenario.Profile{stress, game},
		Events:    events,
	})
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)

	// Requests interrupted by the stop reach the server but are not reported.
	assert.GreaterOrEqual(t, hits.Load(), result.Stats.Total.Requests)
	assert.Greater(t, result.Stats.Total.Requests, int64(0))
	assert.Zero(t, transportErrors.Load())
	// /api/version and /api/ping accept any status; /health and
	// /api/status answer 200, so nothing fails.
	assert.False(t, result.Failed(), "failures: %+v", result.Stats.Failures)
}

type recorderFunc func()

func (f recorderFunc) Record(string, string, time.Duration, int64, error) { f() }
