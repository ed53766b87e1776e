package engine

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	nhttp "github.com/niuniu-server/niuniu-load/internal/http"
)

// TestInfo describes the run passed to lifecycle listeners.
type TestInfo struct {
	Host     string
	Profiles []string
	Users    int
	Time     time.Time
}

// Events holds the lifecycle and request listeners of a run.
type Events struct {
	mu        sync.RWMutex
	testStart []func(TestInfo)
	testStop  []func(TestInfo)
	request   []func(nhttp.Outcome)
}

// NewEvents returns an empty listener set.
func NewEvents() *Events {
	return &Events{}
}

// DefaultEvents logs test start and stop, and warns on every failed request.
func DefaultEvents(logger zerolog.Logger) *Events {
	ev := NewEvents()
	ev.OnTestStart(func(info TestInfo) {
		logger.Info().
			Str("host", info.Host).
			Strs("profiles", info.Profiles).
			Int("users", info.Users).
			Time("at", info.Time).
			Msg("load test started")
	})
	ev.OnTestStop(func(info TestInfo) {
		logger.Info().Time("at", info.Time).Msg("load test finished")
	})
	ev.OnRequest(func(o nhttp.Outcome) {
		if o.Err != nil {
			logger.Warn().
				Err(o.Err).
				Str("method", o.Method).
				Str("name", o.Name).
				Int("status", o.StatusCode).
				Bool("transport", o.Transport).
				Msg("request failed")
		}
	})
	return ev
}

// OnTestStart registers a listener called once before any user spawns.
func (e *Events) OnTestStart(fn func(TestInfo)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.testStart = append(e.testStart, fn)
}

// OnTestStop registers a listener called once after every user stopped.
func (e *Events) OnTestStop(fn func(TestInfo)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.testStop = append(e.testStop, fn)
}

// OnRequest registers a listener called for every reported request.
// Listeners run on the user's goroutine and must not block.
func (e *Events) OnRequest(fn func(nhttp.Outcome)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.request = append(e.request, fn)
}

func (e *Events) fireTestStart(info TestInfo) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.testStart {
		fn(info)
	}
}

func (e *Events) fireTestStop(info TestInfo) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.testStop {
		fn(info)
	}
}

func (e *Events) fireRequest(o nhttp.Outcome) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.request {
		fn(o)
	}
}
