// Package engine runs scenario profiles as concurrent simulated users.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	nhttp "github.com/niuniu-server/niuniu-load/internal/http"
	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

// UserState represents the lifecycle state of a simulated user.
type UserState int32

const (
	// UserStateIdle indicates the user has been created but not started.
	UserStateIdle UserState = iota
	// UserStateRunning indicates the user is executing tasks.
	UserStateRunning
	// UserStateStopped indicates the user has run its stop hook and exited.
	UserStateStopped
)

func (s UserState) String() string {
	switch s {
	case UserStateIdle:
		return "idle"
	case UserStateRunning:
		return "running"
	case UserStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Executor runs a single task for a session.
type Executor interface {
	Execute(ctx context.Context, task *scenario.Task, s *scenario.Session) nhttp.Outcome
}

// User is one simulated user running a profile.
type User struct {
	ID      int
	Profile *scenario.Profile
	Session *scenario.Session

	exec   Executor
	report func(nhttp.Outcome)
	logger zerolog.Logger

	state atomic.Int32
	tasks atomic.Int64
}

// NewUser creates a user with its own session. report receives every
// outcome that was not interrupted by cancellation.
func NewUser(id int, profile *scenario.Profile, exec Executor, rng *rand.Rand, report func(nhttp.Outcome), logger zerolog.Logger) *User {
	if report == nil {
		report = func(nhttp.Outcome) {}
	}
	return &User{
		ID:      id,
		Profile: profile,
		Session: scenario.NewSession(profile.Name, rng),
		exec:    exec,
		report:  report,
		logger:  logger.With().Str("profile", profile.Name).Int("user", id).Logger(),
	}
}

// State returns the current lifecycle state.
func (u *User) State() UserState {
	return UserState(u.state.Load())
}

// TasksRun returns how many tasks the user has executed.
func (u *User) TasksRun() int64 {
	return u.tasks.Load()
}

// Run executes the start hook, then picks and runs tasks with think time
// between them until ctx is done. The stop hook always runs once the start
// hook has succeeded.
func (u *User) Run(ctx context.Context) error {
	if u.Profile.TotalWeight() == 0 {
		u.state.Store(int32(UserStateStopped))
		return fmt.Errorf("profile %s has no runnable tasks", u.Profile.Name)
	}

	if u.Profile.OnStart != nil {
		if err := u.Profile.OnStart(u.Session); err != nil {
			u.state.Store(int32(UserStateStopped))
			return fmt.Errorf("profile %s start: %w", u.Profile.Name, err)
		}
	}
	u.state.Store(int32(UserStateRunning))
	u.logger.Debug().Str("username", u.Session.Username).Msg("user started")

	defer func() {
		if u.Profile.OnStop != nil {
			u.Profile.OnStop(u.Session)
		}
		u.state.Store(int32(UserStateStopped))
		u.logger.Debug().Int64("tasks", u.tasks.Load()).Msg("user stopped")
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		task := u.Profile.Pick(u.Session.Rand)
		out := u.exec.Execute(ctx, task, u.Session)
		u.tasks.Add(1)
		if out.Canceled || ctx.Err() != nil {
			return nil
		}
		u.report(out)

		if !sleep(ctx, u.Profile.Wait.Sample(u.Session.Rand)) {
			return nil
		}
	}
}

// sleep waits for d or until ctx is done. It reports whether the full
// duration elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
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
