// Package locust runs the scenario profiles as a Locust worker, so an
// external Locust master owns spawning, scheduling and statistics.
package locust

import (
	"context"
	"math/rand"
	"time"

	"github.com/qitoi/launce"
	"github.com/qitoi/launce/taskset"
	"github.com/rs/zerolog"

	"github.com/niuniu-server/niuniu-load/internal/engine"
	nhttp "github.com/niuniu-server/niuniu-load/internal/http"
	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

// User adapts one scenario profile to a launce user.
type User struct {
	taskset.User

	profile *scenario.Profile
	exec    engine.Executor
	logger  zerolog.Logger
	session *scenario.Session
}

// NewUser creates a worker user for profile p.
func NewUser(p *scenario.Profile, exec engine.Executor, logger zerolog.Logger) *User {
	return &User{profile: p, exec: exec, logger: logger}
}

// Profile returns the profile the user runs.
func (u *User) Profile() *scenario.Profile {
	return u.profile
}

// Init builds the weighted task set from the profile's task table.
func (u *User) Init(r launce.Runner, waitTime launce.WaitTimeFunc) {
	u.User.Init(r, waitTime)

	var tasks []taskset.Task
	for _, t := range u.profile.Tasks {
		if t.Weight <= 0 {
			continue
		}
		tasks = append(tasks, taskset.Weight(taskset.TaskFunc(u.task(t)), t.Weight))
	}
	u.SetTaskSet(taskset.NewRandom(tasks...))
}

// WaitTime returns the profile's think time.
func (u *User) WaitTime() launce.WaitTimeFunc {
	return launce.Between(u.profile.Wait.Min, u.profile.Wait.Max)
}

// OnStart creates the session and runs the profile's start hook.
func (u *User) OnStart(ctx context.Context) error {
	u.session = scenario.NewSession(u.profile.Name, rand.New(rand.NewSource(time.Now().UnixNano())))
	if u.profile.OnStart != nil {
		if err := u.profile.OnStart(u.session); err != nil {
			u.logger.Error().Err(err).Str("profile", u.profile.Name).Msg("user start failed")
			return err
		}
	}
	u.logger.Debug().Str("profile", u.profile.Name).Msg("worker user started")
	return nil
}

// OnStop runs the profile's stop hook.
func (u *User) OnStop(ctx context.Context) error {
	if u.profile.OnStop != nil && u.session != nil {
		u.profile.OnStop(u.session)
	}
	u.logger.Debug().Str("profile", u.profile.Name).Msg("worker user stopped")
	return nil
}

func (u *User) task(t *scenario.Task) func(ctx context.Context, user launce.User) error {
	return func(ctx context.Context, user launce.User) error {
		o := u.exec.Execute(ctx, t, u.session)
		if o.Canceled || ctx.Err() != nil {
			return nil
		}
		report(user, o)
		return nil
	}
}

// report sends one outcome to the master's stats.
func report(user launce.User, o nhttp.Outcome) {
	if o.Err != nil {
		user.Report(o.Method, o.Name,
			launce.WithResponseTime(o.Duration),
			launce.WithResponseLength(o.Length),
			launce.WithError(o.Err),
		)
		return
	}
	user.Report(o.Method, o.Name,
		launce.WithResponseTime(o.Duration),
		launce.WithResponseLength(o.Length),
	)
}
