package locust

import (
	"context"
	"testing"
	"time"

	"github.com/qitoi/launce"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nhttp "github.com/niuniu-server/niuniu-load/internal/http"
	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

type fakeRegistrar struct {
	users map[string]func() launce.User
	order []string
}

func (f *fakeRegistrar) RegisterUser(name string, fn func() launce.User) {
	if f.users == nil {
		f.users = make(map[string]func() launce.User)
	}
	f.users[name] = fn
	f.order = append(f.order, name)
}

type nopExecutor struct{}

func (nopExecutor) Execute(ctx context.Context, t *scenario.Task, s *scenario.Session) nhttp.Outcome {
	return nhttp.Outcome{Method: t.Method, Name: t.Name}
}

func TestRegister(t *testing.T) {
	reg := &fakeRegistrar{}
	Register(reg, scenario.All(), nopExecutor{}, zerolog.Nop())

	assert.Equal(t, scenario.Names(), reg.order)
	for name, factory := range reg.users {
		u, ok := factory().(*User)
		require.True(t, ok)
		assert.Equal(t, name, u.Profile().Name)
	}
}

func TestRegister_FreshUsers(t *testing.T) {
	reg := &fakeRegistrar{}
	Register(reg, scenario.All(), nopExecutor{}, zerolog.Nop())

	factory := reg.users[scenario.HallServer]
	assert.NotSame(t, factory(), factory())
}

func TestUser_OnStartOnStop(t *testing.T) {
	p, ok := scenario.Lookup(scenario.LoginServer)
	require.True(t, ok)

	u := NewUser(p, nopExecutor{}, zerolog.Nop())
	require.NoError(t, u.OnStart(context.Background()))
	require.NotNil(t, u.session)
	assert.Contains(t, u.session.Username, "testuser_")
	assert.Equal(t, scenario.DefaultPassword, u.session.Password)
	assert.NoError(t, u.OnStop(context.Background()))
}

func TestUser_WaitTime(t *testing.T) {
	p, ok := scenario.Lookup(scenario.StressTest)
	require.True(t, ok)

	u := NewUser(p, nopExecutor{}, zerolog.Nop())
	assert.NotNil(t, u.WaitTime())
	assert.Equal(t, 100*time.Millisecond, u.profile.Wait.Min)
}

func TestOptions_Validate(t *testing.T) {
	opts := Options{
		MasterHost: "localhost",
		MasterPort: DefaultMasterPort,
		Profiles:   scenario.All(),
		Executor:   nopExecutor{},
	}
	assert.NoError(t, opts.Validate())

	bad := Options{MasterPort: 70000}
	err := bad.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master host is required")
	assert.Contains(t, err.Error(), "out of range")
	assert.Contains(t, err.Error(), "at least one profile is required")
	assert.Contains(t, err.Error(), "executor is required")
}
