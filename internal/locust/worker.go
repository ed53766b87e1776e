package locust

import (
	"context"
	"errors"
	"fmt"

	"github.com/qitoi/launce"
	"github.com/rs/zerolog"

	"github.com/niuniu-server/niuniu-load/internal/engine"
	"github.com/niuniu-server/niuniu-load/internal/scenario"
)

// DefaultMasterPort is the port a Locust master listens on for workers.
const DefaultMasterPort = 5557

// Registrar is the part of a launce worker that accepts user classes.
type Registrar interface {
	RegisterUser(name string, f func() launce.User)
}

// Options configures a worker run.
type Options struct {
	MasterHost string
	MasterPort int
	Profiles   []*scenario.Profile
	Executor   engine.Executor
	Logger     zerolog.Logger
}

// Validate checks the options.
func (o *Options) Validate() error {
	var errs []error
	if o.MasterHost == "" {
		errs = append(errs, errors.New("master host is required"))
	}
	if o.MasterPort < 1 || o.MasterPort > 65535 {
		errs = append(errs, fmt.Errorf("master port %d out of range", o.MasterPort))
	}
	if len(o.Profiles) == 0 {
		errs = append(errs, errors.New("at least one profile is required"))
	}
	if o.Executor == nil {
		errs = append(errs, errors.New("executor is required"))
	}
	return errors.Join(errs...)
}

// Register adds one user class per profile. The class name is the profile
// name, which must match a user class in the master's locustfile.
func Register(r Registrar, profiles []*scenario.Profile, exec engine.Executor, logger zerolog.Logger) {
	for _, p := range profiles {
		p := p
		r.RegisterUser(p.Name, func() launce.User {
			return NewUser(p, exec, logger)
		})
	}
}

// Run connects to the master and serves until ctx is cancelled or the
// master tells the worker to quit.
func Run(ctx context.Context, opts Options) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	transport := launce.NewZmqTransport(opts.MasterHost, opts.MasterPort)
	worker, err := launce.NewWorker(transport)
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}
	Register(worker, opts.Profiles, opts.Executor, opts.Logger)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			opts.Logger.Info().Msg("stopping worker")
			worker.Quit()
		case <-done:
		}
	}()

	opts.Logger.Info().
		Str("master", fmt.Sprintf("%s:%d", opts.MasterHost, opts.MasterPort)).
		Int("profiles", len(opts.Profiles)).
		Msg("joining locust master")
	if err := worker.Join(); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	return nil
}
