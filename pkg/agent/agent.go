// Package agent contains the session and car lifecycle as well as the
// inference driven control loop.
package agent

import (
	"context"
	"time"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier"
	"github.com/mpapenbr/owlracer-agent-go/pkg/config"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

// DefaultCleanupTimeout bounds the removal of the car on exit
const DefaultCleanupTimeout = 5 * time.Second

type (
	Agent struct {
		cfg            *config.Config
		session        *SessionLifecycle
		cars           *CarLifecycle
		loop           *ControlLoop
		cleanupTimeout time.Duration
		log            *log.Logger
	}
	Option  func(*options)
	options struct {
		loopOpts       []LoopOption
		cleanupTimeout time.Duration
	}
)

func WithLoopOptions(opts ...LoopOption) Option {
	return func(o *options) {
		o.loopOpts = append(o.loopOpts, opts...)
	}
}

func WithCleanupTimeout(d time.Duration) Option {
	return func(o *options) {
		o.cleanupTimeout = d
	}
}

// New assembles an agent. Polling, race wait timeout and the iteration limit
// are taken from cfg.
//
//nolint:whitespace // editor/linter issue
func New(
	cfg *config.Config,
	service sim.Service,
	port classifier.Port,
	adapter schema.Adapter,
	resolver Resolver,
	opts ...Option,
) *Agent {
	o := &options{cleanupTimeout: DefaultCleanupTimeout}
	for _, opt := range opts {
		opt(o)
	}
	loopOpts := append([]LoopOption{WithMaxIterations(cfg.MaxSteps)}, o.loopOpts...)
	return &Agent{
		cfg: cfg,
		session: NewSessionLifecycle(service,
			WithPollInterval(cfg.PollInterval),
			WithRaceWaitTimeout(cfg.RaceWaitTimeout)),
		cars:           NewCarLifecycle(service),
		loop:           NewControlLoop(service, adapter, port, resolver, loopOpts...),
		cleanupTimeout: o.cleanupTimeout,
		log:            log.Default().Named("agent"),
	}
}

// Run joins or creates the session, spawns the car, waits for the race and
// drives until an error occurs or ctx is done. Once a car is spawned it is
// destroyed exactly once on return, even if ctx is already canceled.
// Log entries of the loop carry the session id.
func (a *Agent) Run(ctx context.Context) error {
	session, err := a.session.JoinOrCreate(ctx, a.cfg)
	if err != nil {
		return err
	}
	car, err := a.cars.Spawn(ctx, session, a.cfg)
	if err != nil {
		return err
	}
	defer a.cleanup(ctx, car)
	ctx = log.AddToContext(ctx, log.GetFromContext(ctx).With(
		log.String("session", session.ID.String())))

	if _, err = a.session.AwaitRaceReady(ctx, session); err != nil {
		return err
	}
	return a.loop.Run(ctx, car)
}

func (a *Agent) cleanup(ctx context.Context, car *model.CarHandle) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.cleanupTimeout)
	defer cancel()
	a.log.Debug("cleanup", log.String("car", car.ID.String()),
		log.Bool("canceled", ctx.Err() != nil))
	a.cars.Destroy(cleanupCtx, car)
}
