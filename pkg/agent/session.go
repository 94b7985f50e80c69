package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/config"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

// values used when this agent creates the session
const (
	SessionGameTime    float32 = 40
	SessionName                = "ML.NET"
	DefaultPollInterval        = config.DefaultPollInterval
)

type (
	SessionLifecycle struct {
		service      sim.Service
		pollInterval time.Duration
		timeout      time.Duration
		log          *log.Logger
	}
	SessionOption func(*SessionLifecycle)
)

func WithPollInterval(d time.Duration) SessionOption {
	return func(s *SessionLifecycle) {
		if d > 0 {
			s.pollInterval = d
		}
	}
}

// WithRaceWaitTimeout bounds AwaitRaceReady. A value of 0 waits forever.
func WithRaceWaitTimeout(d time.Duration) SessionOption {
	return func(s *SessionLifecycle) {
		s.timeout = d
	}
}

func NewSessionLifecycle(service sim.Service, opts ...SessionOption) *SessionLifecycle {
	ret := &SessionLifecycle{
		service:      service,
		pollInterval: DefaultPollInterval,
		log:          log.Default().Named("agent.session"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// JoinOrCreate joins the configured session or creates a new one
//
//nolint:whitespace // editor/linter issue
func (s *SessionLifecycle) JoinOrCreate(ctx context.Context, cfg *config.Config) (
	*model.SessionHandle, error,
) {
	if id, ok := cfg.SessionID.Get(); ok {
		ret, err := s.service.GetSession(ctx, id)
		if err != nil {
			return nil, err
		}
		s.log.Info("joined session",
			log.String("id", ret.ID.String()),
			log.Stringer("phase", ret.Phase))
		return ret, nil
	}

	track := cfg.TrackNumber
	if track <= 0 {
		track = config.DefaultTrackNumber
	}
	ret, err := s.service.CreateSession(ctx, &sim.CreateSessionRequest{
		GameTimeSetting: SessionGameTime,
		TrackNumber:     track,
		Name:            SessionName,
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("created session",
		log.String("id", ret.ID.String()),
		log.Int32("track", track),
		log.Stringer("phase", ret.Phase))
	return ret, nil
}

// AwaitRaceReady polls the session while it is in prerace or pause phase.
// A handle outside these phases is returned as is without contacting the
// service.
//
//nolint:whitespace // editor/linter issue
func (s *SessionLifecycle) AwaitRaceReady(
	ctx context.Context, handle *model.SessionHandle,
) (*model.SessionHandle, error) {
	if !handle.Phase.Waiting() {
		return handle, nil
	}
	s.log.Info("waiting for race",
		log.String("id", handle.ID.String()),
		log.Stringer("phase", handle.Phase),
		log.Duration("timeout", s.timeout))

	var deadline <-chan time.Time
	if s.timeout > 0 {
		timer := time.NewTimer(s.timeout)
		defer timer.Stop()
		deadline = timer.C
	}
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	current := handle
	for current.Phase.Waiting() {
		select {
		case <-ctx.Done():
			return current, ctx.Err()
		case <-deadline:
			return current, fmt.Errorf("%w: session %s still in phase %s after %v",
				ErrRaceWaitTimeout, handle.ID, current.Phase, s.timeout)
		case <-ticker.C:
		}
		next, err := s.service.GetSession(ctx, handle.ID)
		if err != nil {
			return current, err
		}
		if next.Phase != current.Phase {
			s.log.Debug("session phase changed",
				log.Stringer("from", current.Phase),
				log.Stringer("to", next.Phase))
		}
		current = next
	}
	s.log.Info("race ready", log.Stringer("phase", current.Phase))
	return current, nil
}
