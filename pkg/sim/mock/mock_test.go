package mock

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func setup(t *testing.T, opts ...Option) (*Server, *model.SessionHandle, *model.CarHandle) {
	t.Helper()
	s := NewServer(opts...)
	ctx := context.Background()
	sess, err := s.CreateSession(ctx, &sim.CreateSessionRequest{
		GameTimeSetting: 40, TrackNumber: 2, Name: "test",
	})
	require.NoError(t, err)
	car, err := s.CreateCar(ctx, &sim.CreateCarRequest{
		SessionID: sess.ID, Name: "car", Color: "#000",
		Acceleration: 0.05, MaxVelocity: 0.5,
	})
	require.NoError(t, err)
	return s, sess, car
}

func TestServer_Phases(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s, sess, _ := setup(t, WithClock(clock.now), WithRaceStartDelay(time.Second))
	ctx := context.Background()
	assert.Equal(t, model.PhasePrerace, sess.Phase)

	clock.t = clock.t.Add(2 * time.Second)
	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, model.PhaseRacing, got.Phase)

	require.NoError(t, s.SetPaused(sess.ID, true))
	got, _ = s.GetSession(ctx, sess.ID)
	assert.Equal(t, model.PhasePause, got.Phase)

	clock.t = clock.t.Add(time.Minute)
	got, _ = s.GetSession(ctx, sess.ID)
	assert.Equal(t, model.PhasePostrace, got.Phase)
}

func TestServer_NoMovementBeforeRace(t *testing.T) {
	s, _, car := setup(t, WithRaceStartDelay(time.Hour))
	got, err := s.Step(context.Background(),
		&sim.StepRequest{CarID: car.ID, Command: model.CmdAccelerate})
	require.NoError(t, err)
	assert.Zero(t, got.Velocity)
}

func TestServer_Kinematics(t *testing.T) {
	s, _, car := setup(t)
	ctx := context.Background()

	var got *model.CarHandle
	var err error
	for i := 0; i < 20; i++ {
		got, err = s.Step(ctx, &sim.StepRequest{CarID: car.ID, Command: model.CmdAccelerate})
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.5, got.Velocity, 1e-6, "velocity is capped")

	got, err = s.Step(ctx, &sim.StepRequest{CarID: car.ID, Command: model.CmdTurnLeft})
	require.NoError(t, err)
	assert.Less(t, *got.Distance.Left, *got.Distance.Right)

	for i := 0; i < 20; i++ {
		got, err = s.Step(ctx, &sim.StepRequest{CarID: car.ID, Command: model.CmdDecelerate})
		require.NoError(t, err)
	}
	assert.Zero(t, got.Velocity)
}

func TestServer_ObstacleCrash(t *testing.T) {
	s, _, car := setup(t)
	ctx := context.Background()
	for i := 0; i < 40; i++ {
		_, err := s.Step(ctx, &sim.StepRequest{CarID: car.ID, Command: model.CmdAccelerate})
		require.NoError(t, err)
	}
	assert.Positive(t, s.Crashes(car.ID), "driving straight hits the first obstacle")
}

func TestServer_Errors(t *testing.T) {
	s, _, car := setup(t)
	ctx := context.Background()

	_, err := s.GetSession(ctx, uuid.New())
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Step(ctx, &sim.StepRequest{CarID: car.ID, Command: model.DrivingCommand(42)})
	require.ErrorIs(t, err, ErrInvalidRequest)

	_, err = s.CreateCar(ctx, &sim.CreateCarRequest{SessionID: uuid.New(), MaxVelocity: 1})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DestroyCar(ctx, car.ID))
	require.ErrorIs(t, s.DestroyCar(ctx, car.ID), ErrNotFound)
	assert.Zero(t, s.NumCars())
}

func TestServer_Logging(t *testing.T) {
	var buf bytes.Buffer
	s, _, car := setup(t, WithLogger(log.New(&buf, log.InfoLevel)))
	require.NoError(t, s.DestroyCar(context.Background(), car.ID))

	out := buf.String()
	assert.Contains(t, out, "session created")
	assert.Contains(t, out, "car created")
	assert.Contains(t, out, "car destroyed")
	assert.Contains(t, out, car.ID.String())
}
