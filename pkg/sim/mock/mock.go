// Package mock provides an in-memory simulation service for development and
// tests. Its kinematics are deliberately simple and not meant to resemble the
// real simulation.
package mock

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

const (
	laneWidth         = 100 // distance between the walls
	obstacleSpacing   = 200 // an obstacle is placed every obstacleSpacing units
	obstacleHalfWidth = 20  // obstacles block the center of the lane
	steerDelta        = 5
	velocityScale     = 20 // position units per step at velocity 1
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidRequest = errors.New("invalid request")
)

type (
	Server struct {
		mu             sync.Mutex
		sessions       map[uuid.UUID]*session
		cars           map[uuid.UUID]*car
		raceStartDelay time.Duration
		now            func() time.Time
		log            *log.Logger
	}
	Option func(*Server)

	session struct {
		id       uuid.UUID
		name     string
		track    int32
		gameTime time.Duration
		created  time.Time
		paused   bool
	}
	car struct {
		id           uuid.UUID
		sessionID    uuid.UUID
		name         string
		color        string
		acceleration float32
		maxVelocity  float32
		velocity     float32
		position     float64 // distance driven along the lane
		offset       float64 // lateral offset from the lane center, left < 0
		crashes      int
	}
)

var _ sim.Service = (*Server)(nil)

// WithRaceStartDelay sets how long a new session stays in prerace phase
func WithRaceStartDelay(d time.Duration) Option {
	return func(s *Server) {
		s.raceStartDelay = d
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

func WithLogger(l *log.Logger) Option {
	return func(s *Server) {
		s.log = l
	}
}

func NewServer(opts ...Option) *Server {
	ret := &Server{
		sessions: make(map[uuid.UUID]*session),
		cars:     make(map[uuid.UUID]*car),
		now:      time.Now,
		log:      log.Default().Named("sim.mock"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// SetPaused toggles the pause phase of a session
func (s *Server) SetPaused(id uuid.UUID, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	sess.paused = paused
	return nil
}

// Crashes returns how often a car hit a wall or an obstacle
func (s *Server) Crashes(carID uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.cars[carID]; ok {
		return c.crashes
	}
	return 0
}

// NumCars returns the number of cars currently alive
func (s *Server) NumCars() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cars)
}

//nolint:whitespace // editor/linter issue
func (s *Server) CreateSession(_ context.Context, req *sim.CreateSessionRequest) (
	*model.SessionHandle, error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := &session{
		id:       uuid.New(),
		name:     req.Name,
		track:    req.TrackNumber,
		gameTime: time.Duration(float64(req.GameTimeSetting) * float64(time.Second)),
		created:  s.now(),
	}
	s.sessions[sess.id] = sess
	s.log.Info("session created",
		log.String("id", sess.id.String()),
		log.String("name", sess.name),
		log.Int32("track", sess.track))
	return s.sessionHandle(sess), nil
}

//nolint:whitespace // editor/linter issue
func (s *Server) GetSession(_ context.Context, id uuid.UUID) (
	*model.SessionHandle, error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return s.sessionHandle(sess), nil
}

//nolint:whitespace // editor/linter issue
func (s *Server) CreateCar(_ context.Context, req *sim.CreateCarRequest) (
	*model.CarHandle, error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[req.SessionID]; !ok {
		return nil, fmt.Errorf("session %s: %w", req.SessionID, ErrNotFound)
	}
	if req.MaxVelocity <= 0 || req.Acceleration <= 0 {
		return nil, fmt.Errorf("%w: acceleration and max velocity must be positive",
			ErrInvalidRequest)
	}
	c := &car{
		id:           uuid.New(),
		sessionID:    req.SessionID,
		name:         req.Name,
		color:        req.Color,
		acceleration: req.Acceleration,
		maxVelocity:  req.MaxVelocity,
	}
	s.cars[c.id] = c
	s.log.Info("car created",
		log.String("id", c.id.String()),
		log.String("session", c.sessionID.String()),
		log.String("name", c.name))
	return c.handle(), nil
}

//nolint:whitespace // editor/linter issue
func (s *Server) GetCarData(_ context.Context, carID uuid.UUID) (
	*model.CarHandle, error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cars[carID]
	if !ok {
		return nil, fmt.Errorf("car %s: %w", carID, ErrNotFound)
	}
	return c.handle(), nil
}

//nolint:whitespace // editor/linter issue
func (s *Server) Step(_ context.Context, req *sim.StepRequest) (
	*model.CarHandle, error,
) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cars[req.CarID]
	if !ok {
		return nil, fmt.Errorf("car %s: %w", req.CarID, ErrNotFound)
	}
	if !req.Command.Valid() {
		return nil, fmt.Errorf("%w: unknown command %d", ErrInvalidRequest, int(req.Command))
	}
	if sess := s.sessions[c.sessionID]; sess != nil &&
		s.phase(sess) != model.PhaseRacing {
		// outside of racing phase cars don't move
		return c.handle(), nil
	}
	c.apply(req.Command)
	return c.handle(), nil
}

func (s *Server) DestroyCar(_ context.Context, carID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cars[carID]; !ok {
		return fmt.Errorf("car %s: %w", carID, ErrNotFound)
	}
	delete(s.cars, carID)
	s.log.Info("car destroyed", log.String("id", carID.String()))
	return nil
}

func (s *Server) sessionHandle(sess *session) *model.SessionHandle {
	return &model.SessionHandle{ID: sess.id, Name: sess.name, Phase: s.phase(sess)}
}

func (s *Server) phase(sess *session) model.SessionPhase {
	elapsed := s.now().Sub(sess.created)
	switch {
	case elapsed < s.raceStartDelay:
		return model.PhasePrerace
	case sess.gameTime > 0 && elapsed >= s.raceStartDelay+sess.gameTime:
		return model.PhasePostrace
	case sess.paused:
		return model.PhasePause
	default:
		return model.PhaseRacing
	}
}

func (c *car) apply(cmd model.DrivingCommand) {
	switch cmd {
	case model.CmdAccelerate, model.CmdAccelerateLeft, model.CmdAccelerateRight:
		c.velocity = float32(math.Min(float64(c.velocity+c.acceleration), float64(c.maxVelocity)))
	case model.CmdDecelerate:
		c.velocity = float32(math.Max(float64(c.velocity-c.acceleration), 0))
	case model.CmdIdle, model.CmdTurnLeft, model.CmdTurnRight:
	}
	switch cmd {
	case model.CmdAccelerateLeft, model.CmdTurnLeft:
		c.offset -= steerDelta
	case model.CmdAccelerateRight, model.CmdTurnRight:
		c.offset += steerDelta
	case model.CmdIdle, model.CmdAccelerate, model.CmdDecelerate:
	}
	segment := math.Floor(c.position / obstacleSpacing)
	c.position += float64(c.velocity) * velocityScale

	hitObstacle := math.Floor(c.position/obstacleSpacing) > segment &&
		math.Abs(c.offset) < obstacleHalfWidth
	hitWall := math.Abs(c.offset) >= laneWidth/2
	switch {
	case hitObstacle:
		c.crashes++
		c.velocity = 0
		c.position = (segment+1)*obstacleSpacing - 1
	case hitWall:
		c.crashes++
		c.velocity = 0
		c.offset = 0
	}
}

func (c *car) distance() *model.Distance {
	left := int64(math.Round(laneWidth/2 + c.offset))
	right := int64(math.Round(laneWidth/2 - c.offset))
	front := int64(math.Round(obstacleSpacing - math.Mod(c.position, obstacleSpacing)))
	return model.NewDistance(
		front,
		int64(math.Round(math.Hypot(float64(front), float64(left)))),
		int64(math.Round(math.Hypot(float64(front), float64(right)))),
		left,
		right,
	)
}

func (c *car) handle() *model.CarHandle {
	return &model.CarHandle{
		ID:        c.id,
		SessionID: c.sessionID,
		Name:      c.name,
		Color:     c.color,
		Velocity:  c.velocity,
		Distance:  c.distance(),
	}
}
