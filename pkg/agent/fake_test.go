package agent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

var errBoom = errors.New("boom")

type destroyCall struct {
	err         error
	deadline    time.Time
	hasDeadline bool
}

// fakeService records calls and serves scripted responses
type fakeService struct {
	mu sync.Mutex

	calls     []string
	steps     []model.DrivingCommand
	destroyed []uuid.UUID

	sessionID uuid.UUID
	carID     uuid.UUID
	phases    []model.SessionPhase // returned by successive GetSession calls
	stuck     bool                 // sessions never leave prerace
	telemetry []*model.CarHandle   // returned by successive GetCarData calls
	failStep  int                  // 1-based index of the failing Step call
	createReq *sim.CreateSessionRequest
	carReq    *sim.CreateCarRequest

	failDestroy bool
	destroyCtx  destroyCall // state of the context passed to DestroyCar

	onStep func(n int)
}

func newFakeService() *fakeService {
	return &fakeService{sessionID: uuid.New(), carID: uuid.New()}
}

func (f *fakeService) record(name string) {
	f.calls = append(f.calls, name)
}

func (f *fakeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	ret := 0
	for _, c := range f.calls {
		if c == name {
			ret++
		}
	}
	return ret
}

//nolint:whitespace // editor/linter issue
func (f *fakeService) CreateSession(_ context.Context, req *sim.CreateSessionRequest) (
	*model.SessionHandle, error,
) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateSession")
	f.createReq = req
	if f.stuck {
		return &model.SessionHandle{ID: f.sessionID, Phase: model.PhasePrerace}, nil
	}
	return &model.SessionHandle{ID: f.sessionID, Phase: model.PhaseRacing}, nil
}

//nolint:whitespace // editor/linter issue
func (f *fakeService) GetSession(_ context.Context, id uuid.UUID) (
	*model.SessionHandle, error,
) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetSession")
	phase := model.PhaseRacing
	if f.stuck {
		phase = model.PhasePrerace
	} else if len(f.phases) > 0 {
		phase = f.phases[0]
		f.phases = f.phases[1:]
	}
	return &model.SessionHandle{ID: id, Phase: phase}, nil
}

//nolint:whitespace // editor/linter issue
func (f *fakeService) CreateCar(_ context.Context, req *sim.CreateCarRequest) (
	*model.CarHandle, error,
) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("CreateCar")
	f.carReq = req
	return &model.CarHandle{
		ID: f.carID, SessionID: req.SessionID, Name: req.Name, Color: req.Color,
		Distance: model.NewDistance(0, 0, 0, 0, 0),
	}, nil
}

//nolint:whitespace // editor/linter issue
func (f *fakeService) GetCarData(_ context.Context, carID uuid.UUID) (
	*model.CarHandle, error,
) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("GetCarData")
	if len(f.telemetry) > 0 {
		ret := f.telemetry[0]
		f.telemetry = f.telemetry[1:]
		return ret, nil
	}
	return &model.CarHandle{ID: carID, Distance: model.NewDistance(100, 0, 0, 0, 0)}, nil
}

//nolint:whitespace // editor/linter issue
func (f *fakeService) Step(_ context.Context, req *sim.StepRequest) (
	*model.CarHandle, error,
) {
	f.mu.Lock()
	f.record("Step")
	n := len(f.steps) + 1
	onStep := f.onStep
	if f.failStep > 0 && n == f.failStep {
		f.mu.Unlock()
		return nil, &sim.TransportError{Procedure: sim.StepProcedure, Err: errBoom}
	}
	f.steps = append(f.steps, req.Command)
	f.mu.Unlock()
	if onStep != nil {
		onStep(n)
	}
	return &model.CarHandle{ID: req.CarID, Distance: model.NewDistance(0, 0, 0, 0, 0)}, nil
}

func (f *fakeService) DestroyCar(ctx context.Context, carID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("DestroyCar")
	f.destroyed = append(f.destroyed, carID)
	f.destroyCtx.err = ctx.Err()
	f.destroyCtx.deadline, f.destroyCtx.hasDeadline = ctx.Deadline()
	if f.failDestroy {
		return &sim.TransportError{Procedure: sim.DestroyCarProcedure, Err: errBoom}
	}
	return nil
}
