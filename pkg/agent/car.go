package agent

import (
	"context"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/config"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

// car parameters requested on spawn
const (
	CarAcceleration float32 = 0.05
	CarMaxVelocity  float32 = 0.5
)

type CarLifecycle struct {
	service sim.Service
	log     *log.Logger
}

func NewCarLifecycle(service sim.Service) *CarLifecycle {
	return &CarLifecycle{
		service: service,
		log:     log.Default().Named("agent.car"),
	}
}

//nolint:whitespace // editor/linter issue
func (c *CarLifecycle) Spawn(
	ctx context.Context, session *model.SessionHandle, cfg *config.Config,
) (*model.CarHandle, error) {
	ret, err := c.service.CreateCar(ctx, &sim.CreateCarRequest{
		SessionID:    session.ID,
		Name:         cfg.CarName,
		Color:        cfg.CarColor,
		Acceleration: CarAcceleration,
		MaxVelocity:  CarMaxVelocity,
	})
	if err != nil {
		return nil, err
	}
	c.log.Info("car spawned",
		log.String("id", ret.ID.String()),
		log.String("session", session.ID.String()),
		log.String("name", cfg.CarName))
	return ret, nil
}

// Destroy removes the car from the simulation. Failures are logged only.
func (c *CarLifecycle) Destroy(ctx context.Context, car *model.CarHandle) {
	if err := c.service.DestroyCar(ctx, car.ID); err != nil {
		c.log.Warn("could not destroy car",
			log.String("id", car.ID.String()),
			log.ErrorField(err))
		return
	}
	c.log.Info("car destroyed", log.String("id", car.ID.String()))
}
