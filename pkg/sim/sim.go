// Package sim describes the operations consumed from the race simulation
// service.
package sim

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
)

const ServiceName = "matlabs.owlracer.core.GrpcCoreService"

const (
	CreateSessionProcedure = "/" + ServiceName + "/CreateSession"
	GetSessionProcedure    = "/" + ServiceName + "/GetSession"
	CreateCarProcedure     = "/" + ServiceName + "/CreateCar"
	GetCarDataProcedure    = "/" + ServiceName + "/GetCarData"
	StepProcedure          = "/" + ServiceName + "/Step"
	DestroyCarProcedure    = "/" + ServiceName + "/DestroyCar"
)

// TraceIDHeader carries the server side trace id of a call
const TraceIDHeader = "X-Trace-ID"

var ErrTransport = errors.New("transport error")

type (
	Service interface {
		CreateSession(ctx context.Context, req *CreateSessionRequest) (*model.SessionHandle, error)
		GetSession(ctx context.Context, id uuid.UUID) (*model.SessionHandle, error)
		CreateCar(ctx context.Context, req *CreateCarRequest) (*model.CarHandle, error)
		GetCarData(ctx context.Context, carID uuid.UUID) (*model.CarHandle, error)
		Step(ctx context.Context, req *StepRequest) (*model.CarHandle, error)
		DestroyCar(ctx context.Context, carID uuid.UUID) error
	}

	CreateSessionRequest struct {
		GameTimeSetting float32 `json:"gameTimeSetting"`
		TrackNumber     int32   `json:"trackNumber"`
		Name            string  `json:"name"`
	}

	CreateCarRequest struct {
		SessionID    uuid.UUID `json:"sessionId"`
		Name         string    `json:"name"`
		Color        string    `json:"color"`
		Acceleration float32   `json:"acceleration"`
		MaxVelocity  float32   `json:"maxVelocity"`
	}

	StepRequest struct {
		CarID   uuid.UUID            `json:"carId"`
		Command model.DrivingCommand `json:"command"`
	}

	// GuidData identifies sessions and cars on the wire
	GuidData struct {
		GuidString string `json:"guidString"`
	}

	Empty struct{}

	// TransportError wraps every failed remote call
	TransportError struct {
		Procedure string
		Err       error
	}
)

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Procedure, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}
