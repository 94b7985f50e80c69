package mock

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"github.com/google/uuid"

	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

// Register mounts the simulation procedures of s on mux
func (s *Server) Register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	opts = append([]connect.HandlerOption{connect.WithCodec(sim.JSONCodec{})}, opts...)

	unary(mux, sim.CreateSessionProcedure, s.CreateSession, opts)
	unary(mux, sim.GetSessionProcedure,
		func(ctx context.Context, req *sim.GuidData) (*model.SessionHandle, error) {
			id, err := parseGUID(req)
			if err != nil {
				return nil, err
			}
			return s.GetSession(ctx, id)
		}, opts)
	unary(mux, sim.CreateCarProcedure, s.CreateCar, opts)
	unary(mux, sim.GetCarDataProcedure,
		func(ctx context.Context, req *sim.GuidData) (*model.CarHandle, error) {
			id, err := parseGUID(req)
			if err != nil {
				return nil, err
			}
			return s.GetCarData(ctx, id)
		}, opts)
	unary(mux, sim.StepProcedure, s.Step, opts)
	unary(mux, sim.DestroyCarProcedure,
		func(ctx context.Context, req *sim.GuidData) (*sim.Empty, error) {
			id, err := parseGUID(req)
			if err != nil {
				return nil, err
			}
			return &sim.Empty{}, s.DestroyCar(ctx, id)
		}, opts)
}

//nolint:whitespace // editor/linter issue
func unary[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *Req) (*Res, error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure,
		func(ctx context.Context, req *connect.Request[Req]) (*connect.Response[Res], error) {
			res, err := fn(ctx, req.Msg)
			if err != nil {
				return nil, toConnectError(err)
			}
			return connect.NewResponse(res), nil
		}, opts...))
}

func parseGUID(req *sim.GuidData) (uuid.UUID, error) {
	id, err := uuid.Parse(req.GuidString)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	return id, nil
}

func toConnectError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ErrInvalidRequest):
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}
