// Package client implements sim.Service on top of connect RPC.
package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"strings"

	"connectrpc.com/connect"
	"github.com/google/uuid"
	"golang.org/x/net/http2"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

type Protocol string

const (
	ProtocolConnect Protocol = "connect"
	ProtocolGRPC    Protocol = "grpc"
)

type (
	Client struct {
		createSession *connect.Client[sim.CreateSessionRequest, model.SessionHandle]
		getSession    *connect.Client[sim.GuidData, model.SessionHandle]
		createCar     *connect.Client[sim.CreateCarRequest, model.CarHandle]
		getCarData    *connect.Client[sim.GuidData, model.CarHandle]
		step          *connect.Client[sim.StepRequest, model.CarHandle]
		destroyCar    *connect.Client[sim.GuidData, sim.Empty]
		log           *log.Logger
	}
	Option  func(*options)
	options struct {
		httpClient   connect.HTTPClient
		protocol     Protocol
		interceptors []connect.Interceptor
		log          *log.Logger
	}
)

var _ sim.Service = (*Client)(nil)

func WithHTTPClient(c connect.HTTPClient) Option {
	return func(o *options) {
		o.httpClient = c
	}
}

func WithProtocol(p Protocol) Option {
	return func(o *options) {
		o.protocol = p
	}
}

func WithInterceptors(i ...connect.Interceptor) Option {
	return func(o *options) {
		o.interceptors = append(o.interceptors, i...)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		o.log = l
	}
}

func ParseProtocol(arg string) (Protocol, bool) {
	switch Protocol(strings.ToLower(strings.TrimSpace(arg))) {
	case ProtocolConnect, "":
		return ProtocolConnect, true
	case ProtocolGRPC:
		return ProtocolGRPC, true
	}
	return ProtocolConnect, false
}

// New creates a client for the service at baseURL (example: http://localhost:6003)
func New(baseURL string, opts ...Option) *Client {
	o := &options{
		protocol: ProtocolConnect,
		log:      log.Default().Named("sim.client"),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		if o.protocol == ProtocolGRPC {
			o.httpClient = newH2CClient()
		} else {
			o.httpClient = http.DefaultClient
		}
	}
	baseURL = strings.TrimRight(baseURL, "/")

	clientOpts := []connect.ClientOption{
		connect.WithCodec(sim.JSONCodec{}),
		connect.WithInterceptors(
			append([]connect.Interceptor{newLoggingInterceptor(o.log)},
				o.interceptors...)...),
	}
	if o.protocol == ProtocolGRPC {
		clientOpts = append(clientOpts, connect.WithGRPC())
	}

	return &Client{
		createSession: connect.NewClient[sim.CreateSessionRequest, model.SessionHandle](
			o.httpClient, baseURL+sim.CreateSessionProcedure, clientOpts...),
		getSession: connect.NewClient[sim.GuidData, model.SessionHandle](
			o.httpClient, baseURL+sim.GetSessionProcedure, clientOpts...),
		createCar: connect.NewClient[sim.CreateCarRequest, model.CarHandle](
			o.httpClient, baseURL+sim.CreateCarProcedure, clientOpts...),
		getCarData: connect.NewClient[sim.GuidData, model.CarHandle](
			o.httpClient, baseURL+sim.GetCarDataProcedure, clientOpts...),
		step: connect.NewClient[sim.StepRequest, model.CarHandle](
			o.httpClient, baseURL+sim.StepProcedure, clientOpts...),
		destroyCar: connect.NewClient[sim.GuidData, sim.Empty](
			o.httpClient, baseURL+sim.DestroyCarProcedure, clientOpts...),
		log: o.log,
	}
}

// gRPC needs HTTP/2, the simulation service is usually reached without TLS
func newH2CClient() *http.Client {
	return &http.Client{
		Transport: &http2.Transport{
			AllowHTTP: true,
			//nolint:whitespace // editor/linter issue
			DialTLSContext: func(
				ctx context.Context, network, addr string, _ *tls.Config,
			) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		},
	}
}

//nolint:whitespace // editor/linter issue
func (c *Client) CreateSession(ctx context.Context, req *sim.CreateSessionRequest) (
	*model.SessionHandle, error,
) {
	res, err := c.createSession.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, transportError(sim.CreateSessionProcedure, err)
	}
	return res.Msg, nil
}

//nolint:whitespace // editor/linter issue
func (c *Client) GetSession(ctx context.Context, id uuid.UUID) (
	*model.SessionHandle, error,
) {
	res, err := c.getSession.CallUnary(ctx, connect.NewRequest(guid(id)))
	if err != nil {
		return nil, transportError(sim.GetSessionProcedure, err)
	}
	return res.Msg, nil
}

//nolint:whitespace // editor/linter issue
func (c *Client) CreateCar(ctx context.Context, req *sim.CreateCarRequest) (
	*model.CarHandle, error,
) {
	res, err := c.createCar.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, transportError(sim.CreateCarProcedure, err)
	}
	return res.Msg, nil
}

//nolint:whitespace // editor/linter issue
func (c *Client) GetCarData(ctx context.Context, carID uuid.UUID) (
	*model.CarHandle, error,
) {
	res, err := c.getCarData.CallUnary(ctx, connect.NewRequest(guid(carID)))
	if err != nil {
		return nil, transportError(sim.GetCarDataProcedure, err)
	}
	return res.Msg, nil
}

//nolint:whitespace // editor/linter issue
func (c *Client) Step(ctx context.Context, req *sim.StepRequest) (
	*model.CarHandle, error,
) {
	res, err := c.step.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, transportError(sim.StepProcedure, err)
	}
	return res.Msg, nil
}

func (c *Client) DestroyCar(ctx context.Context, carID uuid.UUID) error {
	if _, err := c.destroyCar.CallUnary(ctx, connect.NewRequest(guid(carID))); err != nil {
		return transportError(sim.DestroyCarProcedure, err)
	}
	return nil
}

func guid(id uuid.UUID) *sim.GuidData {
	return &sim.GuidData{GuidString: id.String()}
}

func transportError(procedure string, err error) error {
	return &sim.TransportError{Procedure: procedure, Err: err}
}
