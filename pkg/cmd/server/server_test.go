package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim/client"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim/mock"
)

func TestNewHandler(t *testing.T) {
	ts := httptest.NewServer(newHandler(mock.NewServer()))
	defer ts.Close()

	for _, p := range []client.Protocol{client.ProtocolConnect, client.ProtocolGRPC} {
		c := client.New(ts.URL, client.WithProtocol(p))
		sess, err := c.CreateSession(context.Background(),
			&sim.CreateSessionRequest{GameTimeSetting: 40, TrackNumber: 2, Name: "x"})
		require.NoError(t, err, p)
		assert.NotEmpty(t, sess.ID, p)
	}
}

func TestNewHandler_CORS(t *testing.T) {
	ts := httptest.NewServer(newHandler(mock.NewServer()))
	defer ts.Close()

	req, err := http.NewRequestWithContext(context.Background(), http.MethodOptions,
		ts.URL+sim.CreateSessionProcedure, http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, "http://example.com", res.Header.Get("Access-Control-Allow-Origin"))
}

func TestNewHandler_Health(t *testing.T) {
	ts := httptest.NewServer(newHandler(mock.NewServer()))
	defer ts.Close()

	res, err := http.Post(ts.URL+"/grpc.health.v1.Health/Check", //nolint:noctx // test
		"application/json", strings.NewReader(`{"service":"`+sim.ServiceName+`"}`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestTraceIDInterceptor(t *testing.T) {
	srv := mock.NewServer()
	mux := http.NewServeMux()
	tracer := sdktrace.NewTracerProvider().Tracer("test")
	spanning := connect.UnaryInterceptorFunc(func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx, span := tracer.Start(ctx, req.Spec().Procedure)
			defer span.End()
			return next(ctx, req)
		}
	})
	srv.Register(mux, connect.WithInterceptors(spanning, mock.NewTraceIDInterceptor()))
	ts := httptest.NewServer(mux)
	defer ts.Close()

	res, err := http.Post(ts.URL+sim.CreateSessionProcedure, //nolint:noctx // test
		"application/json", strings.NewReader(`{"name":"x","trackNumber":2}`))
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, res.Header.Get(sim.TraceIDHeader), 32)
}

func TestHandlerInterceptors(t *testing.T) {
	got := handlerInterceptors(otelconnect.NewInterceptor)
	require.Len(t, got, 2)
	assert.IsType(t, &otelconnect.Interceptor{}, got[0])
	assert.IsType(t, mock.NewTraceIDInterceptor(), got[1])

	failing := func(...otelconnect.Option) (*otelconnect.Interceptor, error) {
		return nil, errors.New("no exporter")
	}
	got = handlerInterceptors(failing)
	require.Len(t, got, 1, "trace id interceptor is kept without otel")
	assert.IsType(t, mock.NewTraceIDInterceptor(), got[0])
}
