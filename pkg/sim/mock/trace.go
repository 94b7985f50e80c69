package mock

import (
	"context"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

type traceIDInjector struct{}

// NewTraceIDInterceptor adds the id of the active trace to responses.
// Needs an interceptor creating spans (otelconnect) in front of it.
func NewTraceIDInterceptor() connect.Interceptor {
	return &traceIDInjector{}
}

//nolint:whitespace // better readability
func (i *traceIDInjector) WrapUnary(next connect.UnaryFunc) connect.UnaryFunc {
	return connect.UnaryFunc(func(
		ctx context.Context,
		req connect.AnyRequest,
	) (connect.AnyResponse, error) {
		res, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
			res.Header().Set(sim.TraceIDHeader, sc.TraceID().String())
		}
		return res, nil
	})
}

// only unary procedures are served
//
//nolint:whitespace // editor/linter
func (i *traceIDInjector) WrapStreamingClient(
	next connect.StreamingClientFunc,
) connect.StreamingClientFunc {
	return next
}

//nolint:whitespace // editor/linter
func (i *traceIDInjector) WrapStreamingHandler(
	next connect.StreamingHandlerFunc,
) connect.StreamingHandlerFunc {
	return next
}
