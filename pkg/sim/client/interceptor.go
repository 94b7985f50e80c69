package client

import (
	"context"
	"time"

	"connectrpc.com/connect"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

// newLoggingInterceptor logs each call on debug level, failures on warn level.
// The trace id is added if the call is part of a valid span.
func newLoggingInterceptor(l *log.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		//nolint:whitespace // editor/linter issue
		return func(
			ctx context.Context, req connect.AnyRequest,
		) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)
			fields := []log.Field{
				log.String("procedure", req.Spec().Procedure),
				log.Duration("duration", time.Since(start)),
			}
			if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
				fields = append(fields,
					log.String("traceId", span.SpanContext().TraceID().String()))
			}
			if err == nil && res != nil {
				if id := res.Header().Get(sim.TraceIDHeader); id != "" {
					fields = append(fields, log.String("serverTraceId", id))
				}
			}
			if err != nil {
				l.Warn("call failed", append(fields, log.ErrorField(err))...)
				return res, err
			}
			l.Debug("call done", fields...)
			return res, nil
		}
	}
}
