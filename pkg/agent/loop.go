package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

const instrumentationName = "owlracer.agent"

type (
	// StepRecord describes one completed iteration of the control loop
	StepRecord struct {
		SessionID         uuid.UUID
		CarID             uuid.UUID
		Iteration         uint64
		Time              time.Time
		Values            [schema.NumValues]float32
		Label             int64
		Command           model.DrivingCommand
		InferenceDuration time.Duration
	}

	// StepObserver must not block the loop for long
	StepObserver interface {
		ObserveStep(ctx context.Context, rec *StepRecord)
	}
	StepObserverFunc func(ctx context.Context, rec *StepRecord)

	ControlLoop struct {
		service       sim.Service
		adapter       schema.Adapter
		port          classifier.Port
		resolver      Resolver
		maxIterations uint64
		observers     []StepObserver
		now           func() time.Time

		tracer            trace.Tracer
		stepCounter       metric.Int64Counter
		inferenceDuration metric.Float64Histogram
	}
	LoopOption func(*ControlLoop)
)

func (f StepObserverFunc) ObserveStep(ctx context.Context, rec *StepRecord) {
	f(ctx, rec)
}

// WithMaxIterations stops the loop after n iterations. 0 runs until error.
func WithMaxIterations(n uint64) LoopOption {
	return func(l *ControlLoop) {
		l.maxIterations = n
	}
}

func WithStepObserver(o StepObserver) LoopOption {
	return func(l *ControlLoop) {
		l.observers = append(l.observers, o)
	}
}

func WithLoopClock(now func() time.Time) LoopOption {
	return func(l *ControlLoop) {
		l.now = now
	}
}

//nolint:whitespace // editor/linter issue
func NewControlLoop(
	service sim.Service,
	adapter schema.Adapter,
	port classifier.Port,
	resolver Resolver,
	opts ...LoopOption,
) *ControlLoop {
	ret := &ControlLoop{
		service:  service,
		adapter:  adapter,
		port:     port,
		resolver: resolver,
		now:      time.Now,
		tracer:   otel.Tracer(instrumentationName),
	}
	for _, opt := range opts {
		opt(ret)
	}
	ret.setupMetrics()
	return ret
}

func (l *ControlLoop) setupMetrics() {
	logger := log.Default().Named("agent.loop")
	meter := otel.GetMeterProvider().Meter(instrumentationName)
	var err error
	if l.stepCounter, err = meter.Int64Counter("owlracer.agent.steps",
		metric.WithDescription("Number of submitted steps"),
		metric.WithUnit("{count}")); err != nil {
		logger.Error("failed to register metric", log.ErrorField(err))
		l.stepCounter = noop.Int64Counter{}
	}
	if l.inferenceDuration, err = meter.Float64Histogram(
		"owlracer.agent.inference.duration",
		metric.WithDescription("Duration of classifier invocations"),
		metric.WithUnit("s")); err != nil {
		logger.Error("failed to register metric", log.ErrorField(err))
		l.inferenceDuration = noop.Float64Histogram{}
	}
}

// Run drives car until an error occurs, ctx is done or the configured number
// of iterations is reached. The latter returns nil.
// The logger is taken from ctx.
func (l *ControlLoop) Run(ctx context.Context, car *model.CarHandle) error {
	logger := log.GetFromContext(ctx).Named("agent.loop").With(
		log.String("car", car.ID.String()))
	logger.Info("starting control loop",
		log.Stringer("schema", l.adapter.Version()),
		log.Uint64("maxIterations", l.maxIterations))
	for i := uint64(0); l.maxIterations == 0 || i < l.maxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := l.iterate(ctx, logger, car, i); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				// a call aborted by cancellation is not a failure
				return ctxErr
			}
			logger.Error("control loop aborted",
				log.Uint64("iteration", i),
				log.ErrorField(err))
			return err
		}
	}
	logger.Info("iteration limit reached", log.Uint64("iterations", l.maxIterations))
	return nil
}

// iterate performs fetch, adapt, predict, resolve and step strictly in this
// order. The decision is always based on the telemetry fetched here.
//
//nolint:whitespace // editor/linter issue
func (l *ControlLoop) iterate(
	ctx context.Context, logger *log.Logger, car *model.CarHandle, iteration uint64,
) (err error) {
	ctx, span := l.tracer.Start(ctx, "agent.step",
		trace.WithAttributes(
			attribute.String("car.id", car.ID.String()),
			attribute.Int64("iteration", int64(iteration)),
		))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	data, err := l.service.GetCarData(ctx, car.ID)
	if err != nil {
		return fmt.Errorf("fetch telemetry: %w", err)
	}
	in, err := l.adapter.Adapt(data)
	if err != nil {
		return err
	}

	start := l.now()
	prediction, err := l.port.Predict(ctx, in)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	elapsed := l.now().Sub(start)
	l.inferenceDuration.Record(ctx, elapsed.Seconds(),
		metric.WithAttributes(attribute.String("schema", l.adapter.Version().String())))

	cmd, err := l.resolver.Resolve(prediction.Label)
	if err != nil {
		return err
	}
	span.SetAttributes(
		attribute.Int64("label", prediction.Label),
		attribute.String("command", cmd.String()))

	if _, err = l.service.Step(ctx, &sim.StepRequest{CarID: car.ID, Command: cmd}); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	l.stepCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("command", cmd.String())))
	logger.Debug("step",
		log.Uint64("iteration", iteration),
		log.Float32("velocity", data.Velocity),
		log.Int64("label", prediction.Label),
		log.Stringer("command", cmd))

	if len(l.observers) > 0 {
		rec := &StepRecord{
			SessionID:         car.SessionID,
			CarID:             car.ID,
			Iteration:         iteration,
			Time:              l.now(),
			Values:            in.Values(),
			Label:             prediction.Label,
			Command:           cmd,
			InferenceDuration: elapsed,
		}
		for _, o := range l.observers {
			o.ObserveStep(ctx, rec)
		}
	}
	return nil
}
