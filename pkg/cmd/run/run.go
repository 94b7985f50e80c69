package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"connectrpc.com/otelconnect"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	otlpruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/agent"
	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier"
	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier/onnx"
	"github.com/mpapenbr/owlracer-agent-go/pkg/config"
	"github.com/mpapenbr/owlracer-agent-go/pkg/labelmap"
	"github.com/mpapenbr/owlracer-agent-go/pkg/recorder"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim/client"
	"github.com/mpapenbr/owlracer-agent-go/pkg/utils"
)

type (
	// dependencies that reach out of the process
	deps struct {
		newService    func(cfg *config.Config) sim.Service
		newClassifier func(cfg *config.Config, adapter schema.Adapter) (classifier.Port, func(), error)
		waitForTCP    func(ctx context.Context, addr string, timeout time.Duration) error
	}
)

// FlagAliases maps alternative option names to the flag names of the run
// command. They are accepted on the command line and as config file keys.
var FlagAliases = map[string]string{
	"carName":  "car-name",
	"carColor": "car-color",
}

func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if alias, ok := FlagAliases[name]; ok {
		name = alias
	}
	return pflag.NormalizedName(name)
}

//nolint:funlen // by design
func NewRunCmd() *cobra.Command {
	opts := config.DefaultOptions()
	cmd := &cobra.Command{
		Use:          "run",
		Short:        "joins a race and drives a car with a classifier model",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runAgent(ctx, opts, defaultDeps())
		},
	}
	cmd.Flags().SetNormalizeFunc(normalizeFlagName)
	cmd.Flags().StringVar(&opts.Session,
		"session",
		"",
		"id of the session to join. A new session is created if empty")
	cmd.Flags().Int32Var(&opts.TrackNumber,
		"track",
		opts.TrackNumber,
		"track number used when creating a session")
	cmd.Flags().StringVar(&opts.ModelPath,
		"model",
		"",
		"path to the classifier model (required)")
	cmd.Flags().StringVar(&opts.CarName,
		"car-name",
		opts.CarName,
		"name of the car")
	cmd.Flags().StringVar(&opts.CarColor,
		"car-color",
		opts.CarColor,
		"color of the car")
	cmd.Flags().StringVar(&opts.SchemaVersion,
		"version",
		opts.SchemaVersion,
		"telemetry schema version of the model (1: packed, 2: named)")
	cmd.Flags().StringVar(&opts.LabelMapPath,
		"labelmap",
		"",
		"path to the label map (default <model dir>/labelmap.yaml)")
	cmd.Flags().StringVar(&opts.Addr,
		"addr",
		opts.Addr,
		"base URL of the simulation service")
	cmd.Flags().StringVar(&opts.Protocol,
		"protocol",
		opts.Protocol,
		"protocol used to talk to the simulation service (connect, grpc)")
	cmd.Flags().DurationVar(&opts.RaceWaitTimeout,
		"race-wait-timeout",
		0,
		"max duration to wait for the race to start (0: wait forever)")
	cmd.Flags().DurationVar(&opts.PollInterval,
		"poll-interval",
		opts.PollInterval,
		"interval for checking the session phase")
	cmd.Flags().Uint64Var(&opts.MaxSteps,
		"max-steps",
		0,
		"stop after this number of steps (0: run until error)")
	cmd.Flags().StringVar(&opts.OnnxRuntimeLib,
		"onnxruntime-lib",
		"",
		"path to the onnxruntime shared library")
	cmd.Flags().DurationVar(&opts.WaitForServices,
		"wait-for-services",
		opts.WaitForServices,
		"Duration to wait for the simulation service to be ready (0: don't wait)")
	cmd.Flags().StringVar(&opts.NatsURL,
		"nats-url",
		"",
		"if set, each step is published to this NATS server")
	cmd.Flags().BoolVar(&opts.EnableTelemetry,
		"enable-telemetry",
		false,
		"enables telemetry")
	cmd.Flags().StringVar(&opts.TelemetryEndpoint,
		"telemetry-endpoint",
		opts.TelemetryEndpoint,
		"Endpoint that receives open telemetry data (use 'stdout' for console output)")
	return cmd
}

func defaultDeps() *deps {
	return &deps{
		newService:    newService,
		newClassifier: newClassifier,
		waitForTCP:    utils.WaitForTCP,
	}
}

func newService(cfg *config.Config) sim.Service {
	myOtel, err := otelconnect.NewInterceptor()
	if err != nil {
		log.Warn("could not create otel interceptor", log.ErrorField(err))
		return client.New(cfg.Addr, client.WithProtocol(cfg.Protocol))
	}
	return client.New(cfg.Addr,
		client.WithProtocol(cfg.Protocol),
		client.WithInterceptors(connect.Interceptor(myOtel)))
}

//nolint:whitespace // editor/linter issue
func newClassifier(cfg *config.Config, adapter schema.Adapter) (
	classifier.Port, func(), error,
) {
	c, err := onnx.New(cfg.ModelPath, adapter, onnx.WithSharedLibrary(cfg.OnnxRuntimeLib))
	if err != nil {
		return nil, nil, err
	}
	return c, func() {
		if err := c.Close(); err != nil {
			log.Warn("could not close classifier", log.ErrorField(err))
		}
		if err := onnx.Shutdown(); err != nil {
			log.Warn("could not shutdown onnxruntime", log.ErrorField(err))
		}
	}, nil
}

// runAgent validates the configuration and the model before any network call
// is made. A run stopped via ctx is not an error.
//
//nolint:funlen,cyclop // by design
func runAgent(ctx context.Context, opts *config.Options, d *deps) error {
	cfg, err := config.Load(opts)
	if err != nil {
		return err
	}
	adapter, err := schema.ForVersion(cfg.SchemaVersion)
	if err != nil {
		return &config.ConfigError{Option: "version", Err: err}
	}
	var labels *labelmap.LabelMap
	if adapter.ResolvesLabels() {
		if labels, err = loadLabelMap(cfg.LabelMapPath); err != nil {
			return &config.ConfigError{Option: "labelmap", Err: err}
		}
	}
	resolver, err := agent.ResolverFor(adapter, labels)
	if err != nil {
		return &config.ConfigError{Option: "labelmap", Err: err}
	}

	digest, err := utils.FileDigest(cfg.ModelPath)
	if err != nil {
		return &classifier.ModelLoadError{Path: cfg.ModelPath, Err: err}
	}
	port, closePort, err := d.newClassifier(cfg, adapter)
	if err != nil {
		return err
	}
	defer closePort()
	log.Info("using model",
		log.String("path", cfg.ModelPath),
		log.String("digest", digest),
		log.Stringer("schema", cfg.SchemaVersion))

	if cfg.EnableTelemetry {
		shutdown := setupTelemetry(ctx, cfg)
		defer shutdown()
	}

	if cfg.WaitForServices > 0 {
		if addr := utils.ExtractFromServiceURL(cfg.Addr); addr != "" {
			if err = d.waitForTCP(ctx, addr, cfg.WaitForServices); err != nil {
				return fmt.Errorf("simulation service not ready: %w", err)
			}
		}
	}

	var loopOpts []agent.LoopOption
	if cfg.NatsURL != "" {
		conn, err := recorder.Connect(cfg.NatsURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		defer conn.Close()
		loopOpts = append(loopOpts, agent.WithStepObserver(
			recorder.New(conn, recorder.WithModelDigest(digest))))
	}

	ctx = log.AddToContext(ctx, log.Default().With(
		log.String("model", filepath.Base(cfg.ModelPath))))
	a := agent.New(cfg, d.newService(cfg), port, adapter, resolver,
		agent.WithLoopOptions(loopOpts...))
	err = a.Run(ctx)
	if err != nil && ctx.Err() != nil {
		log.Info("agent stopped", log.String("reason", err.Error()))
		return nil
	}
	return err
}

func loadLabelMap(path string) (*labelmap.LabelMap, error) {
	labels, err := labelmap.Load(path)
	if err != nil {
		return nil, err
	}
	for _, dup := range labels.Duplicates() {
		log.Warn("duplicate label in label map, last entry wins",
			log.Int64("label", dup.Label),
			log.String("previousGroup", dup.PreviousGroup),
			log.Stringer("previous", dup.Previous),
			log.String("group", dup.Group),
			log.Stringer("current", dup.Current))
	}
	log.Info("label map loaded", log.String("path", path), log.Int("entries", labels.Len()))
	return labels, nil
}

func setupTelemetry(ctx context.Context, cfg *config.Config) func() {
	log.Info("Enabling telemetry")
	telemetry, err := config.SetupTelemetry(ctx, cfg.TelemetryEndpoint)
	if err != nil {
		log.Warn("Could not setup telemetry", log.ErrorField(err))
		return func() {}
	}
	err = otlpruntime.Start(otlpruntime.WithMinimumReadMemStatsInterval(time.Second))
	if err != nil {
		log.Warn("Could not start runtime metrics", log.ErrorField(err))
	}
	return telemetry.Shutdown
}
