package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/aarondl/opt/omit"
	"github.com/google/uuid"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim/client"
)

const (
	DefaultTrackNumber     int32 = 2
	DefaultCarName               = "ML.NET"
	DefaultCarColor              = "#bd11b4"
	DefaultAddr                  = "http://localhost:6003"
	DefaultPollInterval          = 100 * time.Millisecond
	DefaultLabelMapFile          = "labelmap.yaml"
	DefaultTelemetryAddr         = "localhost:4317"
	DefaultWaitForServices       = 15 * time.Second
)

var ErrConfig = errors.New("configuration error")

// Options holds the raw values as provided by CLI, config file or environment
//
//nolint:lll // readability
type Options struct {
	Session           string        // session to join, empty creates a new session
	TrackNumber       int32         // track used when creating a session
	ModelPath         string        // path to the classifier artifact
	CarName           string        // name of the spawned car
	CarColor          string        // color of the spawned car
	SchemaVersion     string        // telemetry schema version of the artifact
	LabelMapPath      string        // path to the label map, defaults to the model directory
	Addr              string        // base URL of the simulation service
	Protocol          string        // connect or grpc
	RaceWaitTimeout   time.Duration // max time to wait for the race to start, 0 waits forever
	PollInterval      time.Duration // interval for session phase polling
	MaxSteps          uint64        // stop after this number of steps, 0 runs until error
	OnnxRuntimeLib    string        // path to the onnxruntime shared library
	WaitForServices   time.Duration // duration to wait for the simulation service to be ready
	NatsURL           string        // if set, step records are published here
	EnableTelemetry   bool          // enable telemetry
	TelemetryEndpoint string        // endpoint for telemetry, "stdout" prints to stdout
}

// Config holds the validated values used by the application.
// It is not modified after Load.
type Config struct {
	SessionID         omit.Val[uuid.UUID]
	TrackNumber       int32
	ModelPath         string
	CarName           string
	CarColor          string
	SchemaVersion     schema.Version
	LabelMapPath      string
	Addr              string
	Protocol          client.Protocol
	RaceWaitTimeout   time.Duration
	PollInterval      time.Duration
	MaxSteps          uint64
	OnnxRuntimeLib    string
	WaitForServices   time.Duration
	NatsURL           string
	EnableTelemetry   bool
	TelemetryEndpoint string
}

type ConfigError struct {
	Option string
	Err    error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid option %s: %v", e.Option, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// DefaultOptions returns the options with all defaults applied
func DefaultOptions() *Options {
	return &Options{
		TrackNumber:       DefaultTrackNumber,
		CarName:           DefaultCarName,
		CarColor:          DefaultCarColor,
		SchemaVersion:     DefaultVersion(),
		Addr:              DefaultAddr,
		Protocol:          string(client.ProtocolConnect),
		PollInterval:      DefaultPollInterval,
		WaitForServices:   DefaultWaitForServices,
		TelemetryEndpoint: DefaultTelemetryAddr,
	}
}

func DefaultVersion() string {
	return strconv.Itoa(int(schema.DefaultVersion))
}

// Load validates opts and resolves defaults. Errors are of type *ConfigError.
// Load does not perform any network calls.
//
//nolint:funlen,cyclop // by design
func Load(opts *Options) (*Config, error) {
	logger := log.Default().Named("config")
	ret := &Config{
		TrackNumber:       opts.TrackNumber,
		ModelPath:         opts.ModelPath,
		CarName:           opts.CarName,
		CarColor:          opts.CarColor,
		LabelMapPath:      opts.LabelMapPath,
		Addr:              opts.Addr,
		RaceWaitTimeout:   opts.RaceWaitTimeout,
		PollInterval:      opts.PollInterval,
		MaxSteps:          opts.MaxSteps,
		OnnxRuntimeLib:    opts.OnnxRuntimeLib,
		WaitForServices:   opts.WaitForServices,
		NatsURL:           opts.NatsURL,
		EnableTelemetry:   opts.EnableTelemetry,
		TelemetryEndpoint: opts.TelemetryEndpoint,
	}

	if ret.ModelPath == "" {
		return nil, &ConfigError{Option: "model", Err: errors.New("required")}
	}
	if err := checkFile(ret.ModelPath); err != nil {
		return nil, &ConfigError{Option: "model", Err: err}
	}

	if opts.Session != "" {
		if id, err := uuid.Parse(opts.Session); err == nil {
			ret.SessionID = omit.From(id)
		} else {
			logger.Warn("ignoring invalid session id, a new session will be created",
				log.String("session", opts.Session),
				log.ErrorField(err))
		}
	}

	if v, ok := schema.ParseVersion(opts.SchemaVersion); ok {
		ret.SchemaVersion = v
	} else {
		ret.SchemaVersion = schema.DefaultVersion
		if opts.SchemaVersion != "" {
			logger.Warn("unknown schema version, using default",
				log.String("version", opts.SchemaVersion),
				log.Stringer("default", schema.DefaultVersion))
		}
	}

	if ret.LabelMapPath == "" {
		ret.LabelMapPath = filepath.Join(filepath.Dir(ret.ModelPath), DefaultLabelMapFile)
	}
	if adapter, err := schema.ForVersion(ret.SchemaVersion); err == nil &&
		adapter.ResolvesLabels() {
		if err := checkFile(ret.LabelMapPath); err != nil {
			return nil, &ConfigError{Option: "labelmap", Err: err}
		}
	}

	if ret.TrackNumber <= 0 {
		ret.TrackNumber = DefaultTrackNumber
	}
	if ret.CarName == "" {
		ret.CarName = DefaultCarName
	}
	if ret.CarColor == "" {
		ret.CarColor = DefaultCarColor
	}
	if ret.PollInterval <= 0 {
		ret.PollInterval = DefaultPollInterval
	}
	if ret.RaceWaitTimeout < 0 {
		return nil, &ConfigError{
			Option: "race-wait-timeout",
			Err:    fmt.Errorf("must not be negative: %v", ret.RaceWaitTimeout),
		}
	}

	protocol, ok := client.ParseProtocol(opts.Protocol)
	if !ok {
		return nil, &ConfigError{
			Option: "protocol",
			Err:    fmt.Errorf("unsupported protocol %q", opts.Protocol),
		}
	}
	ret.Protocol = protocol

	if ret.Addr == "" {
		ret.Addr = DefaultAddr
	}
	if u, err := url.Parse(ret.Addr); err != nil {
		return nil, &ConfigError{Option: "addr", Err: err}
	} else if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, &ConfigError{
			Option: "addr",
			Err:    fmt.Errorf("expected http(s)://host:port, got %q", ret.Addr),
		}
	}
	return ret, nil
}

func checkFile(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	if fi.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
