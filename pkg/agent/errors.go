package agent

import (
	"errors"
	"fmt"

	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier"
	"github.com/mpapenbr/owlracer-agent-go/pkg/config"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
)

// Sentinel errors for use with errors.Is
var (
	ErrConfig             = config.ErrConfig
	ErrModelLoad          = classifier.ErrModelLoad
	ErrTransport          = sim.ErrTransport
	ErrMalformedTelemetry = schema.ErrMalformedTelemetry
	ErrUnknownLabel       = errors.New("unknown label")
	ErrRaceWaitTimeout    = errors.New("timeout waiting for race")
)

// Typed errors for use with errors.As
type (
	ConfigError    = config.ConfigError
	ModelLoadError = classifier.ModelLoadError
	TransportError = sim.TransportError

	UnknownLabelError struct {
		Label int64
	}
)

func (e *UnknownLabelError) Error() string {
	return fmt.Sprintf("label %d has no command assigned", e.Label)
}

func (e *UnknownLabelError) Is(target error) bool {
	return target == ErrUnknownLabel
}
