package run

import (
	"errors"

	"github.com/mpapenbr/owlracer-agent-go/pkg/agent"
)

const (
	exitFailure   = 1
	exitConfig    = 2
	exitModelLoad = 3
)

// ExitCode maps an error returned by the run command to the process exit code
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, agent.ErrConfig):
		return exitConfig
	case errors.Is(err, agent.ErrModelLoad):
		return exitModelLoad
	}
	return exitFailure
}
