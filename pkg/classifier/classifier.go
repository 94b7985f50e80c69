// Package classifier defines the capability used by the control loop to turn
// adapted telemetry into a raw label.
package classifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/aarondl/opt/omit"
	"github.com/samber/lo"

	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
)

var ErrModelLoad = errors.New("model load error")

type (
	Prediction struct {
		Label int64
		// per label probabilities, if the artifact provides them
		Scores omit.Val[map[int64]float32]
	}

	// Port is initialized once per process and must not change state per call.
	Port interface {
		Predict(ctx context.Context, in *schema.Input) (*Prediction, error)
	}

	// PortFunc adapts a function to the Port interface
	PortFunc func(ctx context.Context, in *schema.Input) (*Prediction, error)

	ModelLoadError struct {
		Path string
		Err  error
	}
)

//nolint:whitespace // editor/linter issue
func (f PortFunc) Predict(ctx context.Context, in *schema.Input) (
	*Prediction, error,
) {
	return f(ctx, in)
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("could not load model %q: %v", e.Path, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

func (e *ModelLoadError) Is(target error) bool {
	return target == ErrModelLoad
}

// CheckLayout verifies that an artifact declaring the given input and output
// column names can be driven by adapter.
//
//nolint:whitespace // editor/linter issue
func CheckLayout(
	adapter schema.Adapter, declaredInputs, declaredOutputs []string,
) error {
	if missing := lo.Without(adapter.InputNames(), declaredInputs...); len(missing) > 0 {
		return fmt.Errorf("schema %s requires inputs %v, model declares %v",
			adapter.Version(), missing, declaredInputs)
	}
	if extra := lo.Without(declaredInputs, adapter.InputNames()...); len(extra) > 0 {
		return fmt.Errorf("model declares inputs %v unknown to schema %s",
			extra, adapter.Version())
	}
	if !lo.Contains(declaredOutputs, schema.OutputLabel) {
		return fmt.Errorf("model does not declare output %q (declared: %v)",
			schema.OutputLabel, declaredOutputs)
	}
	return nil
}

// BoundOutputs returns the output columns of adapter the artifact declares,
// in the order requested by adapter. Columns not declared by the artifact
// must not be bound to a runtime session.
func BoundOutputs(adapter schema.Adapter, declaredOutputs []string) []string {
	return lo.Filter(adapter.OutputNames(), func(name string, _ int) bool {
		return lo.Contains(declaredOutputs, name)
	})
}
