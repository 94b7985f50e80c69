package agent

import (
	"fmt"

	"github.com/mpapenbr/owlracer-agent-go/pkg/labelmap"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
)

type (
	// Resolver turns a raw classifier label into a driving command
	Resolver interface {
		Resolve(label int64) (model.DrivingCommand, error)
	}

	LabelMapResolver struct {
		labels *labelmap.LabelMap
	}

	// DirectResolver treats the label as command id
	DirectResolver struct{}
)

var (
	_ Resolver = (*LabelMapResolver)(nil)
	_ Resolver = DirectResolver{}
)

func NewLabelMapResolver(labels *labelmap.LabelMap) *LabelMapResolver {
	return &LabelMapResolver{labels: labels}
}

// Resolve never falls back to a default command
func (r *LabelMapResolver) Resolve(label int64) (model.DrivingCommand, error) {
	cmd, ok := r.labels.Lookup(label)
	if !ok {
		return model.CmdIdle, &UnknownLabelError{Label: label}
	}
	return cmd, nil
}

// Resolve rejects ids outside the step vocabulary of the simulation
func (DirectResolver) Resolve(label int64) (model.DrivingCommand, error) {
	cmd := model.DrivingCommand(label)
	if !cmd.Valid() {
		return model.CmdIdle, &UnknownLabelError{Label: label}
	}
	return cmd, nil
}

// ResolverFor selects the resolver matching the schema of adapter.
// labels may be nil if the schema does not resolve labels.
func ResolverFor(adapter schema.Adapter, labels *labelmap.LabelMap) (Resolver, error) {
	if !adapter.ResolvesLabels() {
		return DirectResolver{}, nil
	}
	if labels == nil {
		return nil, fmt.Errorf("schema %s requires a label map", adapter.Version())
	}
	return NewLabelMapResolver(labels), nil
}
