// Package schema converts car telemetry into the input layout a classifier
// artifact expects.
//
// Artifacts were produced by different ingestion pipelines. Version 1
// ("packed") expects one float vector named "input", version 2 ("named")
// expects six scalar columns. The numeric values are the same for both.
package schema

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
)

type Version int

const (
	VersionPacked Version = 1
	VersionNamed  Version = 2

	DefaultVersion = VersionNamed
)

// NumValues is the number of telemetry values fed into a classifier
const NumValues = 6

const (
	OutputLabel       = "output_label"
	OutputProbability = "output_probability"
)

var (
	ErrMalformedTelemetry = errors.New("malformed telemetry")
	ErrUnknownVersion     = errors.New("unknown schema version")
)

type (
	// Adapter is selected once per process by the configured schema version.
	Adapter interface {
		Version() Version
		// Adapt converts the telemetry of car. It never substitutes missing values.
		Adapt(car *model.CarHandle) (*Input, error)
		// InputNames are the input column names the artifact must declare
		InputNames() []string
		// OutputNames are the output column names requested from the artifact
		OutputNames() []string
		// ResolvesLabels reports whether the classifier label must be translated
		// via the label map. If false the label is the command id.
		ResolvesLabels() bool
	}

	ElementType int

	Feature struct {
		Name  string
		Type  ElementType
		Shape []int64
		// exactly one of the following is filled depending on Type
		Float32 []float32
		Int64   []int64
	}

	Input struct {
		values   [NumValues]float32
		features []Feature
	}
)

const (
	Float32 ElementType = iota
	Int64
)

func (e ElementType) String() string {
	if e == Int64 {
		return "int64"
	}
	return "float32"
}

func (v Version) String() string {
	switch v {
	case VersionPacked:
		return "v1 (packed)"
	case VersionNamed:
		return "v2 (named)"
	}
	return fmt.Sprintf("v%d (unknown)", int(v))
}

// ParseVersion interprets a configured version value. Empty, unparsable or
// unknown values select DefaultVersion. The bool result is false in that case.
func ParseVersion(arg string) (Version, bool) {
	v, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return DefaultVersion, false
	}
	switch Version(v) {
	case VersionPacked, VersionNamed:
		return Version(v), true
	}
	return DefaultVersion, false
}

func ForVersion(v Version) (Adapter, error) {
	switch v {
	case VersionPacked:
		return packed{}, nil
	case VersionNamed:
		return named{}, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownVersion, int(v))
}

// Values returns the telemetry values in the order
// velocity, front, frontLeft, frontRight, left, right.
func (in *Input) Values() [NumValues]float32 {
	return in.values
}

func (in *Input) Features() []Feature {
	return in.features
}

func extract(car *model.CarHandle) ([NumValues]float32, error) {
	var ret [NumValues]float32
	if car == nil {
		return ret, fmt.Errorf("%w: no car data", ErrMalformedTelemetry)
	}
	if car.Distance == nil {
		return ret, fmt.Errorf("%w: car %s has no distance readings",
			ErrMalformedTelemetry, car.ID)
	}
	if missing := car.Distance.Missing(); len(missing) > 0 {
		return ret, fmt.Errorf("%w: car %s is missing distance %s",
			ErrMalformedTelemetry, car.ID, missing[0])
	}
	d, _ := car.Distance.Readings()
	ret[0] = car.Velocity
	for i, v := range d {
		ret[i+1] = float32(v)
	}
	return ret, nil
}

func outputNames() []string {
	return []string{OutputLabel, OutputProbability}
}
