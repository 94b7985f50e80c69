package schema

import "github.com/mpapenbr/owlracer-agent-go/pkg/model"

var namedColumns = []string{
	"Velocity",
	"Distance_Front",
	"Distance_FrontLeft",
	"Distance_FrontRight",
	"Distance_Left",
	"Distance_Right",
}

// named feeds each value as its own [1,1] column. Velocity is a float,
// distances are integers.
type named struct{}

func (named) Version() Version      { return VersionNamed }
func (named) OutputNames() []string { return outputNames() }
func (named) ResolvesLabels() bool  { return false }

func (named) InputNames() []string {
	ret := make([]string, len(namedColumns))
	copy(ret, namedColumns)
	return ret
}

func (named) Adapt(car *model.CarHandle) (*Input, error) {
	values, err := extract(car)
	if err != nil {
		return nil, err
	}
	ints, _ := car.Distance.Readings()

	features := make([]Feature, 0, NumValues)
	features = append(features, Feature{
		Name:    namedColumns[0],
		Type:    Float32,
		Shape:   []int64{1, 1},
		Float32: []float32{car.Velocity},
	})
	for i, v := range ints {
		features = append(features, Feature{
			Name:  namedColumns[i+1],
			Type:  Int64,
			Shape: []int64{1, 1},
			Int64: []int64{v},
		})
	}
	return &Input{values: values, features: features}, nil
}
