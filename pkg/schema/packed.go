package schema

import "github.com/mpapenbr/owlracer-agent-go/pkg/model"

const packedInput = "input"

// packed feeds all values as one [1,6] float vector
type packed struct{}

func (packed) Version() Version      { return VersionPacked }
func (packed) InputNames() []string  { return []string{packedInput} }
func (packed) OutputNames() []string { return outputNames() }
func (packed) ResolvesLabels() bool  { return true }

func (packed) Adapt(car *model.CarHandle) (*Input, error) {
	values, err := extract(car)
	if err != nil {
		return nil, err
	}
	data := make([]float32, NumValues)
	copy(data, values[:])
	return &Input{
		values: values,
		features: []Feature{{
			Name:    packedInput,
			Type:    Float32,
			Shape:   []int64{1, NumValues},
			Float32: data,
		}},
	}, nil
}
