package sim

import (
	json "github.com/goccy/go-json"
)

// JSONCodec encodes the plain Go message types of this package.
// It replaces the protobuf based json codec of connect.
type JSONCodec struct{}

func (JSONCodec) Name() string {
	return "json"
}

func (JSONCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}
