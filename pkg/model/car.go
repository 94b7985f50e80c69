package model

import (
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Distance holds the distance-to-obstacle readings of a car.
// A nil field means the service did not deliver that reading.
type Distance struct {
	Front      *int64 `json:"front,omitempty"`
	FrontLeft  *int64 `json:"frontLeft,omitempty"`
	FrontRight *int64 `json:"frontRight,omitempty"`
	Left       *int64 `json:"left,omitempty"`
	Right      *int64 `json:"right,omitempty"`
}

// CarHandle is the latest known state of a car as reported by the simulation.
// A nil Distance means the service did not deliver distance readings.
type CarHandle struct {
	ID        uuid.UUID `json:"id"`
	SessionID uuid.UUID `json:"sessionId"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Velocity  float32   `json:"velocity"`
	Distance  *Distance `json:"distance,omitempty"`
}

// NewDistance creates a Distance with all readings present
func NewDistance(front, frontLeft, frontRight, left, right int64) *Distance {
	return &Distance{
		Front:      lo.ToPtr(front),
		FrontLeft:  lo.ToPtr(frontLeft),
		FrontRight: lo.ToPtr(frontRight),
		Left:       lo.ToPtr(left),
		Right:      lo.ToPtr(right),
	}
}

// Missing returns the json names of readings not delivered, in the order
// front, frontLeft, frontRight, left, right.
func (d *Distance) Missing() []string {
	if d == nil {
		return []string{"front", "frontLeft", "frontRight", "left", "right"}
	}
	ret := []string{}
	for _, f := range []struct {
		name string
		v    *int64
	}{
		{"front", d.Front},
		{"frontLeft", d.FrontLeft},
		{"frontRight", d.FrontRight},
		{"left", d.Left},
		{"right", d.Right},
	} {
		if f.v == nil {
			ret = append(ret, f.name)
		}
	}
	return ret
}

// Readings returns the values in the order front, frontLeft, frontRight,
// left, right. Missing readings are reported by ok == false.
func (d *Distance) Readings() (ret [5]int64, ok bool) {
	if len(d.Missing()) > 0 {
		return ret, false
	}
	return [5]int64{*d.Front, *d.FrontLeft, *d.FrontRight, *d.Left, *d.Right}, true
}
