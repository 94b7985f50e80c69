package model

import (
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrivingCommand(t *testing.T) {
	tests := []struct {
		cmd   DrivingCommand
		valid bool
		name  string
	}{
		{CmdIdle, true, "idle"},
		{CmdAccelerate, true, "accelerate"},
		{CmdTurnRight, true, "turn-right"},
		{DrivingCommand(7), false, "command(7)"},
		{DrivingCommand(-1), false, "command(-1)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.cmd.Valid())
			assert.Equal(t, tt.name, tt.cmd.String())
		})
	}
}

func TestSessionPhase_Waiting(t *testing.T) {
	waiting := map[SessionPhase]bool{
		PhaseUnspecified: false,
		PhasePrerace:     true,
		PhaseRacing:      false,
		PhasePause:       true,
		PhasePostrace:    false,
	}
	for phase, want := range waiting {
		assert.Equal(t, want, phase.Waiting(), phase.String())
	}
	assert.Equal(t, "unknown", SessionPhase(42).String())
}

func TestDistance_Decode(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		missing []string
		want    [5]int64
	}{
		{
			name:    "complete",
			payload: `{"front":5,"frontLeft":6,"frontRight":7,"left":0,"right":9}`,
			missing: []string{},
			want:    [5]int64{5, 6, 7, 0, 9},
		},
		{
			name:    "partial",
			payload: `{"front":5}`,
			missing: []string{"frontLeft", "frontRight", "left", "right"},
		},
		{
			name:    "empty",
			payload: `{}`,
			missing: []string{"front", "frontLeft", "frontRight", "left", "right"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Distance
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &d))
			assert.Equal(t, tt.missing, d.Missing())
			got, ok := d.Readings()
			assert.Equal(t, len(tt.missing) == 0, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistance_MissingOnNil(t *testing.T) {
	var d *Distance
	assert.Len(t, d.Missing(), 5)
	_, ok := d.Readings()
	assert.False(t, ok)
}

func TestNewDistance(t *testing.T) {
	got, ok := NewDistance(1, 2, 3, 4, 5).Readings()
	require.True(t, ok)
	assert.Equal(t, [5]int64{1, 2, 3, 4, 5}, got)
}
