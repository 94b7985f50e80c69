package model

import (
	"github.com/google/uuid"
)

type SessionPhase int

const (
	PhaseUnspecified SessionPhase = 0
	PhasePrerace     SessionPhase = 1
	PhaseRacing      SessionPhase = 2
	PhasePause       SessionPhase = 3
	PhasePostrace    SessionPhase = 4
)

func (p SessionPhase) String() string {
	switch p {
	case PhasePrerace:
		return "prerace"
	case PhaseRacing:
		return "racing"
	case PhasePause:
		return "pause"
	case PhasePostrace:
		return "postrace"
	case PhaseUnspecified:
		return "unspecified"
	}
	return "unknown"
}

// Waiting reports whether a car must not be driven yet in this phase
func (p SessionPhase) Waiting() bool {
	return p == PhasePrerace || p == PhasePause
}

type SessionHandle struct {
	ID    uuid.UUID    `json:"id"`
	Name  string       `json:"name,omitempty"`
	Phase SessionPhase `json:"phase"`
}
