package model

import "fmt"

// DrivingCommand uses the step command values of the simulation service
type DrivingCommand int

const (
	CmdIdle            DrivingCommand = 0
	CmdAccelerate      DrivingCommand = 1
	CmdDecelerate      DrivingCommand = 2
	CmdAccelerateLeft  DrivingCommand = 3
	CmdAccelerateRight DrivingCommand = 4
	CmdTurnLeft        DrivingCommand = 5
	CmdTurnRight       DrivingCommand = 6
)

var commandNames = map[DrivingCommand]string{
	CmdIdle:            "idle",
	CmdAccelerate:      "accelerate",
	CmdDecelerate:      "decelerate",
	CmdAccelerateLeft:  "accelerate-left",
	CmdAccelerateRight: "accelerate-right",
	CmdTurnLeft:        "turn-left",
	CmdTurnRight:       "turn-right",
}

func (c DrivingCommand) Valid() bool {
	_, ok := commandNames[c]
	return ok
}

func (c DrivingCommand) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("command(%d)", int(c))
}
