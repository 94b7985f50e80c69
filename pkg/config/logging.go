package config

import (
	"github.com/mpapenbr/owlracer-agent-go/log"
)

// raw logging values from CLI, shared by all commands
var (
	LogLevel  string // sets the log level (zap log level values)
	LogFormat string // text vs json
	LogFilter string // zapfilter rules, example: "*:agent -*:sim.client"
	LogFile   string // if set, log entries are additionally written to this file
)

// SetupLogger creates the logger from the log options and installs it as
// default logger.
func SetupLogger() (*log.Logger, error) {
	opts := []log.Option{log.WithCaller(true), log.AddCallerSkip(1)}
	if LogFilter != "" {
		filter, err := log.WithFilter(LogFilter)
		if err != nil {
			return nil, &ConfigError{Option: "log-filter", Err: err}
		}
		opts = append(opts, filter)
	}
	out := log.Output(LogFile)

	var logger *log.Logger
	switch LogFormat {
	case "json":
		logger = log.New(out, parseLogLevel(LogLevel, log.InfoLevel), opts...)
	default:
		logger = log.DevLogger(out, parseLogLevel(LogLevel, log.DebugLevel), opts...)
	}
	log.ResetDefault(logger)
	return logger, nil
}

func parseLogLevel(l string, defaultVal log.Level) log.Level {
	level, err := log.ParseLevel(l)
	if err != nil {
		return defaultVal
	}
	return level
}
