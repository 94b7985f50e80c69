package run

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/owlracer-agent-go/pkg/agent"
	"github.com/mpapenbr/owlracer-agent-go/pkg/classifier"
	"github.com/mpapenbr/owlracer-agent-go/pkg/config"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim"
	"github.com/mpapenbr/owlracer-agent-go/pkg/sim/mock"
)

// failingDeps fails the test if anything outside the process is touched
func failingDeps(t *testing.T) *deps {
	t.Helper()
	return &deps{
		newService: func(*config.Config) sim.Service {
			t.Error("service must not be created")
			return nil
		},
		//nolint:whitespace // editor/linter issue
		newClassifier: func(*config.Config, schema.Adapter) (
			classifier.Port, func(), error,
		) {
			t.Error("classifier must not be created")
			return nil, nil, errors.New("unexpected")
		},
		waitForTCP: func(context.Context, string, time.Duration) error {
			t.Error("no network call expected")
			return nil
		},
	}
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRunAgent_MissingModel(t *testing.T) {
	err := runAgent(context.Background(), config.DefaultOptions(), failingDeps(t))
	require.ErrorIs(t, err, agent.ErrConfig)
	assert.Equal(t, exitConfig, ExitCode(err))
}

func TestRunAgent_BrokenLabelMap(t *testing.T) {
	dir := t.TempDir()
	opts := config.DefaultOptions()
	opts.ModelPath = writeFile(t, filepath.Join(dir, "model.onnx"), "x")
	opts.SchemaVersion = "1"
	writeFile(t, filepath.Join(dir, "labelmap.yaml"), "- not a mapping")

	err := runAgent(context.Background(), opts, failingDeps(t))
	require.ErrorIs(t, err, agent.ErrConfig)
}

func TestRunAgent_ModelLoadError(t *testing.T) {
	dir := t.TempDir()
	opts := config.DefaultOptions()
	opts.ModelPath = writeFile(t, filepath.Join(dir, "model.onnx"), "x")
	d := failingDeps(t)
	//nolint:whitespace // editor/linter issue
	d.newClassifier = func(cfg *config.Config, _ schema.Adapter) (
		classifier.Port, func(), error,
	) {
		return nil, nil, &classifier.ModelLoadError{Path: cfg.ModelPath, Err: errors.New("bad")}
	}

	err := runAgent(context.Background(), opts, d)
	require.ErrorIs(t, err, agent.ErrModelLoad)
	assert.Equal(t, exitModelLoad, ExitCode(err))
}

func TestRunAgent_Mock(t *testing.T) {
	dir := t.TempDir()
	opts := config.DefaultOptions()
	opts.ModelPath = writeFile(t, filepath.Join(dir, "model.onnx"), "x")
	opts.SchemaVersion = "1"
	opts.MaxSteps = 5
	writeFile(t, filepath.Join(dir, "labelmap.yaml"), "g1:\n  0: 1\n  1: 2\n")

	srv := mock.NewServer()
	closed := false
	d := &deps{
		newService: func(*config.Config) sim.Service { return srv },
		//nolint:whitespace // editor/linter issue
		newClassifier: func(*config.Config, schema.Adapter) (
			classifier.Port, func(), error,
		) {
			port := classifier.PortFunc(
				func(context.Context, *schema.Input) (*classifier.Prediction, error) {
					return &classifier.Prediction{Label: 0}, nil
				})
			return port, func() { closed = true }, nil
		},
		waitForTCP: func(context.Context, string, time.Duration) error { return nil },
	}

	require.NoError(t, runAgent(context.Background(), opts, d))
	assert.Zero(t, srv.NumCars(), "car is destroyed")
	assert.True(t, closed)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, exitConfig, ExitCode(&config.ConfigError{Option: "x", Err: errors.New("y")}))
	assert.Equal(t, exitModelLoad, ExitCode(&classifier.ModelLoadError{Err: errors.New("y")}))
	assert.Equal(t, exitFailure, ExitCode(&sim.TransportError{Err: errors.New("y")}))
}

func TestNewRunCmd_CamelCaseAliases(t *testing.T) {
	cmd := NewRunCmd()
	require.NoError(t, cmd.Flags().Parse([]string{
		"--carName", "owl", "--carColor", "#00ff00", "--car-name", "owl2",
	}))
	assert.Equal(t, "owl2", cmd.Flags().Lookup("car-name").Value.String())
	assert.Equal(t, "#00ff00", cmd.Flags().Lookup("carColor").Value.String())
	assert.Equal(t, "#00ff00", cmd.Flags().Lookup("car-color").Value.String())
}
