package agent

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/owlracer-agent-go/pkg/labelmap"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
)

func scenarioLabels(t *testing.T) *labelmap.LabelMap {
	t.Helper()
	lm, err := labelmap.Parse([]byte("g1:\n  0: 1\n  1: 2\n"))
	require.NoError(t, err)
	return lm
}

func TestLabelMapResolver_Total(t *testing.T) {
	lm := scenarioLabels(t)
	r := NewLabelMapResolver(lm)
	for label, want := range lm.Entries() {
		got, err := r.Resolve(label)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestLabelMapResolver_Unknown(t *testing.T) {
	r := NewLabelMapResolver(scenarioLabels(t))
	for _, label := range []int64{5, -1, 2} {
		_, err := r.Resolve(label)
		require.ErrorIs(t, err, ErrUnknownLabel)
		var ule *UnknownLabelError
		require.True(t, errors.As(err, &ule))
		assert.Equal(t, label, ule.Label)

		// deterministic
		_, again := r.Resolve(label)
		assert.Equal(t, err, again)
	}
}

func TestDirectResolver(t *testing.T) {
	got, err := DirectResolver{}.Resolve(4)
	require.NoError(t, err)
	assert.Equal(t, model.CmdAccelerateRight, got)

	for _, label := range []int64{7, -1, 1 << 40} {
		_, err = DirectResolver{}.Resolve(label)
		require.ErrorIs(t, err, ErrUnknownLabel)
		assert.Equal(t, &UnknownLabelError{Label: label}, err)
	}
}

func TestResolverFor(t *testing.T) {
	v1, _ := schema.ForVersion(schema.VersionPacked)
	v2, _ := schema.ForVersion(schema.VersionNamed)

	r, err := ResolverFor(v2, nil)
	require.NoError(t, err)
	assert.IsType(t, DirectResolver{}, r)

	_, err = ResolverFor(v1, nil)
	require.Error(t, err)

	r, err = ResolverFor(v1, scenarioLabels(t))
	require.NoError(t, err)
	assert.IsType(t, &LabelMapResolver{}, r)
}
