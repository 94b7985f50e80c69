package recorder

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/agent"
	"github.com/mpapenbr/owlracer-agent-go/pkg/codec"
	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
)

type message struct {
	subject string
	data    []byte
}

type capture struct {
	msgs []message
	err  error
}

func (c *capture) Publish(subject string, data []byte) error {
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, message{subject, data})
	return nil
}

func TestRecorder_ObserveStep(t *testing.T) {
	pub := &capture{}
	r := New(pub, WithModelDigest("abc"))
	rec := &agent.StepRecord{
		SessionID:         uuid.New(),
		CarID:             uuid.New(),
		Iteration:         7,
		Time:              time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Values:            [6]float32{0.5, 100, 120, 130, 40, 60},
		Label:             3,
		Command:           model.CmdTurnLeft,
		InferenceDuration: 2 * time.Millisecond,
	}
	r.ObserveStep(context.Background(), rec)

	require.Len(t, pub.msgs, 1)
	assert.Equal(t, "owlracer.agent."+rec.CarID.String()+".step", pub.msgs[0].subject)

	var got Record
	require.NoError(t, codec.Unmarshal(pub.msgs[0].data, &got))
	want := Record{
		SessionID:   rec.SessionID,
		CarID:       rec.CarID,
		Iteration:   7,
		Time:        rec.Time,
		Values:      rec.Values,
		Label:       3,
		Command:     int(model.CmdTurnLeft),
		CommandName: model.CmdTurnLeft.String(),
		Inference:   2 * time.Millisecond,
		ModelDigest: "abc",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestRecorder_PublishErrorIsSwallowed(t *testing.T) {
	pub := &capture{err: errors.New("no connection")}
	var buf bytes.Buffer
	r := New(pub, WithLogger(log.New(&buf, log.InfoLevel)))
	assert.NotPanics(t, func() {
		r.ObserveStep(context.Background(), &agent.StepRecord{CarID: uuid.New(), Iteration: 4})
	})
	assert.Empty(t, pub.msgs)
	assert.Contains(t, buf.String(), "could not publish step")
	assert.Contains(t, buf.String(), "no connection")
}
