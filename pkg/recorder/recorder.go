// Package recorder publishes the steps of the control loop to NATS.
package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/mpapenbr/owlracer-agent-go/log"
	"github.com/mpapenbr/owlracer-agent-go/pkg/agent"
	"github.com/mpapenbr/owlracer-agent-go/pkg/codec"
	"github.com/mpapenbr/owlracer-agent-go/pkg/schema"
)

const subjectPrefix = "owlracer.agent"

type (
	// Record is the published representation of agent.StepRecord
	Record struct {
		SessionID   uuid.UUID                 `cbor:"session"`
		CarID       uuid.UUID                 `cbor:"car"`
		Iteration   uint64                    `cbor:"iteration"`
		Time        time.Time                 `cbor:"time"`
		Values      [schema.NumValues]float32 `cbor:"values"`
		Label       int64                     `cbor:"label"`
		Command     int                       `cbor:"command"`
		CommandName string                    `cbor:"commandName"`
		Inference   time.Duration             `cbor:"inferenceNs"`
		ModelDigest string                    `cbor:"model,omitempty"`
	}

	// Publisher is satisfied by *nats.Conn
	Publisher interface {
		Publish(subject string, data []byte) error
	}

	Recorder struct {
		pub    Publisher
		digest string
		log    *log.Logger
	}
	Option func(*Recorder)
)

var _ agent.StepObserver = (*Recorder)(nil)

// WithModelDigest attaches the fingerprint of the classifier artifact
func WithModelDigest(digest string) Option {
	return func(r *Recorder) {
		r.digest = digest
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Recorder) {
		r.log = l
	}
}

func New(pub Publisher, opts ...Option) *Recorder {
	ret := &Recorder{
		pub: pub,
		log: log.Default().Named("recorder"),
	}
	for _, opt := range opts {
		opt(ret)
	}
	return ret
}

// Connect opens a connection suitable for New
func Connect(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("owlracer-agent"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", log.ErrorField(err))
			}
		}),
	)
}

// Subject returns the subject the steps of carID are published to
func Subject(carID uuid.UUID) string {
	return fmt.Sprintf("%s.%s.step", subjectPrefix, carID)
}

// ObserveStep publishes rec. Failures are logged and do not stop the agent.
func (r *Recorder) ObserveStep(_ context.Context, rec *agent.StepRecord) {
	data, err := codec.Marshal(r.toRecord(rec))
	if err != nil {
		r.log.Warn("could not encode step", log.ErrorField(err))
		return
	}
	if err := r.pub.Publish(Subject(rec.CarID), data); err != nil {
		r.log.Warn("could not publish step",
			log.Uint64("iteration", rec.Iteration),
			log.ErrorField(err))
	}
}

func (r *Recorder) toRecord(rec *agent.StepRecord) *Record {
	return &Record{
		SessionID:   rec.SessionID,
		CarID:       rec.CarID,
		Iteration:   rec.Iteration,
		Time:        rec.Time,
		Values:      rec.Values,
		Label:       rec.Label,
		Command:     int(rec.Command),
		CommandName: rec.Command.String(),
		Inference:   rec.InferenceDuration,
		ModelDigest: r.digest,
	}
}
