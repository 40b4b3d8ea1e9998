package publish

import (
	"context"
	"encoding/json"

	"github.com/ayusman/handsignal/internal/logging"
	"github.com/ayusman/handsignal/internal/metrics"
	"github.com/ayusman/handsignal/internal/sample"
)

// Connection is the duplex transport frames are written to.
type Connection interface {
	IsOpen() bool
	SendText(ctx context.Context, payload []byte) error
}

// Subjects names the two logical subjects.
type Subjects struct {
	Joints string
	Label  string
}

// DefaultSubjects are the subjects used by the reference subscriber.
var DefaultSubjects = Subjects{Joints: "hand.jointData", Label: "hand.prediction"}

// Publisher is fire-and-forget: frames that cannot be delivered are logged
// and dropped, never retried or buffered.
type Publisher struct {
	conn     Connection
	subjects Subjects
	log      logging.Logger
	metrics  *metrics.Metrics
}

// NewPublisher creates a Publisher. m may be nil.
func NewPublisher(conn Connection, subjects Subjects, log logging.Logger, m *metrics.Metrics) *Publisher {
	return &Publisher{
		conn:     conn,
		subjects: subjects,
		log:      logging.Component(log, "publish"),
		metrics:  m,
	}
}

// Publish frames payload on subject and sends it. It reports whether the
// frame was handed to the connection.
func (p *Publisher) Publish(ctx context.Context, subject string, payload []byte) bool {
	f := Frame{Subject: subject, Payload: payload}
	if err := f.Validate(); err != nil {
		p.log.WithError(err).Warn("Dropping frame")
		p.metrics.Dropped(subject)
		return false
	}

	if p.conn == nil || !p.conn.IsOpen() {
		p.log.WithField("subject", subject).Warn("Connection not open, cannot send message")
		p.metrics.Dropped(subject)
		return false
	}

	if err := p.conn.SendText(ctx, f.Encode()); err != nil {
		p.log.WithError(err).WithField("subject", subject).Warn("Send failed, dropping frame")
		p.metrics.Dropped(subject)
		return false
	}

	p.log.WithField("subject", subject).WithField("bytes", len(payload)).Debug("Published")
	p.metrics.Published(subject)
	return true
}

// PublishSample sends the joint mapping of s on the joint subject.
func (p *Publisher) PublishSample(ctx context.Context, s sample.Sample) bool {
	payload, err := sample.Payload(s)
	if err != nil {
		p.log.WithError(err).Warn("Encode sample")
		p.metrics.Dropped(p.subjects.Joints)
		return false
	}
	return p.Publish(ctx, p.subjects.Joints, payload)
}

// PublishLabel sends label as a bare JSON string on the label subject.
func (p *Publisher) PublishLabel(ctx context.Context, label string) bool {
	payload, err := json.Marshal(label)
	if err != nil {
		p.log.WithError(err).Warn("Encode label")
		p.metrics.Dropped(p.subjects.Label)
		return false
	}
	return p.Publish(ctx, p.subjects.Label, payload)
}

// Subjects returns the configured subjects.
func (p *Publisher) Subjects() Subjects {
	return p.subjects
}
