// Package events publishes run events to NATS so other systems can follow
// backups as they happen.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"nathanbeddoewebdev/shots/internal/orchestrator"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "shots.events"

// Message types carried in Message.Type.
const (
	TypeEvent  = "event"
	TypeReport = "report"
)

// Message is the JSON envelope published for every event and for the
// final report of a run.
type Message struct {
	Type   string               `json:"type"`
	Event  *orchestrator.Event  `json:"event,omitempty"`
	Report *orchestrator.Report `json:"report,omitempty"`
}

// conn is the subset of *nats.Conn the publisher uses.
type conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

// Publisher implements orchestrator.Observer on a NATS connection.
// Publish failures are logged and never reach the run.
type Publisher struct {
	nc      conn
	subject string
	log     *zap.Logger
}

// Connect dials url and returns a Publisher for subject.
func Connect(url, subject string, log *zap.Logger) (*Publisher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("shots"),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("events: connect %s: %w", url, err)
	}
	return newPublisher(nc, subject, log), nil
}

func newPublisher(nc conn, subject string, log *zap.Logger) *Publisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{nc: nc, subject: subject, log: log}
}

// Emit publishes one orchestrator event.
func (p *Publisher) Emit(e orchestrator.Event) {
	p.publish(Message{Type: TypeEvent, Event: &e})
}

// PublishReport publishes the final report of a run.
func (p *Publisher) PublishReport(r *orchestrator.Report) {
	if r == nil {
		return
	}
	p.publish(Message{Type: TypeReport, Report: r})
}

func (p *Publisher) publish(m Message) {
	data, err := json.Marshal(m)
	if err != nil {
		p.log.Warn("encode event", zap.String("type", m.Type), zap.Error(err))
		return
	}
	if err := p.nc.Publish(p.subject, data); err != nil {
		p.log.Warn("publish event", zap.String("subject", p.subject), zap.Error(err))
	}
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() {
	if err := p.nc.Drain(); err != nil {
		p.log.Debug("nats drain", zap.Error(err))
	}
	p.nc.Close()
}
