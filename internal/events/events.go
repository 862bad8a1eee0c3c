// Package events announces upload outcomes on NATS so other services can
// react to a new statement.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// UploadEvent is the JSON payload published after an upload attempt.
type UploadEvent struct {
	File    string    `json:"file"`
	Size    int64     `json:"size"`
	Outcome string    `json:"outcome"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

// Publisher delivers upload events.
type Publisher interface {
	PublishUpload(ctx context.Context, e UploadEvent) error
	Close()
}

// Nop discards events.
type Nop struct{}

func (Nop) PublishUpload(context.Context, UploadEvent) error { return nil }
func (Nop) Close()                                          {}

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Close()
}

// NATSPublisher publishes events to a single subject.
type NATSPublisher struct {
	conn    Conn
	subject string
}

// Connect dials url and returns a publisher for subject.
func Connect(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("ledgerview"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to NATS: %w", err)
	}
	return NewNATSPublisher(nc, subject), nil
}

// NewNATSPublisher wraps an existing connection.
func NewNATSPublisher(conn Conn, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishUpload marshals e and publishes it. Publishing is fire-and-forget;
// ctx is only checked before sending.
func (p *NATSPublisher) PublishUpload(ctx context.Context, e UploadEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling upload event: %w", err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.subject, err)
	}
	return nil
}

// Close closes the underlying connection.
func (p *NATSPublisher) Close() {
	p.conn.Close()
}
