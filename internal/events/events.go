// Package events announces newly created document versions on a message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// VersionCreatedRoutingKey is the routing key of VersionCreated messages.
	VersionCreatedRoutingKey = "document.version.created"
)

// VersionCreated is published once a version's history record is durable.
type VersionCreated struct {
	DocumentID        string    `json:"documentId"`
	EditNumber        int       `json:"editNumber"`
	BlobKey           string    `json:"blobKey"`
	EditedBy          string    `json:"editedBy"`
	EditedAt          time.Time `json:"editedAt"`
	ChangeDescription string    `json:"changeDescription"`
}

// Publisher delivers version events. Implementations must be safe for concurrent use.
type Publisher interface {
	PublishVersionCreated(ctx context.Context, ev VersionCreated) error
}

// Noop drops every event.
type Noop struct{}

func (Noop) PublishVersionCreated(context.Context, VersionCreated) error { return nil }

// channel is the subset of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQP publishes to a durable topic exchange.
type AMQP struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

var _ Publisher = (*AMQP)(nil)

// DialAMQP connects to url and declares exchange.
func DialAMQP(url, exchange string) (*AMQP, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	p, err := newAMQP(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newAMQP(ch channel, exchange string) (*AMQP, error) {
	err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return &AMQP{ch: ch, exchange: exchange}, nil
}

// PublishVersionCreated sends ev as a persistent JSON message.
func (p *AMQP) PublishVersionCreated(ctx context.Context, ev VersionCreated) error {
	msg, err := versionMessage(ev)
	if err != nil {
		return err
	}
	if err := p.ch.PublishWithContext(ctx, p.exchange, VersionCreatedRoutingKey, false, false, msg); err != nil {
		return fmt.Errorf("publish %s/%d: %w", ev.DocumentID, ev.EditNumber, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *AMQP) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func versionMessage(ev VersionCreated) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    fmt.Sprintf("%s:%d", ev.DocumentID, ev.EditNumber),
		Timestamp:    ev.EditedAt,
		Type:         VersionCreatedRoutingKey,
	}, nil
}
