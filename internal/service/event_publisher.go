// Package service provides the RabbitMQ publisher for reservation events.
// Publishing is best effort: failures are logged and returned so callers can
// ignore them without failing the request that caused the event.
package service

import (
    "context"
    "encoding/json"
    "sync"
    "time"

    "github.com/google/uuid"
    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/restaurant-reservation/internal/queue"
)

// EventPublisher keeps one AMQP connection and channel open and re-dials
// lazily after either is closed.
type EventPublisher struct {
    url         string
    dialTimeout time.Duration

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

// NewEventPublisher returns a publisher for the broker at url.  No
// connection is made until the first Publish.
func NewEventPublisher(url string) *EventPublisher {
    return &EventPublisher{url: url, dialTimeout: dialTimeout}
}

// dialTimeout bounds the TCP dial and AMQP handshake.  Publish holds the
// mutex while dialing, so every concurrent publisher waits at most this
// long on an unreachable broker.
const dialTimeout = 2 * time.Second

func (p *EventPublisher) channel() (*amqp.Channel, error) {
    if p.ch != nil && !p.ch.IsClosed() {
        return p.ch, nil
    }
    if p.conn == nil || p.conn.IsClosed() {
        conn, err := amqp.DialConfig(p.url, amqp.Config{
            Heartbeat: 10 * time.Second,
            Locale:    "en_US",
            Dial:      amqp.DefaultDial(p.dialTimeout),
        })
        if err != nil {
            return nil, err
        }
        p.conn = conn
    }
    ch, err := p.conn.Channel()
    if err != nil {
        return nil, err
    }
    // Durable so queued events survive broker restarts.
    if _, err := ch.QueueDeclare(queue.ReservationsQueue, true, false, false, false, nil); err != nil {
        _ = ch.Close()
        return nil, err
    }
    p.ch = ch
    return ch, nil
}

// Publish sends ev to the reservations queue as a persistent message.  An
// empty event id or timestamp is filled in.
func (p *EventPublisher) Publish(ctx context.Context, ev queue.ReservationEvent) error {
    if ev.ID == "" {
        ev.ID = uuid.NewString()
    }
    if ev.OccurredAt.IsZero() {
        ev.OccurredAt = time.Now().UTC()
    }
    body, err := json.Marshal(ev)
    if err != nil {
        return err
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    ch, err := p.channel()
    if err != nil {
        logrus.WithError(err).Warn("rabbitmq: channel unavailable")
        return err
    }
    err = ch.PublishWithContext(ctx,
        "",                      // default exchange
        queue.ReservationsQueue, // routing key = queue name
        false,                   // mandatory
        false,                   // immediate
        amqp.Publishing{
            ContentType:  "application/json",
            DeliveryMode: amqp.Persistent,
            MessageId:    ev.ID,
            Type:         ev.Type,
            Timestamp:    ev.OccurredAt,
            Body:         body,
        })
    if err != nil {
        logrus.WithError(err).WithField("type", ev.Type).Warn("rabbitmq: publish failed")
    }
    return err
}

// Close releases the channel and connection.
func (p *EventPublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    if p.ch != nil {
        _ = p.ch.Close()
        p.ch = nil
    }
    if p.conn != nil {
        err := p.conn.Close()
        p.conn = nil
        return err
    }
    return nil
}

// Discard is a publisher that drops every event.  It is used when events
// are disabled.
type Discard struct{}

// Publish implements the publisher contract and does nothing.
func (Discard) Publish(context.Context, queue.ReservationEvent) error { return nil }
