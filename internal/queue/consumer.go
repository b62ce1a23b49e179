package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/restaurant-reservation/internal/datetime"
)

// StartEventLogConsumer connects to RabbitMQ, declares the reservations
// queue and appends one line per event to logPath.  It reconnects with
// exponential backoff until ctx is cancelled.  Messages that cannot be
// processed are rejected without requeue so a poison message cannot stall
// the loop.
func StartEventLogConsumer(ctx context.Context, url, logPath string) error {
    log := logrus.WithField("component", "event-consumer")
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(url)
        if err != nil {
            log.WithError(err).Warnf("dial failed; retrying in %s", backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, logPath)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.WithError(err).Warn("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, logPath string) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        logrus.WithError(err).Warn("event-consumer: set QoS failed")
    }
    if _, err := ch.QueueDeclare(ReservationsQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.ConsumeWithContext(ctx, ReservationsQueue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for d := range msgs {
        if err := appendEvent(logPath, d.Body); err != nil {
            logrus.WithError(err).Error("event-consumer: handle message failed")
            _ = d.Nack(false, false)
            continue
        }
        _ = d.Ack(false)
    }
    return errors.New("deliveries channel closed")
}

func appendEvent(logPath string, body []byte) error {
    var ev ReservationEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir: %w", err)
    }
    f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    return WriteEventLine(f, ev)
}

// WriteEventLine renders ev as a single human readable line.
func WriteEventLine(w io.Writer, ev ReservationEvent) error {
    line := fmt.Sprintf("[%s] %s | reservation_id=%d | status=%s",
        ev.OccurredAt.UTC().Format(time.RFC3339), ev.Type, ev.ReservationID, ev.Status)
    if ev.ReservationDate != "" {
        line += fmt.Sprintf(" | guest=\"%s %s\" | phone=%s | party=%d | when=%s %s",
            ev.FirstName, ev.LastName, datetime.FormatPhone(ev.MobileNumber), ev.People,
            ev.ReservationDate, ev.ReservationTime)
    }
    if ev.TableID != 0 {
        line += fmt.Sprintf(" | table_id=%d", ev.TableID)
    }
    _, err := io.WriteString(w, line+"\n")
    return err
}
