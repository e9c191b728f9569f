// Package notify publishes reservation lifecycle events to RabbitMQ for
// downstream consumers (mail, analytics, audit). Publishing is best
// effort: errors are logged and returned so callers can ignore failures
// without interrupting the reservation flow — the event log, not these
// queues, is the system of record.
package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/theater-seat-reservation/internal/model"
)

const (
	confirmedQueue = "reservation.confirmed"
	cancelledQueue = "reservation.cancelled"
)

// ReservationEvent is the payload placed on the notification queues. It
// carries enough for downstream consumers to act without querying the
// reservation store.
type ReservationEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	PlayID        int64  `json:"play_id"`
	SeatNumber    int64  `json:"seat_number"`
	UserID        int64  `json:"user_id"`
	ReservedAt    string `json:"reserved_at"`
	OccurredAt    string `json:"occurred_at"`
}

// Publisher publishes reservation events over AMQP. A zero URL disables
// publishing entirely, which keeps the broker optional in development.
type Publisher struct {
	url string
}

// NewPublisher returns a Publisher for the given AMQP URL. An empty URL
// yields a disabled publisher whose methods are no-ops.
func NewPublisher(url string) *Publisher {
	return &Publisher{url: url}
}

// ReservationConfirmed publishes the reservation to the
// reservation.confirmed queue.
func (p *Publisher) ReservationConfirmed(ctx context.Context, res model.Reservation) error {
	return p.publish(ctx, confirmedQueue, res)
}

// ReservationCancelled publishes the reservation to the
// reservation.cancelled queue.
func (p *Publisher) ReservationCancelled(ctx context.Context, res model.Reservation) error {
	return p.publish(ctx, cancelledQueue, res)
}

// publish declares the durable queue (idempotent) and publishes one
// persistent JSON message to it. The connection is scoped to the call and
// always closed; any error is logged and returned.
func (p *Publisher) publish(ctx context.Context, queue string, res model.Reservation) error {
	if p.url == "" {
		return nil
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("notify: dial failed: %v", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("notify: channel open failed: %v", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		log.Printf("notify: queue declare failed: %v", err)
		return err
	}

	event := ReservationEvent{
		ReservationID: res.ID,
		PlayID:        res.PlayID,
		SeatNumber:    res.SeatNumber,
		UserID:        res.UserID,
		ReservedAt:    res.ReservedAt.UTC().Format(time.RFC3339),
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("notify: marshal event failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		pub,
	); err != nil {
		log.Printf("notify: publish to %s failed: %v", queue, err)
		return err
	}
	return nil
}
