package queue

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends BookingConfirmedEvent messages, opening a connection per
// publish.
type Publisher struct {
	url string
	log *zap.Logger
	now func() time.Time
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log *zap.Logger) *Publisher {
	return &Publisher{url: url, log: log, now: time.Now}
}

// SendBookingConfirmation enqueues a confirmation for bookingID.  It
// satisfies the booking service's notifier, so a queued publish stands in
// for sending the email inline.
func (p *Publisher) SendBookingConfirmation(ctx context.Context, bookingID string) error {
	return p.PublishBookingConfirmed(ctx, BookingConfirmedEvent{
		BookingID:   bookingID,
		ConfirmedAt: p.now().UTC().Format(time.RFC3339),
	})
}

// PublishBookingConfirmed publishes ev as a persistent message on the
// default exchange routed to BookingConfirmedQueue.
func (p *Publisher) PublishBookingConfirmed(ctx context.Context, ev BookingConfirmedEvent) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Error("rabbitmq dial failed", zap.Error(err))
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Error("rabbitmq channel open failed", zap.Error(err))
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(BookingConfirmedQueue, true, false, false, false, nil); err != nil {
		p.log.Error("rabbitmq queue declare failed", zap.Error(err))
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", BookingConfirmedQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		MessageId:    ev.BookingID,
		Body:         body,
	})
	if err != nil {
		p.log.Error("rabbitmq publish failed", zap.String("booking_id", ev.BookingID), zap.Error(err))
		return err
	}
	return nil
}
