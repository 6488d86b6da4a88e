package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/logger"
)

// Deliverer hands a decoded event to the SMS provider.
type Deliverer interface {
	Deliver(ctx context.Context, ev SMSRequested) error
}

// LogDeliverer stands in for a real SMS gateway and records each request
// with a masked phone number. The code itself is never logged.
type LogDeliverer struct {
	Log *zap.SugaredLogger
}

func (d LogDeliverer) Deliver(_ context.Context, ev SMSRequested) error {
	d.Log.Infow("sms delivery requested",
		"phone", logger.MaskPhone(ev.Phone),
		"purpose", ev.Purpose,
		"requested_at", ev.RequestedAt,
	)
	return nil
}

const maxBackoff = 30 * time.Second

// StartSMSConsumer connects to the broker, declares the queue and hands
// every message to d. It reconnects with exponential backoff and returns
// only when ctx is cancelled.
func StartSMSConsumer(ctx context.Context, url, queue string, d Deliverer, log *zap.SugaredLogger) error {
	if queue == "" {
		queue = DefaultSMSQueue
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warnw("sms consumer: dial failed", "error", err, "retry_in", backoff.String())
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < maxBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, d, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warnw("sms consumer: loop ended, reconnecting", "error", err)
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

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, d Deliverer, log *zap.SugaredLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warnw("sms consumer: set QoS failed", "error", err)
	}
	if err := declare(ch, queue); err != nil {
		return err
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := Handle(ctx, m.Body, d); err != nil {
				log.Errorw("sms consumer: handle message failed", "error", err)
				// reject without requeue to avoid a tight redelivery loop
				_ = m.Nack(false, false)
				continue
			}
			_ = m.Ack(false)
		}
	}
}

// Handle decodes one message body and delivers it.
func Handle(ctx context.Context, body []byte, d Deliverer) error {
	ev, err := Decode(body)
	if err != nil {
		return err
	}
	return d.Deliver(ctx, ev)
}
