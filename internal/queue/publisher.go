package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/logger"
)

// Publisher sends SMSRequested events to a durable queue. Each call dials
// its own connection; code requests are rare enough that pooling buys
// nothing, and a broker outage costs only the affected request.
type Publisher struct {
	URL   string
	Queue string
	log   *zap.SugaredLogger
	now   func() time.Time
}

// NewPublisher returns a Publisher for queue on the broker at url. An empty
// queue name selects DefaultSMSQueue. No connection is opened until the
// first SendCode.
func NewPublisher(url, queue string, log *zap.SugaredLogger) *Publisher {
	if queue == "" {
		queue = DefaultSMSQueue
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Publisher{URL: url, Queue: queue, log: log, now: time.Now}
}

// SendCode publishes the code as a persistent message. Errors are logged
// and returned; the reset flow already treats delivery as fire-and-forget.
func (p *Publisher) SendCode(ctx context.Context, phone, code string) error {
	body, err := Encode(SMSRequested{
		Phone:       phone,
		Code:        code,
		Purpose:     PurposePasswordReset,
		RequestedAt: p.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := p.publish(ctx, body); err != nil {
		p.log.Warnw("sms publish failed", "queue", p.Queue, "phone", logger.MaskPhone(phone), "error", err)
		return err
	}
	return nil
}

func (p *Publisher) publish(ctx context.Context, body []byte) error {
	conn, err := amqp.Dial(p.URL)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch, p.Queue); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", p.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    p.now().UTC(),
		Body:         body,
	})
}

// declare is idempotent; publisher and consumer both call it so either may
// start first.
func declare(ch *amqp.Channel, queue string) error {
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	return nil
}

// Encode marshals an event for the wire.
func Encode(ev SMSRequested) ([]byte, error) {
	b, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("marshal sms event: %w", err)
	}
	return b, nil
}

// Decode is the inverse of Encode and rejects events missing a phone or code.
func Decode(body []byte) (SMSRequested, error) {
	var ev SMSRequested
	if err := json.Unmarshal(body, &ev); err != nil {
		return SMSRequested{}, fmt.Errorf("unmarshal sms event: %w", err)
	}
	if ev.Phone == "" || ev.Code == "" {
		return SMSRequested{}, fmt.Errorf("sms event missing phone or code")
	}
	return ev, nil
}
