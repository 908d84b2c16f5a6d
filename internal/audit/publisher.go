package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/hackgods/carehome-allocation/internal/care"
)

const DefaultQueue = "carehome.audit"

const publishTimeout = 3 * time.Second

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Publisher sends entries as persistent JSON messages to a durable queue.
type Publisher struct {
	mu    sync.Mutex // amqp channels are not safe for concurrent publishing
	ch    channel
	queue string
	log   *zap.Logger

	closeFn func() error
}

// DialPublisher connects to the broker and declares the queue.
func DialPublisher(url, queue string, log *zap.Logger) (*Publisher, error) {
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	p := newPublisher(ch, queue, log)
	p.closeFn = func() error {
		_ = ch.Close()
		return conn.Close()
	}
	return p, nil
}

func newPublisher(ch channel, queue string, log *zap.Logger) *Publisher {
	return &Publisher{ch: ch, queue: queue, log: log}
}

func (p *Publisher) Record(ctx context.Context, actorID string, action care.Action, targetID, detail string) {
	if err := p.Publish(ctx, NewEntry(actorID, action, targetID, detail)); err != nil {
		p.log.Error("publish audit entry",
			zap.String("action", string(action)),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
	}
}

func (p *Publisher) Publish(ctx context.Context, e Entry) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit entry: %w", err)
	}

	// the request context may end right after the mutation commits
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(pubCtx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.RecordedAt,
			Type:         string(e.Action),
			Body:         body,
		},
	)
}

func (p *Publisher) Close() error {
	if p.closeFn == nil {
		return nil
	}
	return p.closeFn()
}
