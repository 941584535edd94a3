package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// AlertMessage is one classification task: the alert to score and its
// owning configuration.
type AlertMessage struct {
	AlertID         int64
	ConfigurationID int64
	Attempt         int
	TraceID         string
}

type Producer interface {
	Enqueue(ctx context.Context, msg AlertMessage) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
}

func NewRedisProducer(client *redis.Client, stream string) Producer {
	return &redisProducer{client: client, stream: stream}
}

func (p *redisProducer) Enqueue(ctx context.Context, msg AlertMessage) error {
	attempt := msg.Attempt
	if attempt <= 0 {
		attempt = 1
	}

	fields := map[string]any{
		"alert_id":         msg.AlertID,
		"configuration_id": msg.ConfigurationID,
		"attempt":          attempt,
	}
	if msg.TraceID != "" {
		fields["trace_id"] = msg.TraceID
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("enqueue alert: %w", err)
	}

	slog.InfoContext(ctx, "enqueued alert for classification",
		"alert_id", msg.AlertID,
		"configuration_id", msg.ConfigurationID,
		"attempt", attempt)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
