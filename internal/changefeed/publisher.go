package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

type Publisher interface {
	Publish(ctx context.Context, table string, op Op, row any) error
}

type redisPublisher struct {
	client *redis.Client
	logger *slog.Logger
}

func NewPublisher(client *redis.Client, logger *slog.Logger) Publisher {
	return &redisPublisher{client: client, logger: logger}
}

// Publish emits one change event on the table's channel. The row is
// whatever was written, marshalled as-is so subscribers see the same
// shape the HTTP API returns.
func (p *redisPublisher) Publish(ctx context.Context, table string, op Op, row any) error {
	raw, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal change row: %w", err)
	}

	payload, err := json.Marshal(Event{Table: table, Op: op, Row: raw})
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := p.client.Publish(ctx, ChannelFor(table), payload).Err(); err != nil {
		return fmt.Errorf("failed to publish change event: %w", err)
	}

	p.logger.Debug("published change event", "table", table, "op", string(op))
	return nil
}
