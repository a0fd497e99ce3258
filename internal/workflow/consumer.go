package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/valkey-io/valkey-go"
)

// Consumer reads workflow executions from the Valkey stream. Same delivery
// contract as the arrival consumers: ACK on success, pending on failure.
type Consumer struct {
	client     valkey.Client
	consumerID string
	logger     *slog.Logger
}

func NewConsumer(client valkey.Client, consumerID string, logger *slog.Logger) *Consumer {
	return &Consumer{client: client, consumerID: consumerID, logger: logger}
}

// EnsureGroup creates the consumer group if it doesn't exist.
func (c *Consumer) EnsureGroup(ctx context.Context) error {
	resp := c.client.Do(ctx, c.client.B().XgroupCreate().
		Key(ExecutionStream).Group(ExecutionGroup).Id("0").Mkstream().Build())
	if err := resp.Error(); err != nil {
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("xgroup create: %w", err)
		}
	}
	return nil
}

// Consume blocks reading executions, processing each via handler.
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, Execution) error) error {
	c.drainPending(ctx, handler)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp := c.client.Do(ctx, c.client.B().Xreadgroup().
			Group(ExecutionGroup, c.consumerID).
			Count(1).Block(5000).
			Streams().Key(ExecutionStream).Id(">").
			Build())

		if err := resp.Error(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		results, err := resp.AsXRead()
		if err != nil {
			continue
		}

		for _, messages := range results {
			for _, msg := range messages {
				c.process(ctx, msg, handler)
			}
		}
	}
}

func (c *Consumer) drainPending(ctx context.Context, handler func(context.Context, Execution) error) {
	resp := c.client.Do(ctx, c.client.B().Xreadgroup().
		Group(ExecutionGroup, c.consumerID).
		Count(10).
		Streams().Key(ExecutionStream).Id("0").
		Build())

	if err := resp.Error(); err != nil {
		c.logger.Warn("drain pending executions failed", slog.String("error", err.Error()))
		return
	}

	results, err := resp.AsXRead()
	if err != nil {
		return
	}

	for _, messages := range results {
		for _, msg := range messages {
			c.logger.Info("recovering pending execution", slog.String("id", msg.ID))
			c.process(ctx, msg, handler)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg valkey.XRangeEntry, handler func(context.Context, Execution) error) {
	dataStr, ok := msg.FieldValues["data"]
	if !ok {
		c.logger.Warn("execution missing data field", slog.String("id", msg.ID))
		c.ack(ctx, msg.ID)
		return
	}

	var exec Execution
	if err := json.Unmarshal([]byte(dataStr), &exec); err != nil {
		c.logger.Error("unmarshal execution", slog.String("error", err.Error()), slog.String("id", msg.ID))
		c.ack(ctx, msg.ID)
		return
	}

	if err := handler(ctx, exec); err != nil {
		c.logger.Error("handle execution", slog.String("error", err.Error()),
			slog.String("id", msg.ID),
			slog.String("document_id", exec.DocumentID))
	} else {
		c.ack(ctx, msg.ID)
	}
}

func (c *Consumer) ack(ctx context.Context, msgID string) {
	resp := c.client.Do(ctx, c.client.B().Xack().
		Key(ExecutionStream).Group(ExecutionGroup).Id(msgID).Build())
	if err := resp.Error(); err != nil {
		c.logger.Error("xack execution failed", slog.String("error", err.Error()), slog.String("id", msgID))
	}
}
