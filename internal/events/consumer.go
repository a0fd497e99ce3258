package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/valkey-io/valkey-go"
)

// Stream names for storage-arrival notifications. Bucket notifications for
// each stage prefix are routed to the matching stream.
const (
	ClusteringArrivalStream = "docketpulse:arrivals:clustering"
	AnalysisArrivalStream   = "docketpulse:arrivals:analysis"
	ArrivalGroup            = "docketpulse-workers"
)

// ArrivalConsumer reads storage-arrival notifications from a Valkey stream.
// A message is ACKed only after its handler returns nil, so a crashed worker
// leaves the message pending for the next drain.
type ArrivalConsumer struct {
	client     valkey.Client
	stream     string
	consumerID string
	logger     *slog.Logger
}

func NewArrivalConsumer(client valkey.Client, stream, consumerID string, logger *slog.Logger) *ArrivalConsumer {
	return &ArrivalConsumer{client: client, stream: stream, consumerID: consumerID, logger: logger}
}

// EnsureGroup creates the consumer group if it doesn't exist.
func (c *ArrivalConsumer) EnsureGroup(ctx context.Context) error {
	resp := c.client.Do(ctx, c.client.B().XgroupCreate().
		Key(c.stream).Group(ArrivalGroup).Id("0").Mkstream().Build())
	if err := resp.Error(); err != nil {
		// BUSYGROUP means group already exists — that's fine
		if err.Error() != "BUSYGROUP Consumer Group name already exists" {
			return fmt.Errorf("xgroup create %s: %w", c.stream, err)
		}
	}
	return nil
}

// Consume blocks until a notification is available, processes it via handler,
// and ACKs. On startup, it first drains any pending messages from a previous
// crash.
func (c *ArrivalConsumer) Consume(ctx context.Context, handler func(context.Context, Notification) error) error {
	c.drainPending(ctx, handler)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp := c.client.Do(ctx, c.client.B().Xreadgroup().
			Group(ArrivalGroup, c.consumerID).
			Count(1).Block(5000).
			Streams().Key(c.stream).Id(">").
			Build())

		if err := resp.Error(); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			// Timeout is normal for BLOCK reads
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

func (c *ArrivalConsumer) drainPending(ctx context.Context, handler func(context.Context, Notification) error) {
	resp := c.client.Do(ctx, c.client.B().Xreadgroup().
		Group(ArrivalGroup, c.consumerID).
		Count(10).
		Streams().Key(c.stream).Id("0").
		Build())

	if err := resp.Error(); err != nil {
		c.logger.Warn("drain pending failed", slog.String("stream", c.stream), slog.String("error", err.Error()))
		return
	}

	results, err := resp.AsXRead()
	if err != nil {
		return
	}

	for _, messages := range results {
		for _, msg := range messages {
			c.logger.Info("recovering pending notification", slog.String("stream", c.stream), slog.String("id", msg.ID))
			c.process(ctx, msg, handler)
		}
	}
}

func (c *ArrivalConsumer) process(ctx context.Context, msg valkey.XRangeEntry, handler func(context.Context, Notification) error) {
	dataStr, ok := msg.FieldValues["data"]
	if !ok {
		c.logger.Warn("notification missing data field", slog.String("id", msg.ID))
		c.ack(ctx, msg.ID)
		return
	}

	var n Notification
	if err := json.Unmarshal([]byte(dataStr), &n); err != nil {
		c.logger.Error("unmarshal notification", slog.String("error", err.Error()), slog.String("id", msg.ID))
		c.ack(ctx, msg.ID)
		return
	}

	if err := handler(ctx, n); err != nil {
		c.logger.Error("handle notification", slog.String("error", err.Error()),
			slog.String("stream", c.stream),
			slog.String("id", msg.ID))
	} else {
		c.ack(ctx, msg.ID)
	}
}

func (c *ArrivalConsumer) ack(ctx context.Context, msgID string) {
	resp := c.client.Do(ctx, c.client.B().Xack().
		Key(c.stream).Group(ArrivalGroup).Id(msgID).Build())
	if err := resp.Error(); err != nil {
		c.logger.Error("xack failed", slog.String("error", err.Error()), slog.String("id", msgID))
	}
}
