package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/postarhq/postar/infra"
	"github.com/postarhq/postar/infra/produce"
)

// CleanupConsumer drains the storage cleanup queue and deletes the orphaned
// blobs the API flagged. The work is idempotent: already-gone objects count
// as success.
type CleanupConsumer struct {
	channel *amqp.Channel
	infra   *infra.Infra
}

func NewCleanupConsumer(channel *amqp.Channel, infra *infra.Infra) *CleanupConsumer {
	return &CleanupConsumer{
		channel: channel,
		infra:   infra,
	}
}

func (c *CleanupConsumer) Start(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		produce.StorageCleanupQueue,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register cleanup consumer: %w", err)
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Cleanup Consumer] Started listening on queue: %s", produce.StorageCleanupQueue)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.infra.Logger.InfoWithContextf(ctx, "[Cleanup Consumer] Shutting down...")
				return
			case msg, ok := <-msgs:
				if !ok {
					c.infra.Logger.WarningWithContextf(ctx, "[Cleanup Consumer] Channel closed")
					return
				}
				c.handleCleanup(ctx, msg)
			}
		}
	}()

	return nil
}

func (c *CleanupConsumer) handleCleanup(ctx context.Context, msg amqp.Delivery) {
	var payload produce.CleanupMessage
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.infra.Logger.ErrorWithContextf(ctx, err, "[Cleanup Consumer] Failed to unmarshal message: %v", err)
		_ = msg.Nack(false, false)
		return
	}

	c.infra.Logger.InfoWithContextf(ctx, "[Cleanup Consumer] Cleaning project %s (%s): %d path(s), prefix %q",
		payload.ProjectID, payload.Reason, len(payload.Paths), payload.Prefix)

	maxRetries := 3
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = c.executeCleanup(ctx, payload)
		if err == nil {
			_ = msg.Ack(false)
			return
		}

		c.infra.Logger.ErrorWithContextf(ctx, err, "[Cleanup Consumer] Attempt %d/%d failed: %v", attempt, maxRetries, err)
		if attempt < maxRetries {
			time.Sleep(time.Duration(attempt) * 2 * time.Second)
		}
	}

	c.infra.Logger.ErrorWithContextf(ctx, err, "[Cleanup Consumer] Failed after %d attempts, requeueing message", maxRetries)
	_ = msg.Nack(false, true)
}

func (c *CleanupConsumer) executeCleanup(ctx context.Context, payload produce.CleanupMessage) error {
	for _, path := range payload.Paths {
		if err := c.infra.Minio.DeleteByPath(ctx, path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
	}
	if payload.Prefix != "" {
		if err := c.infra.Minio.DeleteByPrefix(ctx, payload.Prefix); err != nil {
			return fmt.Errorf("failed to delete prefix %s: %w", payload.Prefix, err)
		}
	}
	return nil
}
