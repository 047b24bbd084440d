package produce

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	StorageCleanupQueue      = "storage.cleanup"
	StorageCleanupExchange   = "storage.exchange"
	StorageCleanupRoutingKey = "storage.cleanup"
)

// CleanupMessage asks the consumer to remove blobs that a failed or partial
// mutation left behind. Paths are deleted individually; Prefix, when set,
// removes everything under it.
type CleanupMessage struct {
	ProjectID string   `json:"project_id"`
	Paths     []string `json:"paths,omitempty"`
	Prefix    string   `json:"prefix,omitempty"`
	Reason    string   `json:"reason"`
	Timestamp int64    `json:"timestamp"`
}

// CleanupService publishes compensating blob deletions.
type CleanupService struct {
	channel *amqp.Channel
}

func InitCleanupService(channel *amqp.Channel) *CleanupService {
	err := channel.ExchangeDeclare(
		StorageCleanupExchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Storage exchange: " + err.Error())
	}

	_, err = channel.QueueDeclare(
		StorageCleanupQueue,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		panic("Failed to declare Storage Cleanup queue: " + err.Error())
	}

	err = channel.QueueBind(
		StorageCleanupQueue,
		StorageCleanupRoutingKey,
		StorageCleanupExchange,
		false,
		nil,
	)
	if err != nil {
		panic("Failed to bind Storage Cleanup queue: " + err.Error())
	}

	return &CleanupService{
		channel: channel,
	}
}

// PublishBlobCleanup queues individual blob paths for deletion.
func (s *CleanupService) PublishBlobCleanup(ctx context.Context, projectID uuid.UUID, paths []string, reason string) error {
	return s.publish(ctx, CleanupMessage{
		ProjectID: projectID.String(),
		Paths:     paths,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	})
}

// PublishPrefixCleanup queues every blob under a prefix for deletion, used
// when an entire project's storage folder must go.
func (s *CleanupService) PublishPrefixCleanup(ctx context.Context, projectID uuid.UUID, prefix, reason string) error {
	return s.publish(ctx, CleanupMessage{
		ProjectID: projectID.String(),
		Prefix:    prefix,
		Reason:    reason,
		Timestamp: time.Now().Unix(),
	})
}

func (s *CleanupService) publish(ctx context.Context, message CleanupMessage) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal cleanup message: %w", err)
	}

	err = s.channel.PublishWithContext(
		ctx,
		StorageCleanupExchange,
		StorageCleanupRoutingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish cleanup message: %w", err)
	}

	return nil
}
