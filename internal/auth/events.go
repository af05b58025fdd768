package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

// TopicAuthExpired carries the process-wide "authentication expired" signal.
// The CLI shell subscribes to it and forces a logout prompt when it fires.
const TopicAuthExpired = "auth.expired"

// ExpiredEvent is the payload published when a refresh fails or no refresh
// token is available.
type ExpiredEvent struct {
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

// ExpiryBus broadcasts authentication expiry inside the process.
type ExpiryBus interface {
	PublishExpired(ctx context.Context, reason string) error
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
	Close() error
}

// channelExpiryBus implements ExpiryBus over Watermill's in-process gochannel
// Pub/Sub. A desktop client has no broker; one buffered channel is enough.
type channelExpiryBus struct {
	pubSub *gochannel.GoChannel
	logger *slog.Logger
}

// NewExpiryBus creates an in-process expiry bus.
func NewExpiryBus(logger *slog.Logger) ExpiryBus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 8},
		watermill.NewSlogLogger(logger),
	)
	return &channelExpiryBus{
		pubSub: pubSub,
		logger: logger,
	}
}

func (b *channelExpiryBus) PublishExpired(ctx context.Context, reason string) error {
	event := ExpiredEvent{
		Reason:    reason,
		Timestamp: time.Now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal expiry event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("reason", reason)

	if err := b.pubSub.Publish(TopicAuthExpired, msg); err != nil {
		b.logger.Error("Failed to publish auth expiry event", "error", err)
		return fmt.Errorf("failed to publish auth expiry event: %w", err)
	}

	b.logger.Info("Published auth expiry event", "reason", reason)
	return nil
}

func (b *channelExpiryBus) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return b.pubSub.Subscribe(ctx, TopicAuthExpired)
}

func (b *channelExpiryBus) Close() error {
	return b.pubSub.Close()
}

// DecodeExpiredEvent parses an expiry message payload.
func DecodeExpiredEvent(msg *message.Message) (*ExpiredEvent, error) {
	var event ExpiredEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("failed to decode expiry event: %w", err)
	}
	return &event, nil
}
