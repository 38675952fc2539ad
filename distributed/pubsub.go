package distributed

import (
	"context"
	"encoding/json"
	"fmt"

	daprc "github.com/dapr/go-sdk/client"
	"github.com/rs/zerolog/log"
	"google.golang.org/grpc/status"
)

// eventPublisher is the subset of the Dapr client used for publishing.
type eventPublisher interface {
	PublishEvent(ctx context.Context, pubsubName, topicName string, data interface{}, opts ...daprc.PublishEventOption) error
	Close()
}

// PubSubClient publishes informer messages through the Dapr sidecar.
type PubSubClient struct {
	daprClient  eventPublisher
	pubsubName  string
	topic       string
	statusTopic string
}

// NewPubSubClient creates a new PubSub client connected to the local sidecar.
func NewPubSubClient(pubsubName, topic string) (*PubSubClient, error) {
	daprClient, err := daprc.NewClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create Dapr client: %w", err)
	}
	return newPubSubClient(daprClient, pubsubName, topic), nil
}

func newPubSubClient(publisher eventPublisher, pubsubName, topic string) *PubSubClient {
	if topic == "" {
		topic = TopicNotifications
	}
	return &PubSubClient{
		daprClient:  publisher,
		pubsubName:  pubsubName,
		topic:       topic,
		statusTopic: TopicInformerStatus,
	}
}

// Close closes the PubSub client
func (p *PubSubClient) Close() error {
	if p.daprClient != nil {
		p.daprClient.Close()
	}
	return nil
}

// PublishNotification publishes a keyword match to the notifications topic.
func (p *PubSubClient) PublishNotification(ctx context.Context, message NotificationMessage) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("invalid notification message: %w", err)
	}
	if err := p.publish(ctx, p.topic, message); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	log.Debug().
		Str("notification_id", message.ID).
		Int64("conversation_id", message.ConversationID).
		Int64("keyword_id", message.KeywordID).
		Str("trace_id", message.TraceID).
		Msg("Published notification")
	return nil
}

// PublishStatus publishes an informer status message
func (p *PubSubClient) PublishStatus(ctx context.Context, message StatusMessage) error {
	if err := message.Validate(); err != nil {
		return fmt.Errorf("invalid status message: %w", err)
	}
	if err := p.publish(ctx, p.statusTopic, message); err != nil {
		return fmt.Errorf("failed to publish status: %w", err)
	}

	log.Debug().
		Int64("account_id", message.AccountID).
		Str("message_type", message.MessageType).
		Str("trace_id", message.TraceID).
		Msg("Published informer status")
	return nil
}

func (p *PubSubClient) publish(ctx context.Context, topic string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	err = p.daprClient.PublishEvent(ctx, p.pubsubName, topic, data, daprc.PublishEventWithContentType("application/json"))
	if err != nil {
		// the sidecar reports failures as gRPC statuses
		if st, ok := status.FromError(err); ok {
			log.Error().
				Str("pubsub", p.pubsubName).
				Str("topic", topic).
				Str("grpc_code", st.Code().String()).
				Str("grpc_message", st.Message()).
				Msg("Dapr publish rejected")
		}
		return err
	}
	return nil
}
