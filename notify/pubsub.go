package notify

import (
	"context"

	"github.com/researchaccelerator-hub/telegram-informer/distributed"
	"github.com/researchaccelerator-hub/telegram-informer/model"
)

// NotificationPublisher publishes notification messages to pub/sub.
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, message distributed.NotificationMessage) error
}

// PubSubNotifier publishes each event through Dapr pub/sub.
type PubSubNotifier struct {
	publisher NotificationPublisher
}

// NewPubSubNotifier creates a pub/sub sink.
func NewPubSubNotifier(publisher NotificationPublisher) *PubSubNotifier {
	return &PubSubNotifier{publisher: publisher}
}

func (n *PubSubNotifier) Name() string { return "pubsub" }

func (n *PubSubNotifier) Notify(ctx context.Context, event model.MatchedEvent) error {
	return n.publisher.PublishNotification(ctx, distributed.NewNotificationMessage(event))
}
