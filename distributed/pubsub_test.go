package distributed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	daprc "github.com/dapr/go-sdk/client"
	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type publishedEvent struct {
	pubsub string
	topic  string
	data   []byte
}

type fakePublisher struct {
	events []publishedEvent
	err    error
	closed bool
}

func (f *fakePublisher) PublishEvent(_ context.Context, pubsubName, topicName string, data interface{}, _ ...daprc.PublishEventOption) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, publishedEvent{pubsub: pubsubName, topic: topicName, data: data.([]byte)})
	return nil
}

func (f *fakePublisher) Close() { f.closed = true }

func testEvent() model.MatchedEvent {
	return model.MatchedEvent{
		Message: model.IncomingMessage{
			ConversationID: 42,
			MessageID:      7,
			Text:           "selling Xanax cheap",
			Kind:           model.KindChannel,
			IsForwarded:    true,
		},
		Keyword:   model.KeywordRule{ID: 3, Label: "drugs", Pattern: "(?i)xanax"},
		Metadata:  model.ChannelMetadataEntry{ConversationID: 42, Title: "Market", URL: "https://t.me/market", ParticipantCount: 900},
		User:      model.ChatUser{ID: 11, Username: "seller"},
		AccountID: 5,
		Timestamp: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewNotificationMessage(t *testing.T) {
	msg := NewNotificationMessage(testEvent())

	assert.Equal(t, MessageTypeKeywordMatch, msg.MessageType)
	assert.NotEmpty(t, msg.ID)
	assert.NotEmpty(t, msg.TraceID)
	assert.Equal(t, int64(42), msg.ConversationID)
	assert.Equal(t, "channel", msg.ConversationKind)
	assert.Equal(t, "drugs", msg.Keyword)
	assert.Equal(t, "seller", msg.SenderUsername)
	assert.Equal(t, 900, msg.ParticipantCount)
	assert.True(t, msg.IsForwarded)
	assert.NoError(t, msg.Validate())

	other := NewNotificationMessage(testEvent())
	assert.NotEqual(t, msg.ID, other.ID)
}

func TestNotificationMessageValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NotificationMessage)
	}{
		{"missing id", func(m *NotificationMessage) { m.ID = "" }},
		{"wrong type", func(m *NotificationMessage) { m.MessageType = "other" }},
		{"missing conversation", func(m *NotificationMessage) { m.ConversationID = 0 }},
		{"missing keyword", func(m *NotificationMessage) { m.KeywordID = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := NewNotificationMessage(testEvent())
			tt.mutate(&msg)
			assert.Error(t, msg.Validate())
		})
	}
}

func TestPublishNotification(t *testing.T) {
	pub := &fakePublisher{}
	client := newPubSubClient(pub, "pubsub", "")

	require.NoError(t, client.PublishNotification(context.Background(), NewNotificationMessage(testEvent())))

	require.Len(t, pub.events, 1)
	assert.Equal(t, "pubsub", pub.events[0].pubsub)
	assert.Equal(t, TopicNotifications, pub.events[0].topic)

	var decoded NotificationMessage
	require.NoError(t, json.Unmarshal(pub.events[0].data, &decoded))
	assert.Equal(t, int64(3), decoded.KeywordID)
	assert.Equal(t, "selling Xanax cheap", decoded.Text)
}

func TestPublishNotificationRejectsInvalid(t *testing.T) {
	pub := &fakePublisher{}
	client := newPubSubClient(pub, "pubsub", "topic")

	err := client.PublishNotification(context.Background(), NotificationMessage{})

	assert.Error(t, err)
	assert.Empty(t, pub.events)
}

func TestPublishReturnsSidecarError(t *testing.T) {
	pub := &fakePublisher{err: status.Error(codes.Unavailable, "sidecar not ready")}
	client := newPubSubClient(pub, "pubsub", "topic")

	err := client.PublishNotification(context.Background(), NewNotificationMessage(testEvent()))

	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok)
	assert.Equal(t, codes.Unavailable, st.Code())
}

func TestPublishStatus(t *testing.T) {
	pub := &fakePublisher{}
	client := newPubSubClient(pub, "pubsub", "topic")

	msg := NewStatusMessage(MessageTypeInformerStarted, 5, "20240501100000", 12, 1, 2, 0)
	require.NoError(t, client.PublishStatus(context.Background(), msg))
	require.Len(t, pub.events, 1)
	assert.Equal(t, TopicInformerStatus, pub.events[0].topic)

	bad := NewStatusMessage("unknown", 5, "", 0, 0, 0, 0)
	assert.Error(t, client.PublishStatus(context.Background(), bad))
}

func TestCloseClosesDaprClient(t *testing.T) {
	pub := &fakePublisher{}
	require.NoError(t, newPubSubClient(pub, "pubsub", "topic").Close())
	assert.True(t, pub.closed)
}
