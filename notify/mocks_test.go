package notify

import (
	"context"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/researchaccelerator-hub/telegram-informer/distributed"
	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/stretchr/testify/mock"
)

type mockNotifier struct {
	mock.Mock
	name string
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Notify(ctx context.Context, event model.MatchedEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type panickingNotifier struct{}

func (panickingNotifier) Name() string { return "panics" }

func (panickingNotifier) Notify(context.Context, model.MatchedEvent) error {
	panic("sheet exploded")
}

type fakeSender struct {
	chatID int64
	text   string
	err    error
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	f.chatID, f.text = chatID, text
	return f.err
}

type fakeBot struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

type fakeAppender struct {
	rows [][]interface{}
	err  error
}

func (f *fakeAppender) AppendRow(_ context.Context, row []interface{}) error {
	f.rows = append(f.rows, row)
	return f.err
}

type fakeRecorder struct {
	users    []model.ChatUser
	messages []model.IngestedMessage
	err      error
}

func (f *fakeRecorder) EnsureChatUser(_ context.Context, u model.ChatUser) error {
	f.users = append(f.users, u)
	return nil
}

func (f *fakeRecorder) RecordMessage(_ context.Context, msg model.IngestedMessage) (model.NotificationRecord, error) {
	f.messages = append(f.messages, msg)
	if f.err != nil {
		return model.NotificationRecord{}, f.err
	}
	return model.NotificationRecord{ID: 1, MessageID: 1, KeywordID: *msg.KeywordID}, nil
}

type fakePublisher struct {
	published []distributed.NotificationMessage
}

func (f *fakePublisher) PublishNotification(_ context.Context, msg distributed.NotificationMessage) error {
	f.published = append(f.published, msg)
	return nil
}

func sampleEvent() model.MatchedEvent {
	return model.MatchedEvent{
		Message: model.IncomingMessage{
			ChatID:         -1001234567890,
			ConversationID: 1234567890,
			MessageID:      77,
			Text:           "got xanax for sale",
			Kind:           model.KindChannel,
			Sender:         model.Sender{Kind: model.SenderUser, ID: 555},
			IsReply:        true,
		},
		Keyword:   model.KeywordRule{ID: 2, Label: "drugs", Pattern: "(?i)xanax"},
		Metadata:  model.ChannelMetadataEntry{ConversationID: 1234567890, Title: "Night Market", URL: "https://t.me/nightmarket", ParticipantCount: 4200},
		User:      model.ChatUser{ID: 555, Username: "dealer"},
		AccountID: 9,
		Timestamp: time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC),
	}
}
