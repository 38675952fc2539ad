package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/researchaccelerator-hub/telegram-informer/store"
	"github.com/rs/zerolog/log"
)

// MessageRecorder persists users, messages and their notifications.
type MessageRecorder interface {
	EnsureChatUser(ctx context.Context, u model.ChatUser) error
	RecordMessage(ctx context.Context, msg model.IngestedMessage) (model.NotificationRecord, error)
}

// SQLNotifier records every matched event in the relational store.
type SQLNotifier struct {
	store MessageRecorder
}

// NewSQLNotifier creates a relational sink.
func NewSQLNotifier(s MessageRecorder) *SQLNotifier {
	return &SQLNotifier{store: s}
}

func (n *SQLNotifier) Name() string { return "sql" }

func (n *SQLNotifier) Notify(ctx context.Context, event model.MatchedEvent) error {
	user := event.User
	if user.ID == 0 {
		user.ID = event.Message.Sender.StoredID()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = event.Timestamp
	}
	if err := n.store.EnsureChatUser(ctx, user); err != nil {
		return fmt.Errorf("failed to store chat user %d: %w", user.ID, err)
	}

	row := model.NewIngestedMessage(event.Message, event.AccountID, event.Keyword.ID, event.Metadata.ParticipantCount, event.Timestamp)
	row.SenderID = user.ID
	if _, err := n.store.RecordMessage(ctx, row); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Debug().
				Int64("conversation_id", row.ConversationID).
				Int64("message_id", row.ProviderMessageID).
				Int64("keyword_id", event.Keyword.ID).
				Msg("Notification already recorded")
			return nil
		}
		return fmt.Errorf("failed to record notification: %w", err)
	}
	return nil
}
