package store

import (
	"context"
	"fmt"

	"github.com/researchaccelerator-hub/telegram-informer/model"
)

// EnsureChatUser stores user unless a row with its id already exists.
// Stored users are never updated.
func (s *Store) EnsureChatUser(ctx context.Context, u model.ChatUser) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_users (chat_user_id, chat_user_first_name, chat_user_last_name, chat_user_name,
			chat_user_phone, chat_user_is_bot, chat_user_is_verified, chat_user_is_restricted,
			chat_user_is_channel, chat_user_tcreate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (chat_user_id) DO NOTHING
	`, u.ID, u.FirstName, u.LastName, u.Username, u.Phone, u.IsBot, u.IsVerified, u.IsRestricted,
		u.IsChannel, u.CreatedAt)
	return wrapErr("ensure chat user", err)
}

// GetChatUser returns a stored chat user.
func (s *Store) GetChatUser(ctx context.Context, id int64) (model.ChatUser, error) {
	var u model.ChatUser
	err := s.db.QueryRowContext(ctx, `
		SELECT chat_user_id, chat_user_first_name, chat_user_last_name, chat_user_name, chat_user_phone,
			chat_user_is_bot, chat_user_is_verified, chat_user_is_restricted, chat_user_is_channel,
			chat_user_tcreate
		FROM chat_users WHERE chat_user_id = $1
	`, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Username, &u.Phone, &u.IsBot, &u.IsVerified,
		&u.IsRestricted, &u.IsChannel, &u.CreatedAt)
	return u, wrapErr("get chat user", err)
}

// RecordMessage inserts msg and the notification linking it to its keyword
// in a single transaction. A message already stored for the same
// conversation and keyword yields ErrDuplicate and leaves no rows behind.
func (s *Store) RecordMessage(ctx context.Context, msg model.IngestedMessage) (model.NotificationRecord, error) {
	keywordID := model.CatchAllKeywordID
	if msg.KeywordID != nil {
		keywordID = *msg.KeywordID
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NotificationRecord{}, wrapErr("begin message transaction", err)
	}
	defer tx.Rollback()

	var messageID int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (chat_user_id, account_id, channel_id, keyword_id, provider_message_id,
			message_text, message_is_mention, message_is_scheduled, message_is_fwd, message_is_reply,
			message_is_bot, message_is_group, message_is_private, message_is_channel,
			message_channel_size, message_tcreate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING message_id
	`, msg.SenderID, msg.AccountID, msg.ConversationID, keywordID, msg.ProviderMessageID, msg.Text,
		msg.IsMention, msg.IsScheduled, msg.IsForwarded, msg.IsReply, msg.IsBot, msg.IsGroup,
		msg.IsPrivate, msg.IsChannel, msg.ParticipantCount, msg.CreatedAt).Scan(&messageID)
	if err != nil {
		return model.NotificationRecord{}, wrapErr("insert message", err)
	}

	rec := model.NotificationRecord{
		KeywordID:      keywordID,
		MessageID:      messageID,
		ConversationID: msg.ConversationID,
		AccountID:      msg.AccountID,
		SenderID:       msg.SenderID,
	}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO notifications (keyword_id, message_id, channel_id, account_id, chat_user_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING notification_id
	`, rec.KeywordID, rec.MessageID, rec.ConversationID, rec.AccountID, rec.SenderID).Scan(&rec.ID)
	if err != nil {
		return model.NotificationRecord{}, wrapErr("insert notification", err)
	}

	if err := tx.Commit(); err != nil {
		return model.NotificationRecord{}, wrapErr("commit message", err)
	}
	return rec, nil
}

// CountMessages returns how many messages are stored for a conversation.
func (s *Store) CountMessages(ctx context.Context, conversationID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE channel_id = $1`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// CountNotifications returns how many notifications reference a conversation.
func (s *Store) CountNotifications(ctx context.Context, conversationID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE channel_id = $1`, conversationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count notifications: %w", err)
	}
	return n, nil
}
