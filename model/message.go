package model

import "time"

// CatchAllKeywordID marks messages that were logged without a keyword match:
// background history and live traffic when no rules are loaded.
const CatchAllKeywordID int64 = 1

// ChannelSenderID is the chat user id stored for messages authored by a
// channel (or by a sender that could not be identified) rather than a user.
const ChannelSenderID int64 = -1

// ConversationKind classifies where a message was posted.
type ConversationKind int

const (
	KindOther ConversationKind = iota
	KindChannel
	KindGroup
	KindPrivate
)

func (k ConversationKind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindGroup:
		return "group"
	case KindPrivate:
		return "private"
	default:
		return "other"
	}
}

// SenderKind is the variant tag of a Sender.
type SenderKind int

const (
	SenderUnknown SenderKind = iota
	SenderUser
	SenderChannel
)

// Sender identifies who authored a message. Exactly one kind applies.
type Sender struct {
	Kind SenderKind
	// ID is the user id for SenderUser and the chat id for SenderChannel.
	ID int64
}

// StoredID is the chat user id a message from this sender is recorded under.
func (s Sender) StoredID() int64 {
	if s.Kind == SenderUser {
		return s.ID
	}
	return ChannelSenderID
}

// ChatUser is a message author as persisted. Once stored it is never updated.
type ChatUser struct {
	ID           int64     `json:"chat_user_id" db:"chat_user_id"`
	FirstName    string    `json:"chat_user_first_name" db:"chat_user_first_name"`
	LastName     string    `json:"chat_user_last_name" db:"chat_user_last_name"`
	Username     string    `json:"chat_user_name" db:"chat_user_name"`
	Phone        string    `json:"chat_user_phone" db:"chat_user_phone"`
	IsBot        bool      `json:"chat_user_is_bot" db:"chat_user_is_bot"`
	IsVerified   bool      `json:"chat_user_is_verified" db:"chat_user_is_verified"`
	IsRestricted bool      `json:"chat_user_is_restricted" db:"chat_user_is_restricted"`
	IsChannel    bool      `json:"chat_user_is_channel" db:"chat_user_is_channel"`
	CreatedAt    time.Time `json:"chat_user_tcreate" db:"chat_user_tcreate"`
}

// ChannelUser is the placeholder user row for channel-authored messages.
func ChannelUser() ChatUser {
	return ChatUser{ID: ChannelSenderID, IsChannel: true}
}

// IncomingMessage is a provider message reduced to what the pipeline needs.
type IncomingMessage struct {
	ChatID              int64
	ConversationID      int64
	MessageID           int64
	Text                string
	Links               []string
	Kind                ConversationKind
	Sender              Sender
	ForwardedFromChatID int64
	IsMention           bool
	IsScheduled         bool
	IsForwarded         bool
	IsReply             bool
	IsBot               bool
	Date                time.Time
}

// IngestedMessage is an append-only message row.
type IngestedMessage struct {
	ID                int64     `json:"message_id" db:"message_id"`
	SenderID          int64     `json:"chat_user_id" db:"chat_user_id"`
	AccountID         int64     `json:"account_id" db:"account_id"`
	ConversationID    int64     `json:"channel_id" db:"channel_id"`
	KeywordID         *int64    `json:"keyword_id,omitempty" db:"keyword_id"`
	ProviderMessageID int64     `json:"provider_message_id" db:"provider_message_id"`
	Text              string    `json:"message_text" db:"message_text"`
	IsMention         bool      `json:"message_is_mention" db:"message_is_mention"`
	IsScheduled       bool      `json:"message_is_scheduled" db:"message_is_scheduled"`
	IsForwarded       bool      `json:"message_is_fwd" db:"message_is_fwd"`
	IsReply           bool      `json:"message_is_reply" db:"message_is_reply"`
	IsBot             bool      `json:"message_is_bot" db:"message_is_bot"`
	IsGroup           bool      `json:"message_is_group" db:"message_is_group"`
	IsPrivate         bool      `json:"message_is_private" db:"message_is_private"`
	IsChannel         bool      `json:"message_is_channel" db:"message_is_channel"`
	ParticipantCount  int       `json:"message_channel_size" db:"message_channel_size"`
	CreatedAt         time.Time `json:"message_tcreate" db:"message_tcreate"`
}

// NewIngestedMessage builds the row for msg as logged under keywordID.
func NewIngestedMessage(msg IncomingMessage, accountID, keywordID int64, participants int, at time.Time) IngestedMessage {
	kw := keywordID
	return IngestedMessage{
		SenderID:          msg.Sender.StoredID(),
		AccountID:         accountID,
		ConversationID:    msg.ConversationID,
		KeywordID:         &kw,
		ProviderMessageID: msg.MessageID,
		Text:              msg.Text,
		IsMention:         msg.IsMention,
		IsScheduled:       msg.IsScheduled,
		IsForwarded:       msg.IsForwarded,
		IsReply:           msg.IsReply,
		IsBot:             msg.IsBot,
		IsGroup:           msg.Kind == KindGroup,
		IsPrivate:         msg.Kind == KindPrivate,
		IsChannel:         msg.Kind == KindChannel,
		ParticipantCount:  participants,
		CreatedAt:         at,
	}
}

// NotificationRecord links a message to the keyword that matched it.
type NotificationRecord struct {
	ID             int64 `json:"notification_id" db:"notification_id"`
	KeywordID      int64 `json:"keyword_id" db:"keyword_id"`
	MessageID      int64 `json:"message_id" db:"message_id"`
	ConversationID int64 `json:"channel_id" db:"channel_id"`
	AccountID      int64 `json:"account_id" db:"account_id"`
	SenderID       int64 `json:"chat_user_id" db:"chat_user_id"`
}

// KeywordRule is a labelled regular expression loaded at startup.
type KeywordRule struct {
	ID      int64  `json:"keyword_id" yaml:"-" db:"keyword_id"`
	Label   string `json:"keyword_description" yaml:"label" db:"keyword_description"`
	Pattern string `json:"keyword_regex" yaml:"pattern" db:"keyword_regex"`
}

// CatchAllRule is the rule reported when every message is dispatched.
func CatchAllRule() KeywordRule {
	return KeywordRule{ID: CatchAllKeywordID}
}

// MatchedEvent is what the notification sinks receive.
type MatchedEvent struct {
	Message   IncomingMessage
	Keyword   KeywordRule
	Metadata  ChannelMetadataEntry
	User      ChatUser
	AccountID int64
	Timestamp time.Time
}
