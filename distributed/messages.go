// Package distributed provides the message types the informer publishes to
// Dapr pub/sub for downstream consumers.
package distributed

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/researchaccelerator-hub/telegram-informer/model"
)

// Message Types
const (
	MessageTypeKeywordMatch = "keyword_match"

	MessageTypeInformerStarted  = "informer_started"
	MessageTypeInformerStopping = "informer_stopping"
	MessageTypeHeartbeat        = "heartbeat"
)

// Topic Names (should match config defaults)
const (
	TopicNotifications = "informer-notifications"
	TopicInformerStatus = "informer-status"
)

// NotificationMessage is the pub/sub form of a keyword match.
type NotificationMessage struct {
	MessageType      string    `json:"message_type"`
	ID               string    `json:"id"`
	AccountID        int64     `json:"account_id"`
	ConversationID   int64     `json:"conversation_id"`
	ConversationKind string    `json:"conversation_kind"`
	Title            string    `json:"title"`
	URL              string    `json:"url,omitempty"`
	ParticipantCount int       `json:"participant_count"`
	MessageID        int64     `json:"message_id"`
	Text             string    `json:"text"`
	KeywordID        int64     `json:"keyword_id"`
	Keyword          string    `json:"keyword"`
	SenderID         int64     `json:"sender_id"`
	SenderUsername   string    `json:"sender_username,omitempty"`
	IsMention        bool      `json:"is_mention"`
	IsScheduled      bool      `json:"is_scheduled"`
	IsForwarded      bool      `json:"is_fwd"`
	IsReply          bool      `json:"is_reply"`
	IsBot            bool      `json:"is_bot"`
	Timestamp        time.Time `json:"timestamp"`
	TraceID          string    `json:"trace_id,omitempty"`
}

// StatusMessage reports the informer's lifecycle and queue depths.
type StatusMessage struct {
	MessageType    string        `json:"message_type"` // "informer_started", "informer_stopping", "heartbeat"
	AccountID      int64         `json:"account_id"`
	RunID          string        `json:"run_id"`
	Conversations  int           `json:"conversations"`
	JoinQueueLen   int           `json:"join_queue_length"`
	ScrapeQueueLen int           `json:"scrape_queue_length"`
	Timestamp      time.Time     `json:"timestamp"`
	Uptime         time.Duration `json:"uptime"`
	TraceID        string        `json:"trace_id,omitempty"`
}

// NewNotificationMessage builds the pub/sub message for a matched event.
func NewNotificationMessage(event model.MatchedEvent) NotificationMessage {
	msg := event.Message
	return NotificationMessage{
		MessageType:      MessageTypeKeywordMatch,
		ID:               uuid.NewString(),
		AccountID:        event.AccountID,
		ConversationID:   msg.ConversationID,
		ConversationKind: msg.Kind.String(),
		Title:            event.Metadata.Title,
		URL:              event.Metadata.URL,
		ParticipantCount: event.Metadata.ParticipantCount,
		MessageID:        msg.MessageID,
		Text:             msg.Text,
		KeywordID:        event.Keyword.ID,
		Keyword:          event.Keyword.Label,
		SenderID:         event.User.ID,
		SenderUsername:   event.User.Username,
		IsMention:        msg.IsMention,
		IsScheduled:      msg.IsScheduled,
		IsForwarded:      msg.IsForwarded,
		IsReply:          msg.IsReply,
		IsBot:            msg.IsBot,
		Timestamp:        event.Timestamp,
		TraceID:          generateTraceID(),
	}
}

// NewStatusMessage creates a new status message
func NewStatusMessage(messageType string, accountID int64, runID string, conversations, joinQueueLen, scrapeQueueLen int, uptime time.Duration) StatusMessage {
	return StatusMessage{
		MessageType:    messageType,
		AccountID:      accountID,
		RunID:          runID,
		Conversations:  conversations,
		JoinQueueLen:   joinQueueLen,
		ScrapeQueueLen: scrapeQueueLen,
		Timestamp:      time.Now(),
		Uptime:         uptime,
		TraceID:        generateTraceID(),
	}
}

// generateTraceID generates a trace ID for distributed tracing
func generateTraceID() string {
	return "trace_" + uuid.NewString()
}

// Validate validates a NotificationMessage
func (n *NotificationMessage) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("notification ID cannot be empty")
	}
	if n.MessageType != MessageTypeKeywordMatch {
		return fmt.Errorf("invalid message type: %s", n.MessageType)
	}
	if n.ConversationID == 0 {
		return fmt.Errorf("notification conversation ID cannot be empty")
	}
	if n.KeywordID == 0 {
		return fmt.Errorf("notification keyword ID cannot be empty")
	}
	return nil
}

// Validate validates a StatusMessage
func (s *StatusMessage) Validate() error {
	switch s.MessageType {
	case MessageTypeInformerStarted, MessageTypeInformerStopping, MessageTypeHeartbeat:
	default:
		return fmt.Errorf("invalid message type: %s", s.MessageType)
	}
	if s.AccountID == 0 {
		return fmt.Errorf("status message AccountID cannot be empty")
	}
	return nil
}
