package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/rs/zerolog"
)

// LogNotifier writes one JSON line per event.
type LogNotifier struct {
	mu     sync.Mutex
	logger zerolog.Logger
	closer io.Closer
}

// NewLogNotifier appends events to the file at path.
func NewLogNotifier(path string) (*LogNotifier, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification log %s: %w", path, err)
	}
	n := NewLogNotifierWriter(f)
	n.closer = f
	return n, nil
}

// NewLogNotifierWriter writes events to w.
func NewLogNotifierWriter(w io.Writer) *LogNotifier {
	return &LogNotifier{logger: zerolog.New(w).With().Timestamp().Logger()}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(_ context.Context, event model.MatchedEvent) error {
	msg := event.Message
	n.mu.Lock()
	defer n.mu.Unlock()
	n.logger.Log().
		Int64("account_id", event.AccountID).
		Int64("conversation_id", msg.ConversationID).
		Str("conversation_kind", msg.Kind.String()).
		Str("title", event.Metadata.Title).
		Str("url", event.Metadata.URL).
		Int("participant_count", event.Metadata.ParticipantCount).
		Int64("message_id", msg.MessageID).
		Int64("keyword_id", event.Keyword.ID).
		Str("keyword", keywordName(event.Keyword)).
		Int64("sender_id", event.User.ID).
		Str("sender_username", event.User.Username).
		Bool("is_mention", msg.IsMention).
		Bool("is_fwd", msg.IsForwarded).
		Bool("is_reply", msg.IsReply).
		Str("text", msg.Text).
		Time("event_time", event.Timestamp).
		Msg("keyword_match")
	return nil
}

// Close closes the underlying file, if any.
func (n *LogNotifier) Close() error {
	if n.closer == nil {
		return nil
	}
	return n.closer.Close()
}
