package monitor

import (
	"context"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/crawl"
	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/researchaccelerator-hub/telegram-informer/notify"
	"github.com/researchaccelerator-hub/telegram-informer/queue"
	"github.com/rs/zerolog/log"
	"github.com/zelenin/go-tdlib/client"
)

// LiveProvider is the part of the primary session the listener uses.
type LiveProvider interface {
	ParseMessage(ctx context.Context, message *client.Message) (model.IncomingMessage, error)
	ChatUser(ctx context.Context, sender model.Sender) (model.ChatUser, error)
	MarkRead(ctx context.Context, chatID, messageID int64) error
}

// EventDispatcher fans matched events out to the notification sinks.
type EventDispatcher interface {
	Dispatch(ctx context.Context, event model.MatchedEvent) []notify.SinkOutcome
}

// ListenerOptions configures a Listener.
type ListenerOptions struct {
	Provider   LiveProvider
	Matcher    *Matcher
	Dispatcher EventDispatcher
	Cache      *crawl.MetadataCache
	Registry   *crawl.Registry
	AccountID  int64
	// Joins is used only when CrawlEnabled is set.
	CrawlEnabled bool
	Joins        *queue.Queue[model.JoinRequest]
}

// Listener consumes live new-message updates of the primary session.
type Listener struct {
	provider     LiveProvider
	matcher      *Matcher
	dispatcher   EventDispatcher
	cache        *crawl.MetadataCache
	registry     *crawl.Registry
	accountID    int64
	crawlEnabled bool
	joins        *queue.Queue[model.JoinRequest]
	now          func() time.Time
}

// NewListener creates a live message listener.
func NewListener(opts ListenerOptions) *Listener {
	return &Listener{
		provider:     opts.Provider,
		matcher:      opts.Matcher,
		dispatcher:   opts.Dispatcher,
		cache:        opts.Cache,
		registry:     opts.Registry,
		accountID:    opts.AccountID,
		crawlEnabled: opts.CrawlEnabled && opts.Joins != nil,
		joins:        opts.Joins,
		now:          time.Now,
	}
}

// Run handles updates until ctx is done or the channel is closed. Updates
// other than new messages are ignored.
func (l *Listener) Run(ctx context.Context, updates <-chan client.Type) error {
	log.Info().Bool("crawl_enabled", l.crawlEnabled).Msg("Listening for new messages")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				log.Info().Msg("Update stream closed, listener stopping")
				return nil
			}
			if u, ok := update.(*client.UpdateNewMessage); ok && u.Message != nil {
				l.Handle(ctx, u.Message)
			}
		}
	}
}

// Handle processes one live message: match, dispatch, discover, and mark it
// read as the last step. Messages outside channels and groups are ignored.
func (l *Listener) Handle(ctx context.Context, message *client.Message) {
	msg, err := l.provider.ParseMessage(ctx, message)
	if err != nil {
		log.Warn().Err(err).Int64("chat_id", message.ChatId).Msg("Could not load chat of new message")
		l.markRead(ctx, model.IncomingMessage{ChatID: message.ChatId, MessageID: message.Id})
		return
	}
	if msg.Kind != model.KindChannel && msg.Kind != model.KindGroup {
		return
	}
	defer l.markRead(ctx, msg)

	logger := log.With().
		Int64("conversation_id", msg.ConversationID).
		Int64("message_id", msg.MessageID).
		Logger()

	if !l.registry.Contains(msg.ConversationID) {
		logger.Debug().Msg("Ignoring message from untracked conversation")
		return
	}

	rules := l.matcher.Match(msg.Text)
	if len(rules) == 0 && l.matcher.MatchAll() {
		rules = []model.KeywordRule{model.CatchAllRule()}
	}
	if len(rules) > 0 {
		l.dispatch(ctx, msg, rules)
	}

	if l.crawlEnabled {
		for _, req := range crawl.Candidates(msg.Text, msg.Links, msg.ForwardedFromChatID, l.now()) {
			if !l.joins.Push(req) {
				logger.Warn().Str("reference", req.Reference).Msg("Join queue closed, discovery dropped")
			}
		}
	}
}

func (l *Listener) dispatch(ctx context.Context, msg model.IncomingMessage, rules []model.KeywordRule) {
	metadata := l.cache.GetOrRefresh(ctx, msg.ConversationID)

	user, err := l.provider.ChatUser(ctx, msg.Sender)
	if err != nil {
		log.Warn().Err(err).Int64("sender_id", msg.Sender.ID).Msg("Could not resolve sender")
		user = model.ChatUser{ID: msg.Sender.StoredID(), IsChannel: msg.Sender.StoredID() == model.ChannelSenderID}
	}

	ts := l.now()
	for _, rule := range rules {
		outcomes := l.dispatcher.Dispatch(ctx, model.MatchedEvent{
			Message:   msg,
			Keyword:   rule,
			Metadata:  metadata,
			User:      user,
			AccountID: l.accountID,
			Timestamp: ts,
		})
		log.Info().
			Int64("conversation_id", msg.ConversationID).
			Int64("keyword_id", rule.ID).
			Int("failed_sinks", notify.Failed(outcomes)).
			Msg("Keyword match dispatched")
	}
}

func (l *Listener) markRead(ctx context.Context, msg model.IncomingMessage) {
	if err := l.provider.MarkRead(ctx, msg.ChatID, msg.MessageID); err != nil {
		log.Warn().Err(err).Int64("chat_id", msg.ChatID).Int64("message_id", msg.MessageID).Msg("Failed to mark message read")
	}
}
