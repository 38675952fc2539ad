package crawl

import (
	"context"
	"errors"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/researchaccelerator-hub/telegram-informer/queue"
	"github.com/researchaccelerator-hub/telegram-informer/store"
	"github.com/researchaccelerator-hub/telegram-informer/telegramhelper"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultScrapeInterval is the pause between two backfilled messages.
const DefaultScrapeInterval = 4 * time.Second

// HistoryProvider pages through conversation history on the provider.
type HistoryProvider interface {
	HistoryPage(ctx context.Context, chatID, fromMessageID int64) ([]model.IncomingMessage, error)
	ChatUser(ctx context.Context, sender model.Sender) (model.ChatUser, error)
}

// MessageStore persists ingested messages and their authors.
type MessageStore interface {
	EnsureChatUser(ctx context.Context, user model.ChatUser) error
	RecordMessage(ctx context.Context, msg model.IngestedMessage) (model.NotificationRecord, error)
}

// ScraperOptions configures a Scraper.
type ScraperOptions struct {
	Provider  HistoryProvider
	Store     MessageStore
	Cache     *MetadataCache
	AccountID int64
	Interval  time.Duration
	// Joins, when set, receives the conversations referenced in backfilled
	// history.
	Joins *queue.Queue[model.JoinRequest]
	Sleep SleepFunc
}

// Scraper backfills the full history of every conversation queued on
// ScrapeQueue. History is logged unconditionally under the catch-all
// keyword.
type Scraper struct {
	provider   HistoryProvider
	store      MessageStore
	cache      *MetadataCache
	accountID  int64
	interval   time.Duration
	joins      *queue.Queue[model.JoinRequest]
	sleep      SleepFunc
	now        func() time.Time
}

// NewScraper creates a background scraper.
func NewScraper(opts ScraperOptions) *Scraper {
	s := &Scraper{
		provider:   opts.Provider,
		store:      opts.Store,
		cache:      opts.Cache,
		accountID:  opts.AccountID,
		interval:   opts.Interval,
		joins:      opts.Joins,
		sleep:      opts.Sleep,
		now:        time.Now,
	}
	if s.interval <= 0 {
		s.interval = DefaultScrapeInterval
	}
	if s.sleep == nil {
		s.sleep = Sleep
	}
	return s
}

// Run blocks on scrapes and backfills each request in turn. It returns nil
// once the queue is closed and drained, or the context error.
func (s *Scraper) Run(ctx context.Context, scrapes *queue.Queue[model.ScrapeRequest]) error {
	log.Info().Msg("Background scraper started")
	for {
		req, err := scrapes.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				log.Info().Msg("Scrape queue closed, background scraper stopping")
				return nil
			}
			return err
		}
		if err := s.Scrape(ctx, req); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

// Scrape pages through the history of one conversation, newest first,
// persisting every message. Pagination stops on an empty page or when the
// provider returns the same last message twice.
func (s *Scraper) Scrape(ctx context.Context, req model.ScrapeRequest) error {
	chatID := req.ChatID
	if chatID == 0 {
		chatID = model.SupergroupChatID(req.ConversationID)
	}
	logger := log.With().
		Int64("conversation_id", req.ConversationID).
		Int64("chat_id", chatID).
		Logger()

	participants := 0
	if s.cache != nil {
		participants = s.cache.GetOrRefresh(ctx, req.ConversationID).ParticipantCount
	}

	logger.Info().Time("log_time", req.LogTime).Msg("Starting history backfill")
	users := make(map[int64]bool)
	var fromID int64
	total := 0
	for {
		page, err := s.provider.HistoryPage(ctx, chatID, fromID)
		if err != nil {
			return s.abandon(ctx, logger, err)
		}
		if len(page) == 0 {
			break
		}

		for _, msg := range page {
			if msg.MessageID == fromID {
				continue
			}
			if err := s.ingest(ctx, logger, req, msg, participants, users); err != nil {
				return s.abandon(ctx, logger, err)
			}
			total++
			if err := s.sleep(ctx, s.interval); err != nil {
				return err
			}
		}

		last := page[len(page)-1].MessageID
		if last == fromID {
			break
		}
		fromID = last
	}

	logger.Info().Int("messages", total).Msg("History backfill complete")
	return nil
}

// ingest persists one historical message. Only provider and context errors
// are returned; storage failures are logged and the backfill continues.
func (s *Scraper) ingest(ctx context.Context, logger zerolog.Logger, req model.ScrapeRequest, msg model.IncomingMessage, participants int, users map[int64]bool) error {
	senderID := msg.Sender.StoredID()
	if !users[senderID] {
		user, err := s.provider.ChatUser(ctx, msg.Sender)
		if err != nil {
			if _, ok := telegramhelper.ThrottleWait(err); ok || ctx.Err() != nil {
				return err
			}
			logger.Warn().Err(err).Int64("sender_id", senderID).Msg("Could not resolve sender, storing id only")
			user = model.ChatUser{ID: senderID, IsChannel: senderID == model.ChannelSenderID}
		}
		user.CreatedAt = req.LogTime
		if err := s.store.EnsureChatUser(ctx, user); err != nil {
			logger.Error().Err(err).Int64("sender_id", senderID).Msg("Failed to store chat user")
		} else {
			users[senderID] = true
		}
	}

	row := model.NewIngestedMessage(msg, s.accountID, model.CatchAllKeywordID, participants, req.LogTime)
	if _, err := s.store.RecordMessage(ctx, row); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			logger.Debug().Int64("message_id", msg.MessageID).Msg("Message already stored")
		} else {
			logger.Error().Err(err).Int64("message_id", msg.MessageID).Msg("Failed to store message")
		}
	}

	if s.joins != nil {
		for _, join := range Candidates(msg.Text, msg.Links, msg.ForwardedFromChatID, s.now()) {
			s.joins.Push(join)
		}
	}
	return nil
}

// abandon drops the current request. Throttling is waited out first.
func (s *Scraper) abandon(ctx context.Context, logger zerolog.Logger, err error) error {
	if wait, ok := telegramhelper.ThrottleWait(err); ok {
		d := ThrottleBackoff(wait)
		logger.Warn().Err(err).Dur("sleep", d).Msg("Scrape throttled, abandoning conversation")
		if sErr := s.sleep(ctx, d); sErr != nil {
			return sErr
		}
		return err
	}
	logger.Error().Err(err).Msg("Scrape failed, abandoning conversation")
	return err
}
