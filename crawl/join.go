package crawl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/researchaccelerator-hub/telegram-informer/queue"
	"github.com/researchaccelerator-hub/telegram-informer/telegramhelper"
	"github.com/rs/zerolog/log"
)

// JoinProvider resolves and joins conversations on the provider.
type JoinProvider interface {
	Resolve(ctx context.Context, req model.JoinRequest) (model.ResolvedConversation, error)
	Join(ctx context.Context, req model.JoinRequest, target model.ResolvedConversation) (model.ResolvedConversation, error)
}

// ConversationStore persists the conversations the join processor registers.
type ConversationStore interface {
	UpsertConversation(ctx context.Context, record model.ConversationRecord) error
	DisableConversation(ctx context.Context, conversationID int64) error
}

// JoinProcessor joins the conversations queued on JoinQueue, one at a time,
// with a pacing delay after every attempt.
type JoinProcessor struct {
	provider   JoinProvider
	store      ConversationStore
	registry   *Registry
	cache      *MetadataCache
	scrapes    *queue.Queue[model.ScrapeRequest]
	discoverer *Discoverer
	pacer      *Pacer
	accountID  int64

	sleep SleepFunc
	now   func() time.Time
}

// JoinProcessorOptions configures a JoinProcessor.
type JoinProcessorOptions struct {
	Provider  JoinProvider
	Store     ConversationStore
	Registry  *Registry
	Cache     *MetadataCache
	Scrapes   *queue.Queue[model.ScrapeRequest]
	Pacer     *Pacer
	AccountID int64
	// Discoverer, when set, filters the queue before every attempt and
	// enforces the capacity ceiling. Throttled references are forgotten so
	// they can be admitted again.
	Discoverer *Discoverer
	Sleep      SleepFunc
}

// NewJoinProcessor creates a join processor.
func NewJoinProcessor(opts JoinProcessorOptions) *JoinProcessor {
	sleep := opts.Sleep
	if sleep == nil {
		sleep = Sleep
	}
	return &JoinProcessor{
		provider:   opts.Provider,
		store:      opts.Store,
		registry:   opts.Registry,
		cache:      opts.Cache,
		scrapes:    opts.Scrapes,
		discoverer: opts.Discoverer,
		pacer:      opts.Pacer,
		accountID:  opts.AccountID,
		sleep:      sleep,
		now:        time.Now,
	}
}

// Run consumes joins until ctx is done or the queue is closed and drained.
func (p *JoinProcessor) Run(ctx context.Context, joins *queue.Queue[model.JoinRequest]) error {
	log.Info().Msg("Join processor started")
	for {
		req, err := joins.Pop(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrClosed) {
				log.Info().Msg("Join queue closed, join processor stopping")
				return nil
			}
			return err
		}
		if p.discoverer != nil && !p.discoverer.Admit(req) {
			continue
		}

		_, err = p.Process(ctx, req)
		if err := p.sleep(ctx, p.delayAfter(req, err)); err != nil {
			return err
		}
	}
}

// delayAfter returns the pause that must follow the attempt for req.
func (p *JoinProcessor) delayAfter(req model.JoinRequest, err error) time.Duration {
	if wait, ok := telegramhelper.ThrottleWait(err); ok {
		d := p.pacer.Throttled(wait)
		log.Warn().
			Str("request_kind", req.Kind.String()).
			Str("reference", req.Reference).
			Dur("wait", wait).
			Dur("sleep", d).
			Msg("Join throttled, request dropped")
		if p.discoverer != nil {
			p.discoverer.Forget(req)
		}
		return d
	}
	d := p.pacer.Next()
	log.Debug().Dur("sleep", d).Msg("Pacing before next join")
	return d
}

// Process resolves and joins the conversation req points at. On success,
// including when the account is already a member, the conversation is
// persisted, tracked, cached and queued for scraping.
func (p *JoinProcessor) Process(ctx context.Context, req model.JoinRequest) (model.ConversationRecord, error) {
	logger := log.With().
		Str("request_kind", req.Kind.String()).
		Str("reference", req.Reference).
		Int64("chat_id", req.ChatID).
		Logger()

	target, err := p.provider.Resolve(ctx, req)
	if err != nil {
		p.handleFailure(ctx, req, model.NormalizeChatID(req.ChatID), err)
		return model.ConversationRecord{}, err
	}
	if p.discoverer != nil && !p.discoverer.HasRoom(req, model.NormalizeChatID(target.ChatID)) {
		return model.ConversationRecord{}, ErrAtCapacity
	}

	joined, err := p.provider.Join(ctx, req, target)
	switch {
	case err == nil:
		logger.Info().Int64("chat_id", joined.ChatID).Str("title", joined.Title).Msg("Joined conversation")
	case errors.Is(err, telegramhelper.ErrAlreadyMember):
		logger.Info().Int64("chat_id", target.ChatID).Msg("Already a member, continuing as joined")
		joined = target
	default:
		p.handleFailure(ctx, req, model.NormalizeChatID(target.ChatID), err)
		return model.ConversationRecord{}, err
	}

	if joined.ChatID == 0 {
		err := fmt.Errorf("join of %s returned no chat id: %w", req.Reference, telegramhelper.ErrInvalidReference)
		logger.Error().Err(err).Msg("Dropping join request")
		return model.ConversationRecord{}, err
	}

	now := p.now()
	record := joined.Record(p.accountID, now)
	if err := p.store.UpsertConversation(ctx, record); err != nil {
		logger.Error().Err(err).Int64("conversation_id", record.ID).Msg("Failed to persist joined conversation")
	}
	p.registry.Add(record.ID)

	entry := joined.Metadata()
	if p.cache != nil {
		p.cache.Seed(entry)
	}

	if !p.scrapes.Push(model.ScrapeRequest{ConversationID: record.ID, ChatID: joined.ChatID, LogTime: now}) {
		logger.Warn().Int64("conversation_id", record.ID).Msg("Scrape queue closed, conversation not queued")
	}
	logger.Info().
		Int64("conversation_id", record.ID).
		Int("participant_count", entry.ParticipantCount).
		Msg("Conversation registered and queued for scraping")
	return record, nil
}

// handleFailure logs a failed join and disables the conversation when it is
// known to be forbidden.
func (p *JoinProcessor) handleFailure(ctx context.Context, req model.JoinRequest, conversationID int64, err error) {
	logger := log.With().
		Str("request_kind", req.Kind.String()).
		Str("reference", req.Reference).
		Int64("conversation_id", conversationID).
		Logger()

	switch {
	case errors.Is(err, telegramhelper.ErrForbidden):
		logger.Warn().Err(err).Msg("Conversation is private or forbidden, dropping request")
		if conversationID != 0 && p.registry.Contains(conversationID) {
			p.registry.Remove(conversationID)
			if dErr := p.store.DisableConversation(ctx, conversationID); dErr != nil {
				logger.Error().Err(dErr).Msg("Failed to disable conversation")
			}
		}
	case errors.Is(err, telegramhelper.ErrInvalidReference), errors.Is(err, telegramhelper.ErrEmptyInvite):
		logger.Warn().Err(err).Msg("Invalid reference, dropping request")
	default:
		if _, ok := telegramhelper.ThrottleWait(err); ok {
			return
		}
		logger.Error().Err(err).Msg("Join failed, dropping request")
	}
}
