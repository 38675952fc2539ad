package standalone

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/crawl"
	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/researchaccelerator-hub/telegram-informer/queue"
	"github.com/rs/zerolog/log"
)

// DialogScanner lists the conversations the account already has open.
type DialogScanner interface {
	ScanDialogs(ctx context.Context, accountID int64, limit int) ([]model.ConversationRecord, error)
}

// BootstrapStore is the persistence used while restoring state at startup.
type BootstrapStore interface {
	UpsertConversation(ctx context.Context, record model.ConversationRecord) error
	ListConversations(ctx context.Context, accountID int64, enabledOnly bool) ([]model.ConversationRecord, error)
	ListConversationSeeds(ctx context.Context, accountID int64) ([]model.ConversationSeed, error)
}

// BootstrapReport summarises what Bootstrap restored.
type BootstrapReport struct {
	Dialogs  int
	Tracked  int
	Seeds    int
	Enqueued int
}

// Bootstrap restores the tracked conversations of accountID into registry
// and cache and queues joins for seeds that were never joined:
//
//  1. open dialogs are upserted into the store;
//  2. enabled conversations are tracked and their metadata seeded;
//  3. every seed whose link no stored conversation carries is queued.
//
// A failed dialog scan is logged; the stored conversations still load.
func Bootstrap(ctx context.Context, scanner DialogScanner, st BootstrapStore, accountID int64, dialogLimit int,
	registry *crawl.Registry, cache *crawl.MetadataCache, joins *queue.Queue[model.JoinRequest]) (BootstrapReport, error) {
	var report BootstrapReport

	dialogs, err := scanner.ScanDialogs(ctx, accountID, dialogLimit)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to scan open dialogs, continuing with stored conversations")
	}
	for _, record := range dialogs {
		if err := st.UpsertConversation(ctx, record); err != nil {
			log.Error().Err(err).Int64("conversation_id", record.ID).Msg("Failed to store open dialog")
			continue
		}
		report.Dialogs++
	}

	enabled, err := st.ListConversations(ctx, accountID, true)
	if err != nil {
		return report, fmt.Errorf("failed to load conversations: %w", err)
	}
	for _, c := range enabled {
		registry.Add(c.ID)
		cache.Seed(model.ChannelMetadataEntry{ConversationID: c.ID, Title: c.Title, URL: c.URL})
	}
	report.Tracked = registry.Len()

	// disabled conversations count as known so forbidden ones are not retried
	all, err := st.ListConversations(ctx, accountID, false)
	if err != nil {
		return report, fmt.Errorf("failed to load conversations: %w", err)
	}
	known := make(map[string]bool, len(all))
	for _, c := range all {
		if _, key, ok := canonicalLink(c.URL); ok {
			known[key] = true
		}
	}

	seeds, err := st.ListConversationSeeds(ctx, accountID)
	if err != nil {
		return report, fmt.Errorf("failed to load conversation seeds: %w", err)
	}
	report.Seeds = len(seeds)

	now := time.Now()
	for _, seed := range seeds {
		req, key, ok := canonicalLink(seed.URL)
		if !ok {
			log.Warn().Str("reference", seed.URL).Msg("Seed link is not a Telegram conversation, skipping")
			continue
		}
		if known[key] {
			continue
		}
		known[key] = true
		req.EnqueuedAt = now
		if !joins.Push(req) {
			return report, fmt.Errorf("join queue closed during bootstrap")
		}
		report.Enqueued++
	}

	log.Info().
		Int64("account_id", accountID).
		Int("dialogs", report.Dialogs).
		Int("tracked", report.Tracked).
		Int("seeds", report.Seeds).
		Int("enqueued", report.Enqueued).
		Msg("Bootstrap complete")
	return report, nil
}

// canonicalLink classifies a t.me link and returns the join request for it
// together with a case-insensitive comparison key.
func canonicalLink(link string) (model.JoinRequest, string, bool) {
	if link == "" {
		return model.JoinRequest{}, "", false
	}
	reqs := crawl.ExtractJoinRequests(link, nil)
	if len(reqs) == 0 {
		return model.JoinRequest{}, "", false
	}
	req := reqs[0]
	if req.Kind == model.JoinPrivate {
		return req, strings.ToLower(req.Reference), true
	}
	return req, strings.ToLower("https://t.me/" + req.Reference), true
}
