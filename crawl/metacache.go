package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/rs/zerolog/log"
)

// DefaultMetadataTTL is how long a conversation's metadata is trusted.
const DefaultMetadataTTL = 3 * time.Hour

// MetadataSource resolves fresh metadata for a conversation. Implementations
// call the provider and may fail, for instance when the account lacks the
// rights to read the participant count.
type MetadataSource interface {
	ConversationMetadata(ctx context.Context, conversationID int64) (model.ChannelMetadataEntry, error)
}

// MetadataCache maps conversation ids to metadata entries that expire after
// a fixed TTL. Entries are only ever replaced whole.
type MetadataCache struct {
	source MetadataSource
	ttl    time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[int64]model.ChannelMetadataEntry
}

// NewMetadataCache creates an empty cache backed by source.
func NewMetadataCache(source MetadataSource, ttl time.Duration) *MetadataCache {
	if ttl <= 0 {
		ttl = DefaultMetadataTTL
	}
	return &MetadataCache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[int64]model.ChannelMetadataEntry),
	}
}

// GetOrRefresh returns the cached entry for id, refreshing it first when it
// is missing or stale. A failed refresh never fails the caller; it yields an
// entry whose participant count is the unknown sentinel.
func (c *MetadataCache) GetOrRefresh(ctx context.Context, id int64) model.ChannelMetadataEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	entry, ok := c.entries[id]
	if ok && !entry.Stale(now) {
		return entry
	}

	fresh, err := c.source.ConversationMetadata(ctx, id)
	if err != nil {
		log.Warn().Err(err).Int64("conversation_id", id).Msg("Metadata refresh failed, participant count unknown")
		if fresh.Title == "" {
			fresh.Title = entry.Title
		}
		if fresh.URL == "" {
			fresh.URL = entry.URL
		}
		fresh.ParticipantCount = 0
	}
	fresh.ConversationID = id
	fresh.ExpiresAt = now.Add(c.ttl)
	c.entries[id] = fresh

	log.Debug().
		Int64("conversation_id", id).
		Int("participant_count", fresh.ParticipantCount).
		Time("expires_at", fresh.ExpiresAt).
		Msg("Refreshed conversation metadata")
	return fresh
}

// Seed stores entry as the current metadata for its conversation, resetting
// its expiry.
func (c *MetadataCache) Seed(entry model.ChannelMetadataEntry) model.ChannelMetadataEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry.ExpiresAt = c.now().Add(c.ttl)
	c.entries[entry.ConversationID] = entry
	return entry
}

// Len returns the number of cached conversations.
func (c *MetadataCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
