package crawl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMetadataSource struct {
	calls   int
	entry   model.ChannelMetadataEntry
	err     error
	perCall func(call int) (model.ChannelMetadataEntry, error)
}

func (f *fakeMetadataSource) ConversationMetadata(_ context.Context, id int64) (model.ChannelMetadataEntry, error) {
	f.calls++
	if f.perCall != nil {
		return f.perCall(f.calls)
	}
	e := f.entry
	e.ConversationID = id
	return e, f.err
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestCache(src MetadataSource, clock *fakeClock) *MetadataCache {
	c := NewMetadataCache(src, 3*time.Hour)
	c.now = clock.Now
	return c
}

func TestMetadataCacheHitWithinTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeMetadataSource{entry: model.ChannelMetadataEntry{Title: "News", URL: "https://t.me/news", ParticipantCount: 1200}}
	cache := newTestCache(src, clock)

	first := cache.GetOrRefresh(context.Background(), 42)
	clock.Advance(2 * time.Hour)
	second := cache.GetOrRefresh(context.Background(), 42)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, clock.t.Add(-2*time.Hour).Add(3*time.Hour), second.ExpiresAt)
}

func TestMetadataCacheRefreshAfterExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeMetadataSource{entry: model.ChannelMetadataEntry{Title: "News", ParticipantCount: 10}}
	cache := newTestCache(src, clock)

	cache.GetOrRefresh(context.Background(), 42)
	clock.Advance(3*time.Hour + time.Second)
	entry := cache.GetOrRefresh(context.Background(), 42)

	assert.Equal(t, 2, src.calls)
	assert.Equal(t, clock.t.Add(3*time.Hour), entry.ExpiresAt)

	cache.GetOrRefresh(context.Background(), 42)
	assert.Equal(t, 2, src.calls)
}

func TestMetadataCacheExpiredSeedRefreshes(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeMetadataSource{entry: model.ChannelMetadataEntry{Title: "Fresh", ParticipantCount: 99}}
	cache := newTestCache(src, clock)

	cache.Seed(model.ChannelMetadataEntry{ConversationID: 42, Title: "Old", ParticipantCount: 5})
	clock.Advance(4 * time.Hour)

	callTime := clock.t
	entry := cache.GetOrRefresh(context.Background(), 42)
	require.Equal(t, 1, src.calls)
	assert.Equal(t, "Fresh", entry.Title)
	assert.Equal(t, 99, entry.ParticipantCount)
	assert.Equal(t, callTime.Add(3*time.Hour), entry.ExpiresAt)
}

func TestMetadataCacheSentinelCountIsStale(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeMetadataSource{entry: model.ChannelMetadataEntry{Title: "Group", ParticipantCount: 7}}
	cache := newTestCache(src, clock)

	cache.Seed(model.ChannelMetadataEntry{ConversationID: 5, Title: "Group"})
	entry := cache.GetOrRefresh(context.Background(), 5)

	assert.Equal(t, 1, src.calls)
	assert.Equal(t, 7, entry.ParticipantCount)
}

func TestMetadataCacheRefreshFailureDegrades(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeMetadataSource{err: errors.New("CHAT_ADMIN_REQUIRED")}
	cache := newTestCache(src, clock)
	cache.Seed(model.ChannelMetadataEntry{ConversationID: 9, Title: "Secret", URL: "https://t.me/secret", ParticipantCount: 50})
	clock.Advance(5 * time.Hour)

	entry := cache.GetOrRefresh(context.Background(), 9)

	assert.Equal(t, int64(9), entry.ConversationID)
	assert.Equal(t, "Secret", entry.Title)
	assert.Equal(t, "https://t.me/secret", entry.URL)
	assert.Zero(t, entry.ParticipantCount)
	assert.True(t, entry.Stale(clock.t))
}

func TestMetadataCacheFirstRefreshKeepsPartialMetadata(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	src := &fakeMetadataSource{
		entry: model.ChannelMetadataEntry{Title: "Members Hidden", URL: "https://t.me/hidden", ParticipantCount: 0},
		err:   errors.New("CHAT_ADMIN_REQUIRED"),
	}
	cache := newTestCache(src, clock)

	entry := cache.GetOrRefresh(context.Background(), 12)

	assert.Equal(t, "Members Hidden", entry.Title)
	assert.Equal(t, "https://t.me/hidden", entry.URL)
	assert.Zero(t, entry.ParticipantCount)
}

func TestMetadataCacheSeedResetsExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	cache := newTestCache(&fakeMetadataSource{}, clock)

	entry := cache.Seed(model.ChannelMetadataEntry{ConversationID: 1, ParticipantCount: 3, ExpiresAt: time.Time{}})
	assert.Equal(t, clock.t.Add(3*time.Hour), entry.ExpiresAt)
	assert.Equal(t, 1, cache.Len())
}
