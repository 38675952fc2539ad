package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/config"
	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), config.DatabaseConfig{
		Driver: DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "informer.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func kw(id int64) *int64 { return &id }

func TestMigrateIsIdempotent(t *testing.T) {
	s := newTestStore(t)

	version, dirty, err := s.Migrate()

	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestUpsertConversationKeepsStoredLink(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	require.NoError(t, s.UpsertConversation(ctx, model.ConversationRecord{
		ID: 42, Name: "news", Title: "News", URL: "https://t.me/news", IsEnabled: true,
		AccountID: 1, AccessHash: "-1000000000042", CreatedAt: created,
	}))
	require.NoError(t, s.UpsertConversation(ctx, model.ConversationRecord{
		ID: 42, Name: "News Daily", Title: "News Daily", IsGroup: true, IsEnabled: true, AccountID: 1,
	}))

	got, err := s.GetConversation(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "News Daily", got.Title)
	assert.Equal(t, "https://t.me/news", got.URL)
	assert.Equal(t, "-1000000000042", got.AccessHash)
	assert.True(t, got.IsGroup)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestDisableConversation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertConversation(ctx, model.ConversationRecord{ID: 1, IsEnabled: true, AccountID: 9}))
	require.NoError(t, s.UpsertConversation(ctx, model.ConversationRecord{ID: 2, IsEnabled: true, AccountID: 9}))

	require.NoError(t, s.DisableConversation(ctx, 1))
	assert.ErrorIs(t, s.DisableConversation(ctx, 99), ErrNotFound)

	enabled, err := s.ListConversations(ctx, 9, true)
	require.NoError(t, err)
	require.Len(t, enabled, 1)
	assert.Equal(t, int64(2), enabled[0].ID)

	all, err := s.ListConversations(ctx, 9, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestGetConversationNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetConversation(context.Background(), 7)
	assert.True(t, IsNotFound(err))
}

func TestEnsureChatUserNeverUpdates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.EnsureChatUser(ctx, model.ChatUser{ID: 5, Username: "first"}))
	require.NoError(t, s.EnsureChatUser(ctx, model.ChatUser{ID: 5, Username: "second"}))

	u, err := s.GetChatUser(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "first", u.Username)
}

func TestRecordMessageLinksNotification(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec, err := s.RecordMessage(ctx, model.IngestedMessage{
		SenderID: 5, AccountID: 1, ConversationID: 42, KeywordID: kw(model.CatchAllKeywordID),
		ProviderMessageID: 100, Text: "hello", IsChannel: true, CreatedAt: time.Now(),
	})

	require.NoError(t, err)
	assert.NotZero(t, rec.ID)
	assert.NotZero(t, rec.MessageID)
	assert.Equal(t, model.CatchAllKeywordID, rec.KeywordID)
	assert.Equal(t, int64(42), rec.ConversationID)
	assert.Equal(t, int64(5), rec.SenderID)
}

func TestRecordMessageDuplicateDoesNotBlockLaterInserts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	msg := model.IngestedMessage{SenderID: 5, AccountID: 1, ConversationID: 42, KeywordID: kw(1), ProviderMessageID: 100}

	_, err := s.RecordMessage(ctx, msg)
	require.NoError(t, err)

	_, err = s.RecordMessage(ctx, msg)
	assert.ErrorIs(t, err, ErrDuplicate)

	msg.ProviderMessageID = 101
	_, err = s.RecordMessage(ctx, msg)
	require.NoError(t, err)

	other := msg
	other.ProviderMessageID = 100
	other.KeywordID = kw(2)
	_, err = s.RecordMessage(ctx, other)
	require.NoError(t, err, "the same message may be logged under a second keyword")

	messages, err := s.CountMessages(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, messages)
	notifications, err := s.CountNotifications(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, 3, notifications)
}

func TestKeywordsExcludeCatchAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	empty, err := s.ListKeywords(ctx)
	require.NoError(t, err)
	assert.Empty(t, empty)

	id, err := s.InsertKeyword(ctx, model.KeywordRule{Label: "ransomware", Pattern: "ransom(ware)?"})
	require.NoError(t, err)
	assert.Greater(t, id, model.CatchAllKeywordID)

	again, err := s.InsertKeyword(ctx, model.KeywordRule{Label: "dup", Pattern: "ransom(ware)?"})
	require.NoError(t, err)
	assert.Equal(t, id, again)

	rules, err := s.ListKeywords(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "ransomware", rules[0].Label)
}

func TestAccountRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetAccount(ctx, 77)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.UpsertAccount(ctx, model.Account{ID: 77, FirstName: "Ada", Phone: "+15550100", IsEnabled: true}))
	a, err := s.GetAccount(ctx, 77)
	require.NoError(t, err)
	assert.Equal(t, "Ada", a.FirstName)
	assert.True(t, a.IsEnabled)
}

func TestSeed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	channels := filepath.Join(dir, "channels.csv")
	keywords := filepath.Join(dir, "keywords.yaml")
	require.NoError(t, os.WriteFile(channels, []byte("name,url\nnews,https://t.me/news\nsecret,https://t.me/joinchat/AbC\n"), 0644))
	require.NoError(t, os.WriteFile(keywords, []byte("keywords:\n  - label: leak\n    pattern: data leak\n"), 0644))

	initial := config.InitialConfig{
		Account:            config.InitialAccount{ID: 10, FirstName: "Bot"},
		Channel:            config.InitialChannel{UseInitial: true, Name: "home", ID: -1000000000005, URL: "https://t.me/home"},
		ChannelsFile:       channels,
		KeywordsFile:       keywords,
		MonitorsPerAccount: 500,
	}

	report, err := s.Seed(ctx, initial)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Conversations)
	assert.Equal(t, 2, report.Seeds)
	assert.Equal(t, 1, report.Keywords)
	assert.Equal(t, 1, report.Monitors)

	_, err = s.Seed(ctx, initial)
	require.NoError(t, err)

	seeds, err := s.ListConversationSeeds(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, seeds, 2)
	home, err := s.GetConversation(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(10), home.AccountID)
	monitors, err := s.CountMonitors(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, monitors)
}

func TestSeedMissingFilesAreSkipped(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()

	report, err := s.Seed(context.Background(), config.InitialConfig{
		Account:      config.InitialAccount{ID: 10},
		ChannelsFile: filepath.Join(dir, "missing.csv"),
		KeywordsFile: filepath.Join(dir, "missing.yaml"),
	})

	require.NoError(t, err)
	assert.Zero(t, report.Seeds)
	assert.Zero(t, report.Keywords)
}

func TestSeedRequiresAccount(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Seed(context.Background(), config.InitialConfig{})
	assert.Error(t, err)
}
