package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/common"
	"github.com/researchaccelerator-hub/telegram-informer/config"
	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/rs/zerolog/log"
)

// SeedReport counts what Seed wrote.
type SeedReport struct {
	AccountID     int64
	Conversations int
	Seeds         int
	Keywords      int
	Monitors      int
	Unmonitored   int
}

// Seed populates an empty database from the initial configuration: the
// account, the configured channel, the channels file, the keywords file and
// the monitor assignments. Running it twice is harmless.
func (s *Store) Seed(ctx context.Context, initial config.InitialConfig) (SeedReport, error) {
	report := SeedReport{AccountID: initial.Account.ID}
	if initial.Account.ID == 0 {
		return report, fmt.Errorf("initial.account.id must be set")
	}
	now := time.Now()

	acc := initial.Account
	err := s.UpsertAccount(ctx, model.Account{
		ID:        acc.ID,
		APIID:     acc.APIID,
		APIHash:   acc.APIHash,
		FirstName: acc.FirstName,
		LastName:  acc.LastName,
		Username:  acc.Username,
		Phone:     acc.Phone,
		IsEnabled: true,
		CreatedAt: now,
	})
	if err != nil {
		return report, err
	}
	log.Info().Int64("account_id", acc.ID).Msg("Seeded account")

	if ch := initial.Channel; ch.UseInitial {
		if ch.ID != 0 {
			err = s.UpsertConversation(ctx, model.ConversationRecord{
				ID:        model.NormalizeChatID(ch.ID),
				Name:      ch.Name,
				Title:     ch.Name,
				URL:       ch.URL,
				IsPrivate: ch.IsPrivate,
				IsEnabled: true,
				AccountID: acc.ID,
				CreatedAt: now,
			})
			if err != nil {
				return report, err
			}
			report.Conversations++
		} else if ch.URL != "" {
			if err := s.InsertConversationSeed(ctx, model.ConversationSeed{Name: ch.Name, URL: ch.URL, AccountID: acc.ID, CreatedAt: now}); err != nil {
				return report, err
			}
			report.Seeds++
		}
	}

	if initial.ChannelsFile != "" {
		n, err := s.seedChannels(ctx, initial.ChannelsFile, acc.ID, now)
		if err != nil {
			return report, err
		}
		report.Seeds += n
	}

	if initial.KeywordsFile != "" {
		n, err := s.seedKeywords(ctx, initial.KeywordsFile)
		if err != nil {
			return report, err
		}
		report.Keywords = n
	}

	report.Monitors, report.Unmonitored, err = s.seedMonitors(ctx, acc.ID, initial.MonitorsPerAccount)
	if err != nil {
		return report, err
	}

	log.Info().
		Int64("account_id", report.AccountID).
		Int("conversations", report.Conversations).
		Int("seeds", report.Seeds).
		Int("keywords", report.Keywords).
		Int("monitors", report.Monitors).
		Msg("Database seeded")
	return report, nil
}

func (s *Store) seedChannels(ctx context.Context, path string, accountID int64, now time.Time) (int, error) {
	local, err := common.LocalPath(path)
	if err != nil {
		return 0, err
	}
	channels, err := common.ReadChannelsCSV(local)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("file", path).Msg("Channels file not found, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for _, ch := range channels {
		ch.AccountID = accountID
		ch.CreatedAt = now
		if err := s.InsertConversationSeed(ctx, ch); err != nil {
			return 0, err
		}
		log.Info().Str("name", ch.Name).Str("url", ch.URL).Msg("Seeded channel link")
	}
	return len(channels), nil
}

func (s *Store) seedKeywords(ctx context.Context, path string) (int, error) {
	local, err := common.LocalPath(path)
	if err != nil {
		return 0, err
	}
	rules, err := common.ReadKeywordsFile(local)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("file", path).Msg("Keywords file not found, skipping")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	for _, rule := range rules {
		id, err := s.InsertKeyword(ctx, rule)
		if err != nil {
			return 0, err
		}
		log.Info().Int64("keyword_id", id).Str("label", rule.Label).Msg("Seeded keyword")
	}
	return len(rules), nil
}

// seedMonitors assigns the account's conversations to it, up to limit.
// Conversations beyond the limit would belong to a further account.
func (s *Store) seedMonitors(ctx context.Context, accountID int64, limit int) (assigned, skipped int, err error) {
	conversations, err := s.ListConversations(ctx, accountID, true)
	if err != nil {
		return 0, 0, err
	}
	for i, c := range conversations {
		if limit > 0 && i >= limit {
			skipped = len(conversations) - i
			log.Warn().Int("skipped", skipped).Int("limit", limit).Msg("Monitor limit reached for account")
			break
		}
		if err := s.AssignMonitor(ctx, accountID, c.ID); err != nil {
			return assigned, 0, err
		}
		assigned++
	}
	return assigned, skipped, nil
}
