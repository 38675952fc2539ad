package store

import (
	"context"

	"github.com/researchaccelerator-hub/telegram-informer/model"
)

const conversationColumns = `channel_id, channel_name, channel_title, channel_url, channel_is_group,
	channel_is_private, channel_is_broadcast, channel_is_megagroup, channel_is_enabled,
	account_id, channel_access_hash, channel_tcreate`

// UpsertConversation inserts the conversation or refreshes its resolved
// fields. An empty URL or access token never overwrites a stored one.
func (s *Store) UpsertConversation(ctx context.Context, c model.ConversationRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channels (`+conversationColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (channel_id) DO UPDATE SET
			channel_name = excluded.channel_name,
			channel_title = excluded.channel_title,
			channel_url = CASE WHEN excluded.channel_url = '' THEN channels.channel_url ELSE excluded.channel_url END,
			channel_is_group = excluded.channel_is_group,
			channel_is_private = excluded.channel_is_private,
			channel_is_broadcast = excluded.channel_is_broadcast,
			channel_is_megagroup = excluded.channel_is_megagroup,
			channel_is_enabled = excluded.channel_is_enabled,
			account_id = excluded.account_id,
			channel_access_hash = CASE WHEN excluded.channel_access_hash = '' THEN channels.channel_access_hash ELSE excluded.channel_access_hash END
	`, c.ID, c.Name, c.Title, c.URL, c.IsGroup, c.IsPrivate, c.IsBroadcast, c.IsMegagroup,
		c.IsEnabled, c.AccountID, c.AccessHash, c.CreatedAt)
	return wrapErr("upsert conversation", err)
}

// DisableConversation flags a conversation as no longer monitored.
// Conversations are never deleted.
func (s *Store) DisableConversation(ctx context.Context, conversationID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE channels SET channel_is_enabled = FALSE WHERE channel_id = $1
	`, conversationID)
	if err != nil {
		return wrapErr("disable conversation", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return wrapErr("disable conversation", ErrNotFound)
	}
	return nil
}

// GetConversation returns one conversation by canonical id.
func (s *Store) GetConversation(ctx context.Context, conversationID int64) (model.ConversationRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+conversationColumns+` FROM channels WHERE channel_id = $1
	`, conversationID)
	c, err := scanConversation(row)
	return c, wrapErr("get conversation", err)
}

// ListConversations returns the conversations owned by accountID, ordered by
// id. With enabledOnly set, disabled conversations are left out.
func (s *Store) ListConversations(ctx context.Context, accountID int64, enabledOnly bool) ([]model.ConversationRecord, error) {
	query := `SELECT ` + conversationColumns + ` FROM channels WHERE account_id = $1`
	if enabledOnly {
		query += ` AND channel_is_enabled = TRUE`
	}
	query += ` ORDER BY channel_id`

	rows, err := s.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, wrapErr("list conversations", err)
	}
	defer rows.Close()

	var out []model.ConversationRecord
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, wrapErr("scan conversation", err)
		}
		out = append(out, c)
	}
	return out, wrapErr("list conversations", rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(row rowScanner) (model.ConversationRecord, error) {
	var c model.ConversationRecord
	err := row.Scan(&c.ID, &c.Name, &c.Title, &c.URL, &c.IsGroup, &c.IsPrivate, &c.IsBroadcast,
		&c.IsMegagroup, &c.IsEnabled, &c.AccountID, &c.AccessHash, &c.CreatedAt)
	return c, err
}

// InsertConversationSeed stores a configured link. Links already stored are
// left alone.
func (s *Store) InsertConversationSeed(ctx context.Context, seed model.ConversationSeed) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO channel_seeds (seed_name, seed_url, account_id, seed_tcreate)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (seed_url) DO NOTHING
	`, seed.Name, seed.URL, seed.AccountID, seed.CreatedAt)
	return wrapErr("insert conversation seed", err)
}

// ListConversationSeeds returns the configured links of accountID.
func (s *Store) ListConversationSeeds(ctx context.Context, accountID int64) ([]model.ConversationSeed, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seed_id, seed_name, seed_url, account_id, seed_tcreate
		FROM channel_seeds WHERE account_id = $1 ORDER BY seed_id
	`, accountID)
	if err != nil {
		return nil, wrapErr("list conversation seeds", err)
	}
	defer rows.Close()

	var out []model.ConversationSeed
	for rows.Next() {
		var seed model.ConversationSeed
		if err := rows.Scan(&seed.ID, &seed.Name, &seed.URL, &seed.AccountID, &seed.CreatedAt); err != nil {
			return nil, wrapErr("scan conversation seed", err)
		}
		out = append(out, seed)
	}
	return out, wrapErr("list conversation seeds", rows.Err())
}
