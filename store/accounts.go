package store

import (
	"context"
	"errors"

	"github.com/researchaccelerator-hub/telegram-informer/model"
)

// GetAccount returns the account with the given id.
func (s *Store) GetAccount(ctx context.Context, id int64) (model.Account, error) {
	var a model.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT account_id, account_api_id, account_api_hash, account_first_name, account_last_name,
			account_user_name, account_phone, account_is_bot, account_is_verified,
			account_is_restricted, account_is_enabled, account_tcreate
		FROM accounts WHERE account_id = $1
	`, id).Scan(&a.ID, &a.APIID, &a.APIHash, &a.FirstName, &a.LastName, &a.Username, &a.Phone,
		&a.IsBot, &a.IsVerified, &a.IsRestricted, &a.IsEnabled, &a.CreatedAt)
	return a, wrapErr("get account", err)
}

// UpsertAccount inserts the account or replaces its details.
func (s *Store) UpsertAccount(ctx context.Context, a model.Account) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (account_id, account_api_id, account_api_hash, account_first_name,
			account_last_name, account_user_name, account_phone, account_is_bot, account_is_verified,
			account_is_restricted, account_is_enabled, account_tcreate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (account_id) DO UPDATE SET
			account_api_id = excluded.account_api_id,
			account_api_hash = excluded.account_api_hash,
			account_first_name = excluded.account_first_name,
			account_last_name = excluded.account_last_name,
			account_user_name = excluded.account_user_name,
			account_phone = excluded.account_phone,
			account_is_enabled = excluded.account_is_enabled
	`, a.ID, a.APIID, a.APIHash, a.FirstName, a.LastName, a.Username, a.Phone, a.IsBot, a.IsVerified,
		a.IsRestricted, a.IsEnabled, a.CreatedAt)
	return wrapErr("upsert account", err)
}

// ListKeywords returns every keyword rule except the catch-all marker, in
// insertion order.
func (s *Store) ListKeywords(ctx context.Context) ([]model.KeywordRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT keyword_id, keyword_description, keyword_regex
		FROM keywords WHERE keyword_id <> $1 ORDER BY keyword_id
	`, model.CatchAllKeywordID)
	if err != nil {
		return nil, wrapErr("list keywords", err)
	}
	defer rows.Close()

	var out []model.KeywordRule
	for rows.Next() {
		var k model.KeywordRule
		if err := rows.Scan(&k.ID, &k.Label, &k.Pattern); err != nil {
			return nil, wrapErr("scan keyword", err)
		}
		out = append(out, k)
	}
	return out, wrapErr("list keywords", rows.Err())
}

// InsertKeyword stores a keyword rule and returns its id. A pattern that is
// already stored returns the existing id.
func (s *Store) InsertKeyword(ctx context.Context, k model.KeywordRule) (int64, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO keywords (keyword_description, keyword_regex) VALUES ($1, $2)
		RETURNING keyword_id
	`, k.Label, k.Pattern).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !isUniqueViolation(err) {
		return 0, wrapErr("insert keyword", err)
	}

	err = s.db.QueryRowContext(ctx, `SELECT keyword_id FROM keywords WHERE keyword_regex = $1`, k.Pattern).Scan(&id)
	return id, wrapErr("find keyword", err)
}

// AssignMonitor records that accountID monitors conversationID. Existing
// assignments are left alone.
func (s *Store) AssignMonitor(ctx context.Context, accountID, conversationID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO monitors (account_id, channel_id) VALUES ($1, $2)
		ON CONFLICT (account_id, channel_id) DO NOTHING
	`, accountID, conversationID)
	return wrapErr("assign monitor", err)
}

// CountMonitors returns how many conversations accountID monitors.
func (s *Store) CountMonitors(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM monitors WHERE account_id = $1`, accountID).Scan(&n)
	return n, wrapErr("count monitors", err)
}

// IsNotFound reports whether err means a lookup matched nothing.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
