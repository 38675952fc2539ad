package model

import (
	"strconv"
	"time"
)

// supergroupIDOffset is the offset TDLib adds to supergroup and channel ids
// before negating them into chat ids (-100XXXXXXXXXX).
const supergroupIDOffset int64 = 1000000000000

// NormalizeChatID converts a TDLib chat id into the canonical non-negative
// conversation id. Supergroups and channels lose their -100 prefix, basic
// groups lose their sign.
func NormalizeChatID(chatID int64) int64 {
	if chatID < 0 {
		chatID = -chatID
	}
	if chatID > supergroupIDOffset {
		return chatID - supergroupIDOffset
	}
	return chatID
}

// ConversationRecord is a persisted group or channel the account monitors.
type ConversationRecord struct {
	ID          int64     `json:"conversation_id" db:"conversation_id"`
	Name        string    `json:"name" db:"name"`
	Title       string    `json:"title" db:"title"`
	URL         string    `json:"url,omitempty" db:"url"`
	IsGroup     bool      `json:"is_group" db:"is_group"`
	IsPrivate   bool      `json:"is_private" db:"is_private"`
	IsBroadcast bool      `json:"is_broadcast" db:"is_broadcast"`
	IsMegagroup bool      `json:"is_megagroup" db:"is_megagroup"`
	IsEnabled   bool      `json:"is_enabled" db:"is_enabled"`
	AccountID   int64     `json:"account_id" db:"account_id"`
	AccessHash  string    `json:"access_hash,omitempty" db:"access_hash"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ChannelMetadataEntry is the cached, non-persisted view of a conversation.
// A zero ParticipantCount means the count is unknown.
type ChannelMetadataEntry struct {
	ConversationID   int64     `json:"conversation_id"`
	Title            string    `json:"title"`
	URL              string    `json:"url"`
	ParticipantCount int       `json:"participant_count"`
	ExpiresAt        time.Time `json:"expires_at"`
}

// Stale reports whether the entry must be refreshed before use.
func (e ChannelMetadataEntry) Stale(now time.Time) bool {
	return now.After(e.ExpiresAt) || e.ParticipantCount == 0
}

// Account is the Telegram account the informer runs as.
type Account struct {
	ID           int64     `json:"account_id" yaml:"id" db:"account_id"`
	APIID        string    `json:"account_api_id" yaml:"api_id" db:"account_api_id"`
	APIHash      string    `json:"account_api_hash" yaml:"api_hash" db:"account_api_hash"`
	FirstName    string    `json:"account_first_name" yaml:"first_name" db:"account_first_name"`
	LastName     string    `json:"account_last_name" yaml:"last_name" db:"account_last_name"`
	Username     string    `json:"account_user_name" yaml:"username" db:"account_user_name"`
	Phone        string    `json:"account_phone" yaml:"phone" db:"account_phone"`
	IsBot        bool      `json:"account_is_bot" yaml:"-" db:"account_is_bot"`
	IsVerified   bool      `json:"account_is_verified" yaml:"-" db:"account_is_verified"`
	IsRestricted bool      `json:"account_is_restricted" yaml:"-" db:"account_is_restricted"`
	IsEnabled    bool      `json:"account_is_enabled" yaml:"-" db:"account_is_enabled"`
	CreatedAt    time.Time `json:"account_tcreate" yaml:"-" db:"account_tcreate"`
}

// SupergroupChatID returns the TDLib chat id of the supergroup or channel
// with canonical id id.
func SupergroupChatID(id int64) int64 {
	return -(supergroupIDOffset + id)
}

// BasicGroupChatID returns the TDLib chat id of the basic group with
// canonical id id.
func BasicGroupChatID(id int64) int64 {
	return -id
}

// ResolvedConversation is what the provider knows about a conversation after
// resolving or joining it.
type ResolvedConversation struct {
	ChatID       int64
	Title        string
	Username     string
	InviteURL    string
	IsGroup      bool
	IsBroadcast  bool
	IsMegagroup  bool
	IsPrivate    bool
	Participants int
}

// URL is the public link of the conversation, or its invite link.
func (r ResolvedConversation) URL() string {
	if r.Username != "" {
		return "https://t.me/" + r.Username
	}
	return r.InviteURL
}

// Record builds the persisted form of the conversation.
func (r ResolvedConversation) Record(accountID int64, now time.Time) ConversationRecord {
	name := r.Username
	if name == "" {
		name = r.Title
	}
	return ConversationRecord{
		ID:          NormalizeChatID(r.ChatID),
		Name:        name,
		Title:       r.Title,
		URL:         r.URL(),
		IsGroup:     r.IsGroup,
		IsPrivate:   r.IsPrivate,
		IsBroadcast: r.IsBroadcast,
		IsMegagroup: r.IsMegagroup,
		IsEnabled:   true,
		AccountID:   accountID,
		AccessHash:  strconv.FormatInt(r.ChatID, 10),
		CreatedAt:   now,
	}
}

// Metadata builds the cache entry for the conversation.
func (r ResolvedConversation) Metadata() ChannelMetadataEntry {
	return ChannelMetadataEntry{
		ConversationID:   NormalizeChatID(r.ChatID),
		Title:            r.Title,
		URL:              r.URL(),
		ParticipantCount: r.Participants,
	}
}

// ConversationSeed is a configured conversation known only by its link. It
// is joined at startup unless a stored conversation already carries the link.
type ConversationSeed struct {
	ID        int64     `json:"seed_id" db:"seed_id"`
	Name      string    `json:"seed_name" db:"seed_name"`
	URL       string    `json:"seed_url" db:"seed_url"`
	AccountID int64     `json:"account_id" db:"account_id"`
	CreatedAt time.Time `json:"seed_tcreate" db:"seed_tcreate"`
}
