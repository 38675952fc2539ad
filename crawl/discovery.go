package crawl

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/rs/zerolog/log"
)

var (
	telegramLinkRegex = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?(?:t|telegram)\.me/(joinchat/|\+)?([A-Za-z0-9_\-]+)`)
	usernameRegex     = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]{2,}$`)
)

// Path segments on t.me that never name a conversation.
var reservedPaths = map[string]bool{
	"s":           true,
	"c":           true,
	"addstickers": true,
	"addemoji":    true,
	"share":       true,
	"proxy":       true,
	"socks":       true,
	"iv":          true,
	"joinchat":    true,
	"login":       true,
}

// OverflowHandler receives discoveries dropped because the account is at
// capacity. A second account would hook in here.
type OverflowHandler interface {
	Overflow(req model.JoinRequest)
}

type logOverflow struct{}

func (logOverflow) Overflow(req model.JoinRequest) {
	log.Warn().
		Str("request_kind", req.Kind.String()).
		Str("reference", req.Reference).
		Int64("chat_id", req.ChatID).
		Msg("Conversation capacity reached, dropping discovery")
}

// ErrAtCapacity is returned for a join dropped because the account already
// tracks as many conversations as it may.
var ErrAtCapacity = errors.New("conversation capacity reached")

// Candidates returns the join requests referenced by text, the URLs carried
// in its entities, and the forwarded-from conversation, stamped with now.
// Nothing is filtered here: the join processor decides what is admitted.
func Candidates(text string, links []string, forwardedFromChatID int64, now time.Time) []model.JoinRequest {
	candidates := ExtractJoinRequests(text, links)
	if forwardedFromChatID != 0 {
		candidates = append(candidates, model.JoinRequest{Kind: model.JoinPublic, ChatID: forwardedFromChatID})
	}
	for i := range candidates {
		candidates[i].EnqueuedAt = now
	}
	return candidates
}

// Discoverer decides which queued candidates are worth a join attempt. It
// remembers every admitted reference and enforces the capacity ceiling.
// It belongs to the join processor goroutine and is not safe for
// concurrent use.
type Discoverer struct {
	registry *Registry
	capacity int
	overflow OverflowHandler
	seen     map[string]struct{}
}

// NewDiscoverer creates a discoverer bounded by capacity tracked conversations.
func NewDiscoverer(registry *Registry, capacity int, overflow OverflowHandler) *Discoverer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if overflow == nil {
		overflow = logOverflow{}
	}
	return &Discoverer{
		registry: registry,
		capacity: capacity,
		overflow: overflow,
		seen:     make(map[string]struct{}),
	}
}

// Admit reports whether req should be joined. References admitted before and
// forwarded-from conversations already tracked are skipped. When the
// registry is full the request goes to the overflow handler and is not
// remembered, so it can be admitted once room frees up.
func (d *Discoverer) Admit(req model.JoinRequest) bool {
	key := requestKey(req)
	if _, ok := d.seen[key]; ok {
		return false
	}
	if req.ChatID != 0 && d.registry.Contains(model.NormalizeChatID(req.ChatID)) {
		return false
	}
	if d.registry.Len() >= d.capacity {
		d.overflow.Overflow(req)
		return false
	}
	d.seen[key] = struct{}{}
	log.Info().
		Str("request_kind", req.Kind.String()).
		Str("reference", req.Reference).
		Int64("chat_id", req.ChatID).
		Msg("Discovered conversation")
	return true
}

// HasRoom reports whether conversationID may be registered. A conversation
// already tracked always fits. Otherwise req is handed to the overflow
// handler and forgotten when the registry is full.
func (d *Discoverer) HasRoom(req model.JoinRequest, conversationID int64) bool {
	if d.registry.Contains(conversationID) || d.registry.Len() < d.capacity {
		return true
	}
	d.overflow.Overflow(req)
	d.Forget(req)
	return false
}

// Forget lets a reference be admitted again, for instance after a join
// that was dropped because of throttling.
func (d *Discoverer) Forget(req model.JoinRequest) {
	delete(d.seen, requestKey(req))
}

// ExtractJoinRequests classifies every t.me reference in text and links.
// The result holds each reference once, private invites first.
func ExtractJoinRequests(text string, links []string) []model.JoinRequest {
	sources := append([]string{text}, links...)

	var private, public []model.JoinRequest
	privateSeen := make(map[string]bool)
	publicSeen := make(map[string]bool)

	// Invite links first so they are excluded from the public pass.
	for _, src := range sources {
		for _, m := range telegramLinkRegex.FindAllStringSubmatch(src, -1) {
			if m[1] == "" {
				continue
			}
			hash := m[2]
			if privateSeen[hash] {
				continue
			}
			privateSeen[hash] = true
			private = append(private, model.JoinRequest{
				Kind:      model.JoinPrivate,
				Reference: "https://t.me/joinchat/" + hash,
			})
		}
	}

	for _, src := range sources {
		for _, m := range telegramLinkRegex.FindAllStringSubmatch(src, -1) {
			if m[1] != "" {
				continue
			}
			name := m[2]
			lower := strings.ToLower(name)
			if reservedPaths[lower] || !usernameRegex.MatchString(name) || publicSeen[lower] {
				continue
			}
			publicSeen[lower] = true
			public = append(public, model.JoinRequest{Kind: model.JoinPublic, Reference: name})
		}
	}

	return append(private, public...)
}

func requestKey(req model.JoinRequest) string {
	switch {
	case req.Kind == model.JoinPrivate:
		return "private:" + req.Hash()
	case req.ChatID != 0:
		return "chat:" + strconv.FormatInt(model.NormalizeChatID(req.ChatID), 10)
	default:
		return "public:" + strings.ToLower(req.Reference)
	}
}
