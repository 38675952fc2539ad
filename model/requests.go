package model

import (
	"strings"
	"time"
)

// JoinKind discriminates public joins from invite-hash imports.
type JoinKind int

const (
	JoinPublic JoinKind = iota
	JoinPrivate
)

func (k JoinKind) String() string {
	if k == JoinPrivate {
		return "private"
	}
	return "public"
}

// JoinRequest asks the foreground join processor to join a conversation.
// Values are immutable once enqueued.
type JoinRequest struct {
	Kind JoinKind
	// Reference is a username for public joins and the invite URL for
	// private ones.
	Reference string
	// ChatID is set for public candidates that are only known by id, such as
	// the source of a forwarded message.
	ChatID     int64
	EnqueuedAt time.Time
}

// Hash returns the invite hash of a private join request.
func (r JoinRequest) Hash() string {
	if r.Kind != JoinPrivate {
		return ""
	}
	ref := r.Reference
	if i := strings.Index(ref, "joinchat/"); i >= 0 {
		return strings.Trim(ref[i+len("joinchat/"):], "/ ")
	}
	if i := strings.LastIndex(ref, "/+"); i >= 0 {
		return strings.Trim(ref[i+2:], "/ ")
	}
	return ""
}

// ScrapeRequest asks the background scraper to backfill a conversation.
type ScrapeRequest struct {
	ConversationID int64
	ChatID         int64
	// LogTime marks when the conversation was queued and is used as the
	// provenance timestamp of the ingested history.
	LogTime time.Time
}
