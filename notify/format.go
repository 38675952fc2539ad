package notify

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/researchaccelerator-hub/telegram-informer/model"
)

// TimestampLayout is how event times appear in alerts and sheet rows.
const TimestampLayout = "2006-01-02 15:04:05"

// FormatAlert renders the chat alert for a matched event.
func FormatAlert(event model.MatchedEvent) string {
	return fmt.Sprintf("⚠️ \"%s\" mentioned by %s in => \"%s\" url: %s\n\n Message:\n\"%s\ntimestamp: %s",
		keywordName(event.Keyword),
		DisplayName(event.User),
		event.Metadata.Title,
		event.Metadata.URL,
		event.Message.Text,
		event.Timestamp.Format(TimestampLayout),
	)
}

// SheetRow returns the spreadsheet columns for a matched event.
func SheetRow(event model.MatchedEvent) []interface{} {
	msg := event.Message
	return []interface{}{
		event.User.ID,
		event.User.Username,
		msg.ConversationID,
		event.Metadata.Title,
		event.Metadata.URL,
		keywordName(event.Keyword),
		msg.Text,
		msg.IsMention,
		msg.IsScheduled,
		msg.IsForwarded,
		msg.IsReply,
		msg.IsBot,
		msg.Kind == model.KindChannel,
		msg.Kind == model.KindGroup,
		msg.Kind == model.KindPrivate,
		event.Metadata.ParticipantCount,
		event.Timestamp.Format(TimestampLayout),
	}
}

// DisplayName picks the best human-readable name of a user: the username,
// then the full name, then the numeric id.
func DisplayName(u model.ChatUser) string {
	if u.Username != "" {
		return u.Username
	}
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	return strconv.FormatInt(u.ID, 10)
}

func keywordName(rule model.KeywordRule) string {
	if rule.Label != "" {
		return rule.Label
	}
	if rule.ID == model.CatchAllKeywordID {
		return "*"
	}
	return rule.Pattern
}
