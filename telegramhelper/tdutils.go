package telegramhelper

import (
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/zelenin/go-tdlib/client"
)

// ParseMessage reduces a TDLib message to the fields the pipeline works
// with. chat may be nil, in which case the conversation kind is unknown.
func ParseMessage(message *client.Message, chat *client.Chat) model.IncomingMessage {
	parsed := model.IncomingMessage{
		ChatID:         message.ChatId,
		ConversationID: model.NormalizeChatID(message.ChatId),
		MessageID:      message.Id,
		Kind:           ChatKind(chat),
		Sender:         ParseSender(message.SenderId),
		IsMention:      message.ContainsUnreadMention,
		IsScheduled:    message.SchedulingState != nil,
		IsReply:        message.ReplyTo != nil,
		IsBot:          message.ViaBotUserId != 0,
		Date:           time.Unix(int64(message.Date), 0),
	}

	if message.ForwardInfo != nil {
		parsed.IsForwarded = true
		if origin, ok := message.ForwardInfo.Origin.(*client.MessageOriginChannel); ok {
			parsed.ForwardedFromChatID = origin.ChatId
		}
	}

	if text := messageText(message.Content); text != nil {
		parsed.Text = text.Text
		parsed.Links = entityLinks(text)
	}
	return parsed
}

// ChatKind classifies a chat the way the informer stores it: supergroups and
// broadcast channels are channels, basic groups are groups.
func ChatKind(chat *client.Chat) model.ConversationKind {
	if chat == nil {
		return model.KindOther
	}
	switch chat.Type.(type) {
	case *client.ChatTypeSupergroup:
		return model.KindChannel
	case *client.ChatTypeBasicGroup:
		return model.KindGroup
	case *client.ChatTypePrivate, *client.ChatTypeSecret:
		return model.KindPrivate
	default:
		return model.KindOther
	}
}

// ParseSender turns a TDLib message sender into the Sender variant.
func ParseSender(sender client.MessageSender) model.Sender {
	switch s := sender.(type) {
	case *client.MessageSenderUser:
		return model.Sender{Kind: model.SenderUser, ID: s.UserId}
	case *client.MessageSenderChat:
		return model.Sender{Kind: model.SenderChannel, ID: s.ChatId}
	default:
		return model.Sender{Kind: model.SenderUnknown}
	}
}

// messageText returns the text or caption of a message, if it has one.
func messageText(content client.MessageContent) *client.FormattedText {
	switch c := content.(type) {
	case *client.MessageText:
		return c.Text
	case *client.MessagePhoto:
		return c.Caption
	case *client.MessageVideo:
		return c.Caption
	case *client.MessageDocument:
		return c.Caption
	case *client.MessageAnimation:
		return c.Caption
	case *client.MessageAudio:
		return c.Caption
	case *client.MessageVoiceNote:
		return c.Caption
	default:
		return nil
	}
}

// entityLinks collects the URLs hidden behind text links. Plain URLs are
// already part of the text.
func entityLinks(text *client.FormattedText) []string {
	var links []string
	for _, entity := range text.Entities {
		if link, ok := entity.Type.(*client.TextEntityTypeTextUrl); ok {
			links = append(links, link.Url)
		}
	}
	return links
}
