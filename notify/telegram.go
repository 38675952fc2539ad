package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/researchaccelerator-hub/telegram-informer/model"
)

// TextSender sends a plain text message into a chat. The account session's
// Provider satisfies it.
type TextSender interface {
	SendText(ctx context.Context, chatID int64, text string) error
}

// LiveChatNotifier posts alerts into the monitor chat through the account
// session.
type LiveChatNotifier struct {
	sender TextSender
	chatID int64
}

// NewLiveChatNotifier creates a notifier that alerts chatID.
func NewLiveChatNotifier(sender TextSender, chatID int64) *LiveChatNotifier {
	return &LiveChatNotifier{sender: sender, chatID: chatID}
}

func (n *LiveChatNotifier) Name() string { return "telegram" }

func (n *LiveChatNotifier) Notify(ctx context.Context, event model.MatchedEvent) error {
	if err := n.sender.SendText(ctx, n.chatID, FormatAlert(event)); err != nil {
		return fmt.Errorf("failed to send alert to chat %d: %w", n.chatID, err)
	}
	return nil
}

// botSender is the part of tgbotapi.BotAPI the bot notifier uses.
type botSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// BotNotifier posts alerts into the monitor chat through the Bot API.
type BotNotifier struct {
	bot    botSender
	chatID int64
}

// NewBotNotifier authenticates token against the Bot API.
func NewBotNotifier(token string, chatID int64) (*BotNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate bot: %w", err)
	}
	return &BotNotifier{bot: bot, chatID: chatID}, nil
}

func (n *BotNotifier) Name() string { return "telegram" }

func (n *BotNotifier) Notify(ctx context.Context, event model.MatchedEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, FormatAlert(event))
	msg.DisableWebPagePreview = true
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("bot failed to send alert to chat %d: %w", n.chatID, err)
	}
	return nil
}
