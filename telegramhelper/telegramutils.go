package telegramhelper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/crawler"
	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/rs/zerolog/log"
	"github.com/zelenin/go-tdlib/client"
)

// Provider adapts one TDLib session to the operations the informer needs.
// Every error it returns has been passed through ClassifyError.
type Provider struct {
	client crawler.TDLibClient
}

// NewProvider wraps an initialized TDLib client.
func NewProvider(tdlibClient crawler.TDLibClient) *Provider {
	return &Provider{client: tdlibClient}
}

// Resolve looks up the conversation a join request points at without
// joining it.
func (p *Provider) Resolve(ctx context.Context, req model.JoinRequest) (model.ResolvedConversation, error) {
	if err := ctx.Err(); err != nil {
		return model.ResolvedConversation{}, err
	}

	switch {
	case req.Kind == model.JoinPrivate:
		if req.Hash() == "" {
			return model.ResolvedConversation{}, ErrEmptyInvite
		}
		info, err := p.client.CheckChatInviteLink(&client.CheckChatInviteLinkRequest{InviteLink: req.Reference})
		if err != nil {
			return model.ResolvedConversation{}, fmt.Errorf("failed to check invite link: %w", ClassifyError(err))
		}
		return model.ResolvedConversation{
			ChatID:       info.ChatId,
			Title:        info.Title,
			InviteURL:    req.Reference,
			IsGroup:      true,
			IsPrivate:    true,
			Participants: int(info.MemberCount),
		}, nil

	case req.ChatID != 0:
		chat, err := p.client.GetChat(&client.GetChatRequest{ChatId: req.ChatID})
		if err != nil {
			return model.ResolvedConversation{}, fmt.Errorf("failed to get chat %d: %w", req.ChatID, ClassifyError(err))
		}
		return p.describeChat(chat, false)

	default:
		username := strings.TrimPrefix(req.Reference, "@")
		if username == "" {
			return model.ResolvedConversation{}, ErrInvalidReference
		}
		chat, err := p.client.SearchPublicChat(&client.SearchPublicChatRequest{Username: username})
		if err != nil {
			return model.ResolvedConversation{}, fmt.Errorf("failed to resolve %s: %w", username, ClassifyError(err))
		}
		return p.describeChat(chat, false)
	}
}

// Join joins the resolved conversation. Public conversations are joined by
// chat id, private ones by importing the invite link.
func (p *Provider) Join(ctx context.Context, req model.JoinRequest, target model.ResolvedConversation) (model.ResolvedConversation, error) {
	if err := ctx.Err(); err != nil {
		return target, err
	}

	if req.Kind == model.JoinPrivate {
		chat, err := p.client.JoinChatByInviteLink(&client.JoinChatByInviteLinkRequest{InviteLink: req.Reference})
		if err != nil {
			return target, fmt.Errorf("failed to import invite: %w", ClassifyError(err))
		}
		joined, err := p.describeChat(chat, true)
		if err != nil {
			return target, err
		}
		joined.InviteURL = req.Reference
		if joined.Participants == 0 {
			joined.Participants = target.Participants
		}
		return joined, nil
	}

	if target.ChatID == 0 {
		return target, ErrInvalidReference
	}
	if _, err := p.client.JoinChat(&client.JoinChatRequest{ChatId: target.ChatID}); err != nil {
		return target, fmt.Errorf("failed to join chat %d: %w", target.ChatID, ClassifyError(err))
	}
	return target, nil
}

// ConversationMetadata resolves the title, link and participant count of a
// conversation by its canonical id.
func (p *Provider) ConversationMetadata(ctx context.Context, conversationID int64) (model.ChannelMetadataEntry, error) {
	if err := ctx.Err(); err != nil {
		return model.ChannelMetadataEntry{}, err
	}
	chat, err := p.chatByConversationID(conversationID)
	if err != nil {
		return model.ChannelMetadataEntry{}, err
	}
	resolved, err := p.describeChat(chat, false)
	if err != nil {
		return model.ChannelMetadataEntry{}, err
	}
	count, err := p.memberCount(chat)
	if err != nil {
		// title and url are still good
		resolved.Participants = 0
		return resolved.Metadata(), err
	}
	resolved.Participants = count
	return resolved.Metadata(), nil
}

// ChatUser describes the author of a message. Channel and unknown senders
// map onto the shared channel placeholder user.
func (p *Provider) ChatUser(ctx context.Context, sender model.Sender) (model.ChatUser, error) {
	if err := ctx.Err(); err != nil {
		return model.ChatUser{}, err
	}
	switch sender.Kind {
	case model.SenderUser:
		user, err := p.client.GetUser(&client.GetUserRequest{UserId: sender.ID})
		if err != nil {
			return model.ChatUser{ID: sender.ID}, fmt.Errorf("failed to get user %d: %w", sender.ID, ClassifyError(err))
		}
		chatUser := model.ChatUser{
			ID:        user.Id,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Phone:     user.PhoneNumber,
		}
		if user.Usernames != nil && len(user.Usernames.ActiveUsernames) > 0 {
			chatUser.Username = user.Usernames.ActiveUsernames[0]
		}
		if _, ok := user.Type.(*client.UserTypeBot); ok {
			chatUser.IsBot = true
		}
		return chatUser, nil

	case model.SenderChannel:
		chatUser := model.ChannelUser()
		if chat, err := p.client.GetChat(&client.GetChatRequest{ChatId: sender.ID}); err == nil && chat != nil {
			chatUser.Username = chat.Title
		}
		return chatUser, nil

	default:
		return model.ChannelUser(), nil
	}
}

// Chat returns the TDLib chat for a raw chat id.
func (p *Provider) Chat(ctx context.Context, chatID int64) (*client.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	chat, err := p.client.GetChat(&client.GetChatRequest{ChatId: chatID})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat %d: %w", chatID, ClassifyError(err))
	}
	return chat, nil
}

// ParseMessage resolves the chat a live message belongs to and parses it.
func (p *Provider) ParseMessage(ctx context.Context, message *client.Message) (model.IncomingMessage, error) {
	chat, err := p.Chat(ctx, message.ChatId)
	if err != nil {
		return ParseMessage(message, nil), err
	}
	return ParseMessage(message, chat), nil
}

// HistoryPage fetches up to 100 messages older than fromMessageID, newest
// first. A fromMessageID of 0 starts at the latest message.
func (p *Provider) HistoryPage(ctx context.Context, chatID, fromMessageID int64) ([]model.IncomingMessage, error) {
	chat, err := p.Chat(ctx, chatID)
	if err != nil {
		return nil, err
	}

	log.Debug().Int64("chat_id", chatID).Int64("from_message_id", fromMessageID).Msg("Fetching history page")
	history, err := p.client.GetChatHistory(&client.GetChatHistoryRequest{
		ChatId:        chatID,
		FromMessageId: fromMessageID,
		Limit:         100,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat history for %d: %w", chatID, ClassifyError(err))
	}

	messages := make([]model.IncomingMessage, 0, len(history.Messages))
	for _, m := range history.Messages {
		if m == nil {
			continue
		}
		messages = append(messages, ParseMessage(m, chat))
	}
	return messages, nil
}

// MarkRead marks a message as read in its chat.
func (p *Provider) MarkRead(ctx context.Context, chatID, messageID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.client.ViewMessages(&client.ViewMessagesRequest{
		ChatId:     chatID,
		MessageIds: []int64{messageID},
		ForceRead:  true,
	})
	if err != nil {
		return fmt.Errorf("failed to mark message %d read: %w", messageID, ClassifyError(err))
	}
	return nil
}

// SendText posts a plain text message to chatID.
func (p *Provider) SendText(ctx context.Context, chatID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := p.client.SendMessage(&client.SendMessageRequest{
		ChatId: chatID,
		InputMessageContent: &client.InputMessageText{
			Text: &client.FormattedText{Text: text},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send message to %d: %w", chatID, ClassifyError(err))
	}
	return nil
}

// ScanDialogs lists the groups and channels the account has open, as
// conversation records owned by accountID.
func (p *Provider) ScanDialogs(ctx context.Context, accountID int64, limit int) ([]model.ConversationRecord, error) {
	chats, err := p.client.GetChats(&client.GetChatsRequest{
		ChatList: &client.ChatListMain{},
		Limit:    int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", ClassifyError(err))
	}

	now := time.Now()
	var records []model.ConversationRecord
	for _, chatID := range chats.ChatIds {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		chat, err := p.client.GetChat(&client.GetChatRequest{ChatId: chatID})
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("Skipping dialog that could not be loaded")
			continue
		}
		if ChatKind(chat) == model.KindPrivate || ChatKind(chat) == model.KindOther {
			continue
		}
		resolved, err := p.describeChat(chat, false)
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("Skipping dialog that could not be described")
			continue
		}
		record := resolved.Record(accountID, now)
		// dialogs carry the display name, not the username
		record.Name = chat.Title
		record.IsGroup = true
		records = append(records, record)
		log.Info().Int64("conversation_id", record.ID).Str("title", chat.Title).Msg("Found open dialog")
	}
	return records, nil
}

// describeChat fills in the flags and username of a chat. When withCount is
// set the participant count is fetched too; failures there are not fatal.
func (p *Provider) describeChat(chat *client.Chat, withCount bool) (model.ResolvedConversation, error) {
	if chat == nil {
		return model.ResolvedConversation{}, ErrInvalidReference
	}
	resolved := model.ResolvedConversation{ChatID: chat.Id, Title: chat.Title}

	switch t := chat.Type.(type) {
	case *client.ChatTypeSupergroup:
		resolved.IsBroadcast = t.IsChannel
		resolved.IsMegagroup = !t.IsChannel
		resolved.IsGroup = !t.IsChannel
		supergroup, err := p.client.GetSupergroup(&client.GetSupergroupRequest{SupergroupId: t.SupergroupId})
		if err == nil && supergroup != nil {
			if supergroup.Usernames != nil && len(supergroup.Usernames.ActiveUsernames) > 0 {
				resolved.Username = supergroup.Usernames.ActiveUsernames[0]
			}
			resolved.Participants = int(supergroup.MemberCount)
		}
	case *client.ChatTypeBasicGroup:
		resolved.IsGroup = true
	default:
		return resolved, fmt.Errorf("chat %d is not a group or channel: %w", chat.Id, ErrInvalidReference)
	}
	resolved.IsPrivate = resolved.Username == ""

	if withCount && resolved.Participants == 0 {
		if count, err := p.memberCount(chat); err == nil {
			resolved.Participants = count
		}
	}
	return resolved, nil
}

func (p *Provider) memberCount(chat *client.Chat) (int, error) {
	switch v := chat.Type.(type) {
	case *client.ChatTypeSupergroup:
		fullInfo, err := p.client.GetSupergroupFullInfo(&client.GetSupergroupFullInfoRequest{
			SupergroupId: v.SupergroupId,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to get supergroup info: %w", ClassifyError(err))
		}
		return int(fullInfo.MemberCount), nil

	case *client.ChatTypeBasicGroup:
		fullInfo, err := p.client.GetBasicGroupFullInfo(&client.GetBasicGroupFullInfoRequest{
			BasicGroupId: v.BasicGroupId,
		})
		if err != nil {
			return 0, fmt.Errorf("failed to get basic group info: %w", ClassifyError(err))
		}
		return len(fullInfo.Members), nil

	default:
		return 0, fmt.Errorf("chat is not a group or channel")
	}
}

// chatByConversationID finds the chat for a canonical id, trying the
// supergroup form first and the basic group form second.
func (p *Provider) chatByConversationID(conversationID int64) (*client.Chat, error) {
	chat, err := p.client.GetChat(&client.GetChatRequest{ChatId: model.SupergroupChatID(conversationID)})
	if err == nil {
		return chat, nil
	}
	chat, basicErr := p.client.GetChat(&client.GetChatRequest{ChatId: model.BasicGroupChatID(conversationID)})
	if basicErr == nil {
		return chat, nil
	}
	return nil, fmt.Errorf("failed to find conversation %d: %w", conversationID, ClassifyError(err))
}
