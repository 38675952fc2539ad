package telegramhelper

import (
	"errors"

	"github.com/zelenin/go-tdlib/client"
)

// fakeTDLibClient implements crawler.TDLibClient with overridable funcs.
// Calls without a func return an error.
type fakeTDLibClient struct {
	GetChatHistoryFunc        func(req *client.GetChatHistoryRequest) (*client.Messages, error)
	SearchPublicChatFunc      func(req *client.SearchPublicChatRequest) (*client.Chat, error)
	GetChatFunc               func(req *client.GetChatRequest) (*client.Chat, error)
	GetChatsFunc              func(req *client.GetChatsRequest) (*client.Chats, error)
	GetSupergroupFunc         func(req *client.GetSupergroupRequest) (*client.Supergroup, error)
	GetSupergroupFullInfoFunc func(req *client.GetSupergroupFullInfoRequest) (*client.SupergroupFullInfo, error)
	GetBasicGroupFullInfoFunc func(req *client.GetBasicGroupFullInfoRequest) (*client.BasicGroupFullInfo, error)
	CheckChatInviteLinkFunc   func(req *client.CheckChatInviteLinkRequest) (*client.ChatInviteLinkInfo, error)
	JoinChatFunc              func(req *client.JoinChatRequest) (*client.Ok, error)
	JoinChatByInviteLinkFunc  func(req *client.JoinChatByInviteLinkRequest) (*client.Chat, error)
	GetUserFunc               func(req *client.GetUserRequest) (*client.User, error)
	SendMessageFunc           func(req *client.SendMessageRequest) (*client.Message, error)
	ViewMessagesFunc          func(req *client.ViewMessagesRequest) (*client.Ok, error)
}

var errNotImplemented = errors.New("not implemented in fake")

func (f *fakeTDLibClient) GetChatHistory(req *client.GetChatHistoryRequest) (*client.Messages, error) {
	if f.GetChatHistoryFunc != nil {
		return f.GetChatHistoryFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) SearchPublicChat(req *client.SearchPublicChatRequest) (*client.Chat, error) {
	if f.SearchPublicChatFunc != nil {
		return f.SearchPublicChatFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) GetChat(req *client.GetChatRequest) (*client.Chat, error) {
	if f.GetChatFunc != nil {
		return f.GetChatFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) GetChats(req *client.GetChatsRequest) (*client.Chats, error) {
	if f.GetChatsFunc != nil {
		return f.GetChatsFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) GetSupergroup(req *client.GetSupergroupRequest) (*client.Supergroup, error) {
	if f.GetSupergroupFunc != nil {
		return f.GetSupergroupFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) GetSupergroupFullInfo(req *client.GetSupergroupFullInfoRequest) (*client.SupergroupFullInfo, error) {
	if f.GetSupergroupFullInfoFunc != nil {
		return f.GetSupergroupFullInfoFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) GetBasicGroupFullInfo(req *client.GetBasicGroupFullInfoRequest) (*client.BasicGroupFullInfo, error) {
	if f.GetBasicGroupFullInfoFunc != nil {
		return f.GetBasicGroupFullInfoFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) CheckChatInviteLink(req *client.CheckChatInviteLinkRequest) (*client.ChatInviteLinkInfo, error) {
	if f.CheckChatInviteLinkFunc != nil {
		return f.CheckChatInviteLinkFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) JoinChat(req *client.JoinChatRequest) (*client.Ok, error) {
	if f.JoinChatFunc != nil {
		return f.JoinChatFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) JoinChatByInviteLink(req *client.JoinChatByInviteLinkRequest) (*client.Chat, error) {
	if f.JoinChatByInviteLinkFunc != nil {
		return f.JoinChatByInviteLinkFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) GetUser(req *client.GetUserRequest) (*client.User, error) {
	if f.GetUserFunc != nil {
		return f.GetUserFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) SendMessage(req *client.SendMessageRequest) (*client.Message, error) {
	if f.SendMessageFunc != nil {
		return f.SendMessageFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) ViewMessages(req *client.ViewMessagesRequest) (*client.Ok, error) {
	if f.ViewMessagesFunc != nil {
		return f.ViewMessagesFunc(req)
	}
	return nil, errNotImplemented
}

func (f *fakeTDLibClient) Close() (*client.Ok, error) { return &client.Ok{}, nil }

func (f *fakeTDLibClient) GetMe() (*client.User, error) {
	return &client.User{Id: 1, FirstName: "Test", LastName: "Account"}, nil
}

func channelChat(chatID, supergroupID int64, title string, isChannel bool) *client.Chat {
	return &client.Chat{
		Id:    chatID,
		Title: title,
		Type:  &client.ChatTypeSupergroup{SupergroupId: supergroupID, IsChannel: isChannel},
	}
}
