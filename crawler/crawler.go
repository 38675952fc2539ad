// Package crawler declares the subset of the TDLib client the informer uses,
// so the pipeline can run against fakes in tests.
package crawler

import "github.com/zelenin/go-tdlib/client"

type TDLibClient interface {
	GetChatHistory(req *client.GetChatHistoryRequest) (*client.Messages, error)
	SearchPublicChat(req *client.SearchPublicChatRequest) (*client.Chat, error)
	GetChat(req *client.GetChatRequest) (*client.Chat, error)
	GetChats(req *client.GetChatsRequest) (*client.Chats, error)
	GetSupergroup(req *client.GetSupergroupRequest) (*client.Supergroup, error)
	GetSupergroupFullInfo(req *client.GetSupergroupFullInfoRequest) (*client.SupergroupFullInfo, error)
	GetBasicGroupFullInfo(req *client.GetBasicGroupFullInfoRequest) (*client.BasicGroupFullInfo, error)
	CheckChatInviteLink(req *client.CheckChatInviteLinkRequest) (*client.ChatInviteLinkInfo, error)
	JoinChat(req *client.JoinChatRequest) (*client.Ok, error)
	JoinChatByInviteLink(req *client.JoinChatByInviteLinkRequest) (*client.Chat, error)
	GetUser(req *client.GetUserRequest) (*client.User, error)
	SendMessage(req *client.SendMessageRequest) (*client.Message, error)
	ViewMessages(req *client.ViewMessagesRequest) (*client.Ok, error)
	Close() (*client.Ok, error)
	GetMe() (*client.User, error)
}
