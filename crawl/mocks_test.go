package crawl

import (
	"context"
	"sync"
	"time"

	"github.com/researchaccelerator-hub/telegram-informer/model"
	"github.com/researchaccelerator-hub/telegram-informer/store"
)

type fakeJoinProvider struct {
	ResolveFunc func(req model.JoinRequest) (model.ResolvedConversation, error)
	JoinFunc    func(req model.JoinRequest, target model.ResolvedConversation) (model.ResolvedConversation, error)
	joins       int
}

func (f *fakeJoinProvider) Resolve(_ context.Context, req model.JoinRequest) (model.ResolvedConversation, error) {
	if f.ResolveFunc != nil {
		return f.ResolveFunc(req)
	}
	return model.ResolvedConversation{ChatID: -1000000000000 - int64(len(req.Reference)), Title: req.Reference, Username: req.Reference}, nil
}

func (f *fakeJoinProvider) Join(_ context.Context, req model.JoinRequest, target model.ResolvedConversation) (model.ResolvedConversation, error) {
	f.joins++
	if f.JoinFunc != nil {
		return f.JoinFunc(req, target)
	}
	return target, nil
}

type fakeConversationStore struct {
	mu       sync.Mutex
	upserts  []model.ConversationRecord
	disabled []int64
	err      error
}

func (f *fakeConversationStore) UpsertConversation(_ context.Context, record model.ConversationRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts = append(f.upserts, record)
	return f.err
}

func (f *fakeConversationStore) DisableConversation(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disabled = append(f.disabled, id)
	return nil
}

// recordingSleeper stands in for SleepFunc and returns immediately.
type recordingSleeper struct {
	mu    sync.Mutex
	naps  []time.Duration
	onNap func(d time.Duration)
}

func (r *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.naps = append(r.naps, d)
	hook := r.onNap
	r.mu.Unlock()
	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

func (r *recordingSleeper) Naps() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.naps...)
}

type fakeHistoryProvider struct {
	pages     map[int64][]model.IncomingMessage
	pageErr   error
	userErr   error
	userCalls int
	requests  []int64
}

func (f *fakeHistoryProvider) HistoryPage(_ context.Context, chatID, fromMessageID int64) ([]model.IncomingMessage, error) {
	f.requests = append(f.requests, fromMessageID)
	if f.pageErr != nil {
		return nil, f.pageErr
	}
	return f.pages[fromMessageID], nil
}

func (f *fakeHistoryProvider) ChatUser(_ context.Context, sender model.Sender) (model.ChatUser, error) {
	f.userCalls++
	if f.userErr != nil {
		return model.ChatUser{}, f.userErr
	}
	if sender.Kind != model.SenderUser {
		return model.ChannelUser(), nil
	}
	return model.ChatUser{ID: sender.ID, Username: "user"}, nil
}

type fakeMessageStore struct {
	users     []model.ChatUser
	messages  []model.IngestedMessage
	duplicate map[int64]bool
}

func (f *fakeMessageStore) EnsureChatUser(_ context.Context, user model.ChatUser) error {
	f.users = append(f.users, user)
	return nil
}

func (f *fakeMessageStore) RecordMessage(_ context.Context, msg model.IngestedMessage) (model.NotificationRecord, error) {
	if f.duplicate[msg.ProviderMessageID] {
		return model.NotificationRecord{}, store.ErrDuplicate
	}
	f.messages = append(f.messages, msg)
	return model.NotificationRecord{MessageID: int64(len(f.messages)), KeywordID: *msg.KeywordID}, nil
}
