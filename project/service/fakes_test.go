package service

import (
	"context"
	"errors"
	"sync"

	"slack-ai-gateway/project/domain"
)

type postedMessage struct {
	Channel  string
	ThreadTS string
	Text     string
}

// fakeSlack は SlackPort のテスト用実装です
type fakeSlack struct {
	mu sync.Mutex

	replies    []domain.ThreadReply
	repliesErr error
	postErr    error
	promptsErr error

	nextTS  []string
	posts   []postedMessage
	prompts [][]string
	fetches int
}

func (f *fakeSlack) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, postedMessage{Channel: channelID, ThreadTS: threadTS, Text: text})
	if f.postErr != nil {
		return "", f.postErr
	}
	ts := "9999.0001"
	if len(f.nextTS) > 0 {
		ts, f.nextTS = f.nextTS[0], f.nextTS[1:]
	}
	return ts, nil
}

func (f *fakeSlack) ConversationReplies(ctx context.Context, channelID, threadTS string) ([]domain.ThreadReply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	return f.replies, f.repliesErr
}

func (f *fakeSlack) SetSuggestedPrompts(ctx context.Context, channelID, threadTS string, prompts []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, prompts)
	return f.promptsErr
}

func (f *fakeSlack) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.posts) + len(f.prompts) + f.fetches
}

// fakeQueue は QueuePort のテスト用実装です
type fakeQueue struct {
	mu    sync.Mutex
	err   error
	items []domain.PostedWorkItem
}

func (f *fakeQueue) Publish(ctx context.Context, item domain.PostedWorkItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.items = append(f.items, item)
	return nil
}

// fakeResolver は Resolver のテスト用実装です（未登録の URL はエラー）
type fakeResolver struct {
	redirects map[string]string
}

func (f fakeResolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	if to, ok := f.redirects[rawURL]; ok {
		return to, nil
	}
	return "", errors.New("resolve failed")
}

// fakeLedger は EventLedger のテスト用実装です
type fakeLedger struct {
	mu   sync.Mutex
	seen map[string]bool
	err  error
}

func (f *fakeLedger) Claim(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	if f.seen == nil {
		f.seen = map[string]bool{}
	}
	if f.seen[key] {
		return domain.ErrDuplicate
	}
	f.seen[key] = true
	return nil
}
