package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/service"
)

// repliesPageSize は conversations.replies の1ページあたりの取得件数です
const repliesPageSize = 200

// SlackClient は service.SlackPort の Slack SDK 実装です
type SlackClient struct {
	api *slack.Client
}

// NewSlackClient は Bot トークンで Slack クライアントを初期化します
func NewSlackClient(token string, opts ...slack.Option) *SlackClient {
	return &SlackClient{api: slack.New(token, opts...)}
}

// Identity は auth.test で Bot 自身のユーザーIDと Bot ID を取得します
func (sc *SlackClient) Identity(ctx context.Context) (service.BotIdentity, error) {
	res, err := sc.api.AuthTestContext(ctx)
	if err != nil {
		return service.BotIdentity{}, fmt.Errorf("slack: auth.test 失敗: %w", err)
	}
	return service.BotIdentity{UserID: res.UserID, BotID: res.BotID}, nil
}

// PostMessage はメッセージを投稿し、投稿されたメッセージの TS を返します。
// threadTS が空の場合はチャンネル直下に投稿します。
func (sc *SlackClient) PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error) {
	opts := []slack.MsgOption{slack.MsgOptionText(text, false)}
	if threadTS != "" {
		opts = append(opts, slack.MsgOptionTS(threadTS))
	}

	_, ts, err := sc.api.PostMessageContext(ctx, channelID, opts...)
	if err != nil {
		return "", fmt.Errorf("slack: メッセージ投稿失敗 (channel=%s, thread_ts=%s): %w", channelID, threadTS, err)
	}
	if ts == "" {
		return "", fmt.Errorf("slack: 投稿結果に ts がありません (channel=%s)", channelID)
	}
	return ts, nil
}

// ConversationReplies はスレッドの全メッセージ（親を含む）をページングしながら取得します
func (sc *SlackClient) ConversationReplies(ctx context.Context, channelID, threadTS string) ([]domain.ThreadReply, error) {
	var replies []domain.ThreadReply
	cursor := ""
	for {
		msgs, hasMore, next, err := sc.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: threadTS,
			Cursor:    cursor,
			Limit:     repliesPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("slack: スレッド取得失敗 (channel=%s, ts=%s): %w", channelID, threadTS, err)
		}

		for _, m := range msgs {
			replies = append(replies, domain.ThreadReply{
				User:       m.User,
				BotID:      m.BotID,
				Text:       m.Text,
				TS:         m.Timestamp,
				ReplyUsers: m.ReplyUsers,
			})
		}

		if !hasMore || next == "" {
			return replies, nil
		}
		cursor = next
	}
}

// SetSuggestedPrompts は AI アシスタントのスレッドに提案プロンプトを設定します
func (sc *SlackClient) SetSuggestedPrompts(ctx context.Context, channelID, threadTS string, prompts []string) error {
	params := slack.AssistantThreadsSetSuggestedPromptsParameters{
		ChannelID: channelID,
		ThreadTS:  threadTS,
	}
	for _, p := range prompts {
		params.Prompts = append(params.Prompts, slack.AssistantThreadsPrompt{Title: p, Message: p})
	}

	if err := sc.api.SetAssistantThreadsSuggestedPromptsContext(ctx, params); err != nil {
		return fmt.Errorf("slack: 提案プロンプト設定失敗 (channel=%s, thread_ts=%s): %w", channelID, threadTS, err)
	}
	return nil
}
