package service

import (
	"context"

	"slack-ai-gateway/project/domain"
)

// SlackPort は Slack API 呼び出しのポートです
type SlackPort interface {
	// PostMessage はメッセージを投稿し、投稿されたメッセージの TS を返します
	// threadTS が空の場合はチャンネル直下への新規投稿になります
	// Slack が ok=false を返した場合はエラーになります
	PostMessage(ctx context.Context, channelID, threadTS, text string) (string, error)

	// ConversationReplies はスレッド親メッセージを含むスレッド内の全メッセージを取得します
	ConversationReplies(ctx context.Context, channelID, threadTS string) ([]domain.ThreadReply, error)

	// SetSuggestedPrompts は AI アシスタントスレッドに提案プロンプトを設定します
	SetSuggestedPrompts(ctx context.Context, channelID, threadTS string, prompts []string) error
}

// QueuePort は下流ワーカー向けキューへの送信ポートです
type QueuePort interface {
	// Publish は投稿済み作業項目をキューへ送信します
	// 送信が受理されるまでブロックし、失敗時はエラーを返します
	Publish(ctx context.Context, item domain.PostedWorkItem) error
}

// Resolver は URL のリダイレクト解決を行うポートです
type Resolver interface {
	// Resolve はリダイレクト後の最終 URL を返します
	// HTTP 200 以外やネットワークエラーの場合はエラーを返します
	Resolve(ctx context.Context, rawURL string) (string, error)
}
