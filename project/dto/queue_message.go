package dto

import (
	"encoding/json"

	"slack-ai-gateway/project/domain"
)

// QueueMessage は下流ワーカーへ渡すキューメッセージです。
// フィールド名と入れ子構造は下流との契約のため変更しないでください。
type QueueMessage struct {
	Context     QueueContext `json:"context"`
	ChatHistory []QueueChat  `json:"chat_history"`
}

// QueueContext は回答先の特定に必要な情報です
type QueueContext struct {
	Command               *string `json:"command"`
	Channel               string  `json:"channel"`
	TS                    string  `json:"ts"` // プレースホルダーメッセージの TS
	ThreadTS              *string `json:"thread_ts"`
	UserID                *string `json:"user_id"`
	ProcessingMessageText string  `json:"processing_message_text"`
}

// QueueChat はチャット履歴の1発話です
type QueueChat struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// NewQueueMessage は投稿済み作業項目からキューメッセージを組み立てます
func NewQueueMessage(item domain.PostedWorkItem) QueueMessage {
	history := make([]QueueChat, 0, len(item.ChatHistory))
	for _, turn := range item.ChatHistory {
		history = append(history, QueueChat{Role: string(turn.Role), Content: turn.Content})
	}
	return QueueMessage{
		Context: QueueContext{
			Command:               optional(item.Command),
			Channel:               item.Channel,
			TS:                    item.ProcessingMessageTS,
			ThreadTS:              optional(item.ThreadTS),
			UserID:                optional(item.UserID),
			ProcessingMessageText: item.ProcessingMessageText,
		},
		ChatHistory: history,
	}
}

// EncodeQueueMessage はキューへ送信するバイト列を生成します
func EncodeQueueMessage(item domain.PostedWorkItem) ([]byte, error) {
	return json.Marshal(NewQueueMessage(item))
}

// optional は空文字を JSON の null として扱うためのヘルパーです
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
