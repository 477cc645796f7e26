package service

import (
	"github.com/slack-go/slack"

	"slack-ai-gateway/project/dto"
)

// BotIdentity は auth.test で取得した Bot 自身の識別子です
type BotIdentity struct {
	// UserID は Bot ユーザーのID（"U..."）
	UserID string

	// BotID は Bot のID（"B..."）
	BotID string
}

// RawEvent は分類前の受信ペイロードです。いずれか1つのみが設定されます
type RawEvent struct {
	// Event は Events API の event_callback に含まれるイベント
	Event *dto.SlackEvent

	// Command はスラッシュコマンド
	Command *slack.SlashCommand

	// Interaction はボタン操作などのインタラクション
	Interaction *slack.InteractionCallback
}
