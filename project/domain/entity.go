package domain

import (
	"fmt"
	"strings"
)

// Role はチャット履歴の発話者種別です
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn は言語モデルに渡す会話履歴の1発話です
type ChatTurn struct {
	Role    Role
	Content string
}

// UserTurn はユーザー発話を生成します
func UserTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleUser, Content: content}
}

// AssistantTurn はアシスタント（Bot）発話を生成します
func AssistantTurn(content string) ChatTurn {
	return ChatTurn{Role: RoleAssistant, Content: content}
}

// ThreadReply は conversations.replies で取得したスレッド内の1メッセージです
type ThreadReply struct {
	// User は投稿者のユーザーID
	User string

	// BotID は Bot 投稿の場合のみ設定されます
	BotID string

	Text string

	// TS はメッセージのタイムスタンプ（"1700000000.000100" 形式）
	TS string

	// ReplyUsers はスレッド親メッセージにのみ設定される返信参加者ID一覧
	ReplyUsers []string
}

// Policy は URL 共有ポリシーの判定結果です
type Policy struct {
	Allowed bool
	Reason  string
}

// Allow は許可ポリシーを返します
func Allow() Policy { return Policy{Allowed: true} }

// Deny は拒否理由付きのポリシーを返します
func Deny(reason string) Policy { return Policy{Reason: reason} }

// URLCandidate は共有チャンネルに投稿された URL の処理状態です
type URLCandidate struct {
	// Raw はテキストから抽出した URL
	Raw string

	// Canonical はリダイレクト解決・トラッキング除去後の URL（拒否時は空の場合があります）
	Canonical string

	Policy Policy
}

// ExtractedPage は Web ページから抽出した本文情報です
type ExtractedPage struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description *string  `json:"description,omitempty"`
	Keywords    []string `json:"keywords,omitempty"`
	Headings    []string `json:"headings"`
	Body        string   `json:"body"`
}

// WorkItemDraft はプレースホルダー投稿前の検証済み作業項目です。
// NewWorkItemDraft 経由でのみ生成され、Posted で PostedWorkItem に遷移します。
type WorkItemDraft struct {
	command     string
	channel     string
	threadTS    string
	userID      string
	chatHistory []ChatTurn
}

// NewWorkItemDraft は作業項目を検証して Draft を生成します。
// 検証は副作用の前に行われ、チャンネル未指定・履歴空はそれぞれ別のエラーになります。
func NewWorkItemDraft(command, channel, threadTS, userID string, history []ChatTurn) (WorkItemDraft, error) {
	if strings.TrimSpace(channel) == "" {
		return WorkItemDraft{}, fmt.Errorf("%w: %w", ErrInvalid, ErrMissingChannel)
	}
	if len(history) == 0 {
		return WorkItemDraft{}, fmt.Errorf("%w: %w", ErrInvalid, ErrEmptyHistory)
	}
	turns := make([]ChatTurn, len(history))
	copy(turns, history)
	return WorkItemDraft{
		command:     command,
		channel:     channel,
		threadTS:    threadTS,
		userID:      userID,
		chatHistory: turns,
	}, nil
}

func (d WorkItemDraft) Channel() string  { return d.channel }
func (d WorkItemDraft) ThreadTS() string { return d.threadTS }

// Posted はプレースホルダー投稿の結果を付与して PostedWorkItem に遷移します
func (d WorkItemDraft) Posted(processingTS, processingText string) (PostedWorkItem, error) {
	if strings.TrimSpace(processingTS) == "" {
		return PostedWorkItem{}, fmt.Errorf("%w: processing_message_ts は必須項目です", ErrInvalid)
	}
	return PostedWorkItem{
		Command:               d.command,
		Channel:               d.channel,
		ThreadTS:              d.threadTS,
		UserID:                d.userID,
		ChatHistory:           d.chatHistory,
		ProcessingMessageTS:   processingTS,
		ProcessingMessageText: processingText,
	}, nil
}

// PostedWorkItem はプレースホルダー投稿済みでキューへ送信可能な作業項目です
type PostedWorkItem struct {
	// Command は空の場合コマンドなし（通常会話）を表します
	Command string

	Channel  string
	ThreadTS string
	UserID   string

	ChatHistory []ChatTurn

	// ProcessingMessageTS は下流ワーカーが回答で置き換えるプレースホルダーの TS
	ProcessingMessageTS   string
	ProcessingMessageText string
}
