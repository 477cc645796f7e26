package domain

import "errors"

// ドメインエラー定義
var (
	// ErrInvalid は不正な値が設定された場合のエラー
	ErrInvalid = errors.New("ドメイン: 不正な値です")

	// ErrNotFound は要求されたリソースが見つからない場合のエラー
	ErrNotFound = errors.New("ドメイン: リソースが見つかりません")

	// ErrDuplicate は同一イベントが既に処理済みの場合のエラー
	ErrDuplicate = errors.New("ドメイン: 処理済みのイベントです")

	// ErrMissingChannel は作業項目のチャンネルが未指定の場合のエラー
	ErrMissingChannel = errors.New("channel は必須項目です")

	// ErrEmptyHistory は作業項目のチャット履歴が空の場合のエラー
	ErrEmptyHistory = errors.New("chat_history は1件以上必要です")

	// ErrPlaceholderPost はプレースホルダー投稿が失敗した場合のエラー
	ErrPlaceholderPost = errors.New("プレースホルダー投稿失敗")

	// ErrPublish はキューへの送信が失敗した場合のエラー
	ErrPublish = errors.New("キュー送信失敗")
)
