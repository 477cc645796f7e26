package dto

// SlackEventRequest は Slack Events API のリクエスト全体を表します
type SlackEventRequest struct {
	TeamID    string     `json:"team_id"`
	Event     SlackEvent `json:"event"`
	Type      string     `json:"type"` // "event_callback", "url_verification"
	EventID   string     `json:"event_id"`
	Challenge string     `json:"challenge,omitempty"` // URL検証時のみ
}

// SlackEvent は様々なSlackイベントを表現する汎用構造体です
type SlackEvent struct {
	Type      string `json:"type"`                // "message", "app_mention" など
	User      string `json:"user"`                // イベント発生者（メッセージ送信者）
	Text      string `json:"text"`                // メッセージ本文
	Channel   string `json:"channel"`             // チャンネルID
	Timestamp string `json:"ts"`                  // メッセージTS（親メッセージのts）
	ThreadTs  string `json:"thread_ts,omitempty"` // スレッドTS（スレッド内の場合）
	BotID     string `json:"bot_id,omitempty"`    // Bot投稿の場合
	SubType   string `json:"subtype,omitempty"`   // "bot_message", "message_changed", "file_share" など

	// file_share サブタイプ固有
	Files []SlackFile `json:"files,omitempty"`

	// assistant_thread_started イベント固有
	AssistantThread *SlackAssistantThread `json:"assistant_thread,omitempty"`
}

// SlackFile は共有ファイルの情報です
type SlackFile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Title      string `json:"title,omitempty"`
	Mimetype   string `json:"mimetype,omitempty"`
	URLPrivate string `json:"url_private,omitempty"`
}

// SlackAssistantThread は AI アシスタントのスレッド情報です
type SlackAssistantThread struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	ThreadTs  string `json:"thread_ts"`
}
