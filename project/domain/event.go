package domain

// Origin はイベントの発生元です
type Origin struct {
	Channel  string
	TS       string
	ThreadTS string
	UserID   string
}

// InboundEvent は分類済みの受信イベントです。
// 実装はこのパッケージ内の型に限定されます。
type InboundEvent interface {
	EventOrigin() Origin
	inboundEvent()
}

// ThreadMessage はスレッド内の返信です（スレッド再構成の対象）
type ThreadMessage struct {
	Origin
	Text string
}

// Mention は Bot へのメンションです。Text は Bot のメンション記法を除去済みです
type Mention struct {
	Origin
	Text string
}

// SlashCommand はスラッシュコマンドの実行です
type SlashCommand struct {
	Origin
	Command string
	Text    string
}

// ButtonAction はボタン操作です
type ButtonAction struct {
	Origin
	ActionID string
	Value    string

	// OriginalText はボタンが付いていたメッセージ本文（直前のアシスタント発話）
	OriginalText string
}

// SharedFile はファイル共有イベントのファイル情報です
type SharedFile struct {
	ID         string
	Name       string
	Mimetype   string
	URLPrivate string
}

// FileShare はメール取り込みチャンネルへのファイル共有です
type FileShare struct {
	Origin
	Text  string
	Files []SharedFile
}

// ShareLink は共有チャンネルへの URL 付き投稿です
type ShareLink struct {
	Origin
	Text string
}

// AssistantThreadStarted は AI アシスタントのスレッド開始です
type AssistantThreadStarted struct {
	Origin
}

func (e ThreadMessage) EventOrigin() Origin          { return e.Origin }
func (e Mention) EventOrigin() Origin                { return e.Origin }
func (e SlashCommand) EventOrigin() Origin           { return e.Origin }
func (e ButtonAction) EventOrigin() Origin           { return e.Origin }
func (e FileShare) EventOrigin() Origin              { return e.Origin }
func (e ShareLink) EventOrigin() Origin              { return e.Origin }
func (e AssistantThreadStarted) EventOrigin() Origin { return e.Origin }

func (ThreadMessage) inboundEvent()          {}
func (Mention) inboundEvent()                {}
func (SlashCommand) inboundEvent()           {}
func (ButtonAction) inboundEvent()           {}
func (FileShare) inboundEvent()              {}
func (ShareLink) inboundEvent()              {}
func (AssistantThreadStarted) inboundEvent() {}
