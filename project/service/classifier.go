package service

import (
	"regexp"
	"strings"

	"github.com/slack-go/slack"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/dto"
)

const (
	eventTypeMessage                = "message"
	eventTypeAppMention             = "app_mention"
	eventTypeAssistantThreadStarted = "assistant_thread_started"

	subtypeFileShare = "file_share"
)

// ignoredSubtypes は分類せずに無視する通知系サブタイプです（編集・削除された内容は再分類しない）
var ignoredSubtypes = map[string]bool{
	"message_changed": true,
	"message_deleted": true,
	"message_replied": true,
}

// threadSubtypes はスレッド返信として扱う message サブタイプです
var threadSubtypes = map[string]bool{
	"":                 true,
	"bot_message":      true,
	"file_share":       true,
	"thread_broadcast": true,
}

// ClassifierConfig は分類に必要なプロセス共通設定です
type ClassifierConfig struct {
	Bot BotIdentity

	// ShareChannelID は URL 共有チャンネルのID（空の場合は共有判定しない）
	ShareChannelID string

	// MailChannelID はメール取り込みチャンネルのID（空の場合はファイル共有判定しない）
	MailChannelID string

	SlashCommands []string

	// ActionPattern は対象とするボタンの action_id パターン
	ActionPattern *regexp.Regexp
}

// Classifier は受信ペイロードを InboundEvent に分類します。
// 分類は副作用を持たず、複数リクエストから同時に呼び出せます。
type Classifier struct {
	cfg      ClassifierConfig
	commands map[string]bool
}

// NewClassifier は Classifier を作成します
func NewClassifier(cfg ClassifierConfig) *Classifier {
	commands := make(map[string]bool, len(cfg.SlashCommands))
	for _, c := range cfg.SlashCommands {
		commands[strings.TrimSpace(c)] = true
	}
	return &Classifier{cfg: cfg, commands: commands}
}

// Classify は受信ペイロードを分類します。
// 対象外のペイロードは ok=false（無視）になります。
func (c *Classifier) Classify(raw RawEvent) (domain.InboundEvent, bool) {
	switch {
	case raw.Event != nil:
		return c.classifyEvent(raw.Event)
	case raw.Command != nil:
		return c.classifyCommand(raw.Command)
	case raw.Interaction != nil:
		return c.classifyInteraction(raw.Interaction)
	default:
		return nil, false
	}
}

func (c *Classifier) classifyEvent(ev *dto.SlackEvent) (domain.InboundEvent, bool) {
	if ev.Type == eventTypeAssistantThreadStarted {
		return c.classifyAssistantThread(ev)
	}
	if ev.Type != eventTypeMessage && ev.Type != eventTypeAppMention {
		return nil, false
	}

	// 編集・削除通知
	if ignoredSubtypes[ev.SubType] {
		return nil, false
	}
	// Bot 自身の投稿（プレースホルダーなど）で再度処理が走らないようにする
	if c.isSelf(ev.User, ev.BotID) {
		return nil, false
	}

	origin := domain.Origin{
		Channel:  ev.Channel,
		TS:       ev.Timestamp,
		ThreadTS: ev.ThreadTs,
		UserID:   ev.User,
	}

	// スレッド内の返信
	if ev.ThreadTs != "" {
		if ev.Type == eventTypeMessage && !threadSubtypes[ev.SubType] {
			return nil, false
		}
		return domain.ThreadMessage{Origin: origin, Text: ev.Text}, true
	}

	// メール取り込みチャンネルへのファイル共有
	if ev.Type == eventTypeMessage && ev.SubType == subtypeFileShare &&
		c.cfg.MailChannelID != "" && ev.Channel == c.cfg.MailChannelID {
		return domain.FileShare{Origin: origin, Text: ev.Text, Files: sharedFiles(ev.Files)}, true
	}

	// Bot へのメンション
	if ev.Type == eventTypeAppMention {
		return domain.Mention{Origin: origin, Text: c.stripMention(ev.Text)}, true
	}

	// 共有チャンネルへの URL 付き投稿
	if ev.SubType == "" && c.cfg.ShareChannelID != "" && ev.Channel == c.cfg.ShareChannelID {
		if _, ok := ExtractURL(ev.Text); ok {
			return domain.ShareLink{Origin: origin, Text: ev.Text}, true
		}
	}

	return nil, false
}

// classifyCommand は登録済みのスラッシュコマンドのみ受け付けます
func (c *Classifier) classifyCommand(cmd *slack.SlashCommand) (domain.InboundEvent, bool) {
	if !c.commands[cmd.Command] {
		return nil, false
	}
	return domain.SlashCommand{
		Origin:  domain.Origin{Channel: cmd.ChannelID, UserID: cmd.UserID},
		Command: cmd.Command,
		Text:    cmd.Text,
	}, true
}

// classifyInteraction は action_id がパターンに一致する最初のボタン操作を返します
func (c *Classifier) classifyInteraction(cb *slack.InteractionCallback) (domain.InboundEvent, bool) {
	if cb.Type != slack.InteractionTypeBlockActions || c.cfg.ActionPattern == nil {
		return nil, false
	}
	for _, action := range cb.ActionCallback.BlockActions {
		if action == nil || !c.cfg.ActionPattern.MatchString(action.ActionID) {
			continue
		}
		origin := domain.Origin{
			Channel:  firstNonEmpty(cb.Channel.ID, cb.Container.ChannelID),
			TS:       firstNonEmpty(cb.Message.Timestamp, cb.Container.MessageTs),
			ThreadTS: firstNonEmpty(cb.Message.ThreadTimestamp, cb.Container.ThreadTs),
			UserID:   cb.User.ID,
		}
		return domain.ButtonAction{
			Origin:       origin,
			ActionID:     action.ActionID,
			Value:        action.Value,
			OriginalText: cb.Message.Text,
		}, true
	}
	return nil, false
}

func (c *Classifier) classifyAssistantThread(ev *dto.SlackEvent) (domain.InboundEvent, bool) {
	at := ev.AssistantThread
	if at == nil || at.ChannelID == "" || at.ThreadTs == "" {
		return nil, false
	}
	return domain.AssistantThreadStarted{Origin: domain.Origin{
		Channel:  at.ChannelID,
		TS:       at.ThreadTs,
		ThreadTS: at.ThreadTs,
		UserID:   at.UserID,
	}}, true
}

func (c *Classifier) isSelf(userID, botID string) bool {
	if c.cfg.Bot.UserID != "" && userID == c.cfg.Bot.UserID {
		return true
	}
	return c.cfg.Bot.BotID != "" && botID == c.cfg.Bot.BotID
}

// stripMention は Bot 自身のメンション記法 <@BOTID> を除去します
func (c *Classifier) stripMention(text string) string {
	if c.cfg.Bot.UserID != "" {
		text = strings.ReplaceAll(text, "<@"+c.cfg.Bot.UserID+">", "")
	}
	return strings.TrimSpace(text)
}

func sharedFiles(files []dto.SlackFile) []domain.SharedFile {
	out := make([]domain.SharedFile, 0, len(files))
	for _, f := range files {
		out = append(out, domain.SharedFile{
			ID:         f.ID,
			Name:       firstNonEmpty(f.Name, f.Title),
			Mimetype:   f.Mimetype,
			URLPrivate: f.URLPrivate,
		})
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
