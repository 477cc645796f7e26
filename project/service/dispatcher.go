package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"slack-ai-gateway/project/domain"
)

// commandMail はメール取り込み用の作業項目に付与するコマンド名です
const commandMail = "mail"

// Dispatcher は分類済みイベントを種類ごとの処理へ振り分けます
type Dispatcher interface {
	Dispatch(ctx context.Context, ev domain.InboundEvent) error
}

// DispatcherDeps は dispatcher の依存関係です
type DispatcherDeps struct {
	Bot       BotIdentity
	Slack     SlackPort
	Threads   *ThreadReconstructor
	Links     *LinkPolicy
	Publisher *Publisher
	Greeter   *AssistantGreeter

	// Ledger は重複イベント判定用（nil の場合は判定しない）
	Ledger domain.EventLedger

	Logger *zap.Logger
}

// dispatcher は Dispatcher の実装です
type dispatcher struct {
	bot       BotIdentity
	sp        SlackPort
	threads   *ThreadReconstructor
	links     *LinkPolicy
	publisher *Publisher
	greeter   *AssistantGreeter
	ledger    domain.EventLedger
	logger    *zap.Logger
}

// NewDispatcher は Dispatcher のインスタンスを作成します
func NewDispatcher(deps DispatcherDeps) Dispatcher {
	return &dispatcher{
		bot:       deps.Bot,
		sp:        deps.Slack,
		threads:   deps.Threads,
		links:     deps.Links,
		publisher: deps.Publisher,
		greeter:   deps.Greeter,
		ledger:    deps.Ledger,
		logger:    deps.Logger.Named("dispatcher"),
	}
}

// Dispatch はイベントを処理します。
// 対象外と判断した場合（ポリシー拒否、Bot 不参加スレッドなど）はエラーなしで終了します。
func (d *dispatcher) Dispatch(ctx context.Context, ev domain.InboundEvent) error {
	if d.isDuplicate(ctx, ev) {
		return nil
	}

	switch e := ev.(type) {
	case domain.ThreadMessage:
		return d.onThreadMessage(ctx, e)
	case domain.Mention:
		return d.onMention(ctx, e)
	case domain.SlashCommand:
		return d.onSlashCommand(ctx, e)
	case domain.ButtonAction:
		return d.onButtonAction(ctx, e)
	case domain.FileShare:
		return d.onFileShare(ctx, e)
	case domain.ShareLink:
		return d.onShareLink(ctx, e)
	case domain.AssistantThreadStarted:
		return d.onAssistantThreadStarted(ctx, e)
	default:
		return fmt.Errorf("Dispatch: 未対応のイベント種別です: %T", ev)
	}
}

func (d *dispatcher) onThreadMessage(ctx context.Context, e domain.ThreadMessage) error {
	history, ok := d.threads.Reconstruct(ctx, e.Channel, e.ThreadTS, d.bot.UserID)
	if !ok {
		return nil
	}
	return d.publisher.Publish(ctx, "", e.Channel, e.ThreadTS, e.UserID, history)
}

func (d *dispatcher) onMention(ctx context.Context, e domain.Mention) error {
	if e.Text == "" {
		d.logger.Debug("本文のないメンションのため対象外", zap.String("channel", e.Channel))
		return nil
	}
	return d.publisher.Publish(ctx, "", e.Channel, e.TS, e.UserID, []domain.ChatTurn{domain.UserTurn(e.Text)})
}

// onSlashCommand はコマンドをメッセージとして投稿し、そのメッセージをスレッド親として処理します
func (d *dispatcher) onSlashCommand(ctx context.Context, e domain.SlashCommand) error {
	echo := e.Command
	if e.Text != "" {
		echo += " " + e.Text
	}
	ts, err := d.sp.PostMessage(ctx, e.Channel, "", echo)
	if err != nil {
		return fmt.Errorf("onSlashCommand: コマンド投稿失敗 (channel=%s, command=%s): %w", e.Channel, e.Command, err)
	}
	return d.publisher.Publish(ctx, e.Command, e.Channel, ts, e.UserID, []domain.ChatTurn{domain.UserTurn(e.Text)})
}

func (d *dispatcher) onButtonAction(ctx context.Context, e domain.ButtonAction) error {
	threadTS := e.ThreadTS
	if threadTS == "" {
		threadTS = e.TS
	}
	var history []domain.ChatTurn
	if e.OriginalText != "" {
		history = append(history, domain.AssistantTurn(e.OriginalText))
	}
	history = append(history, domain.UserTurn(e.Value))
	return d.publisher.Publish(ctx, e.ActionID, e.Channel, threadTS, e.UserID, history)
}

func (d *dispatcher) onFileShare(ctx context.Context, e domain.FileShare) error {
	lines := make([]string, 0, len(e.Files)+1)
	if text := strings.TrimSpace(e.Text); text != "" {
		lines = append(lines, text)
	}
	for _, f := range e.Files {
		lines = append(lines, fmt.Sprintf("%s <%s>", f.Name, f.URLPrivate))
	}
	if len(lines) == 0 {
		return nil
	}
	return d.publisher.Publish(ctx, commandMail, e.Channel, e.TS, e.UserID,
		[]domain.ChatTurn{domain.UserTurn(strings.Join(lines, "\n"))})
}

func (d *dispatcher) onShareLink(ctx context.Context, e domain.ShareLink) error {
	candidate, ok := d.links.Evaluate(ctx, e.Text)
	if !ok {
		return nil
	}
	return d.publisher.Publish(ctx, "", e.Channel, e.TS, e.UserID,
		[]domain.ChatTurn{domain.UserTurn(candidate.Canonical)})
}

func (d *dispatcher) onAssistantThreadStarted(ctx context.Context, e domain.AssistantThreadStarted) error {
	if d.greeter == nil {
		return nil
	}
	return d.greeter.Start(ctx, e.Channel, e.ThreadTS)
}

// isDuplicate はメッセージ単位で処理権を取得し、処理済みなら true を返します。
// 同一メッセージは message と app_mention の両方で届くことがあるため、チャンネルと TS をキーにします。
func (d *dispatcher) isDuplicate(ctx context.Context, ev domain.InboundEvent) bool {
	if d.ledger == nil {
		return false
	}
	key, ok := ledgerKey(ev)
	if !ok {
		return false
	}
	err := d.ledger.Claim(ctx, key)
	switch {
	case err == nil:
		return false
	case errors.Is(err, domain.ErrDuplicate):
		d.logger.Debug("処理済みのイベントのためスキップ", zap.String("key", key))
		return true
	default:
		// 記録に失敗しても処理は続ける
		d.logger.Warn("イベント記録失敗", zap.String("key", key), zap.Error(err))
		return false
	}
}

func ledgerKey(ev domain.InboundEvent) (string, bool) {
	switch ev.(type) {
	case domain.SlashCommand, domain.ButtonAction:
		return "", false
	}
	o := ev.EventOrigin()
	if o.Channel == "" || o.TS == "" {
		return "", false
	}
	if _, ok := ev.(domain.AssistantThreadStarted); ok {
		return "assistant:" + o.Channel + ":" + o.TS, true
	}
	return o.Channel + ":" + o.TS, true
}
