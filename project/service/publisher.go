package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"slack-ai-gateway/project/domain"
)

// Publisher はプレースホルダー投稿とキュー送信を順に行います
type Publisher struct {
	sp             SlackPort
	qp             QueuePort
	processingText string
	logger         *zap.Logger
}

// NewPublisher は Publisher を作成します
func NewPublisher(sp SlackPort, qp QueuePort, processingText string, logger *zap.Logger) *Publisher {
	return &Publisher{
		sp:             sp,
		qp:             qp,
		processingText: processingText,
		logger:         logger.Named("publisher"),
	}
}

// Publish は作業項目を検証し、プレースホルダーを投稿してからキューへ送信します。
//
// 検証エラーは副作用の前に返ります。プレースホルダー投稿が失敗した場合はキューへ送信しません。
// キュー送信が失敗した場合、投稿済みのプレースホルダーは残ります（補償処理はしません）。
func (p *Publisher) Publish(ctx context.Context, command, channelID, threadTS, userID string, history []domain.ChatTurn) error {
	draft, err := domain.NewWorkItemDraft(command, channelID, threadTS, userID, history)
	if err != nil {
		return fmt.Errorf("Publish: 作業項目検証失敗: %w", err)
	}

	ts, err := p.sp.PostMessage(ctx, draft.Channel(), draft.ThreadTS(), p.processingText)
	if err != nil {
		return fmt.Errorf("Publish: %w (channel=%s, thread_ts=%s): %w", domain.ErrPlaceholderPost, channelID, threadTS, err)
	}

	item, err := draft.Posted(ts, p.processingText)
	if err != nil {
		return fmt.Errorf("Publish: %w (channel=%s): %w", domain.ErrPlaceholderPost, channelID, err)
	}

	if err := p.qp.Publish(ctx, item); err != nil {
		p.logger.Error("プレースホルダー投稿後にキュー送信失敗",
			zap.String("channel", channelID),
			zap.String("processing_ts", ts),
			zap.Error(err))
		return fmt.Errorf("Publish: %w (channel=%s, ts=%s): %w", domain.ErrPublish, channelID, ts, err)
	}

	p.logger.Info("作業項目をキューへ送信",
		zap.String("command", command),
		zap.String("channel", channelID),
		zap.String("thread_ts", threadTS),
		zap.String("processing_ts", ts),
		zap.Int("turns", len(history)))
	return nil
}
