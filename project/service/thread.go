package service

import (
	"context"
	"slices"
	"sort"

	"go.uber.org/zap"

	"slack-ai-gateway/project/domain"
)

// ThreadReconstructor はスレッドの返信から会話履歴を再構成します
type ThreadReconstructor struct {
	sp     SlackPort
	logger *zap.Logger
}

// NewThreadReconstructor は ThreadReconstructor を作成します
func NewThreadReconstructor(sp SlackPort, logger *zap.Logger) *ThreadReconstructor {
	return &ThreadReconstructor{sp: sp, logger: logger.Named("thread")}
}

// Reconstruct はスレッドの会話履歴を TS 昇順で返します。
// スレッドが取得できない場合や Bot がスレッド参加者でない場合は ok=false です。
func (r *ThreadReconstructor) Reconstruct(ctx context.Context, channelID, threadTS, botUserID string) ([]domain.ChatTurn, bool) {
	replies, err := r.sp.ConversationReplies(ctx, channelID, threadTS)
	if err != nil {
		r.logger.Warn("スレッド取得失敗のため処理しません",
			zap.String("channel", channelID), zap.String("thread_ts", threadTS), zap.Error(err))
		return nil, false
	}
	if len(replies) == 0 {
		return nil, false
	}

	// Bot が既に参加しているスレッドのみ続ける（人同士のスレッドには割り込まない）
	root := threadRoot(replies, threadTS)
	if botUserID == "" || !slices.Contains(root.ReplyUsers, botUserID) {
		r.logger.Debug("Bot 不参加のスレッドのため対象外",
			zap.String("channel", channelID), zap.String("thread_ts", threadTS))
		return nil, false
	}

	sorted := slices.Clone(replies)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].TS < sorted[j].TS })

	turns := make([]domain.ChatTurn, 0, len(sorted))
	for _, reply := range sorted {
		if reply.User == botUserID || reply.BotID != "" {
			turns = append(turns, domain.AssistantTurn(reply.Text))
		} else {
			turns = append(turns, domain.UserTurn(reply.Text))
		}
	}
	return turns, true
}

// threadRoot はスレッド親メッセージを返します（見つからない場合は先頭）
func threadRoot(replies []domain.ThreadReply, threadTS string) domain.ThreadReply {
	for _, reply := range replies {
		if reply.TS == threadTS {
			return reply
		}
	}
	return replies[0]
}
