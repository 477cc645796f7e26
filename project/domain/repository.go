package domain

import (
	"context"
)

// EventLedger は受信イベントの重複処理を防ぐための短期記録を担当します
type EventLedger interface {
	// Claim は key の処理権を取得します
	// 既に同じ key が記録されている場合は domain.ErrDuplicate を返します
	// 記録は TTL 経過後に削除される前提で、長期保存はしません
	Claim(ctx context.Context, key string) error
}
