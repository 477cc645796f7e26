package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"slack-ai-gateway/project/domain"
)

// isAlreadyExists は Firestore の AlreadyExists エラーを判定するヘルパー関数です
func isAlreadyExists(err error) bool {
	st, ok := status.FromError(err)
	return ok && st.Code() == codes.AlreadyExists
}

// FirestoreLedger は domain.EventLedger の Firestore 実装です。
// 処理済みイベントを1ドキュメントとして記録します。expire_at に TTL ポリシーを設定すると古い記録は自動削除されます。
type FirestoreLedger struct {
	cli        *firestore.Client
	collection string
	ttl        time.Duration
	now        func() time.Time
}

// NewFirestoreLedger は Firestore クライアントを作成してイベント記録を初期化します
func NewFirestoreLedger(ctx context.Context, projectID, collection string, ttl time.Duration) (*FirestoreLedger, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore: クライアント初期化失敗: %w", err)
	}
	return NewFirestoreLedgerWithClient(client, collection, ttl), nil
}

// NewFirestoreLedgerWithClient は既存のクライアントでイベント記録を初期化します
func NewFirestoreLedgerWithClient(client *firestore.Client, collection string, ttl time.Duration) *FirestoreLedger {
	return &FirestoreLedger{
		cli:        client,
		collection: collection,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Claim はイベントキーを記録します。既に記録済みの場合は domain.ErrDuplicate を返します
func (l *FirestoreLedger) Claim(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("firestore: Claim検証失敗: %w", domain.ErrInvalid)
	}

	docID := eventDocID(key)
	now := l.now()
	data := map[string]interface{}{
		"key":        key,
		"created_at": now,
		"expire_at":  now.Add(l.ttl),
	}

	// Create は既存ドキュメントがあると AlreadyExists で失敗するため、判定と記録が原子的になる
	if _, err := l.cli.Collection(l.collection).Doc(docID).Create(ctx, data); err != nil {
		if isAlreadyExists(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("firestore: イベント記録失敗 (docID=%s): %w", docID, err)
	}
	return nil
}

// Close は Firestore クライアントを閉じます
func (l *FirestoreLedger) Close() error {
	if l.cli != nil {
		return l.cli.Close()
	}
	return nil
}

// eventDocID はイベント記録のドキュメントIDを生成します
// ドキュメントIDに使えない "/" は置き換えます。形式: "channel:ts"
func eventDocID(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}
