package web

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// Resolver はリダイレクトを追跡して最終的な URL を求めます（service.Resolver の実装）
type Resolver struct {
	client *http.Client
}

// NewResolver は Resolver を作成します
func NewResolver(connectTimeout, readTimeout time.Duration) *Resolver {
	return &Resolver{client: newHTTPClient(connectTimeout, readTimeout)}
}

// Resolve は URL を GET し、ステータス 200 の場合のみリダイレクト後の URL を返します。
// 本文は読み込みません。
func (r *Resolver) Resolve(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("web: リクエスト作成失敗 (url=%s): %w", rawURL, err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("web: リダイレクト解決失敗 (url=%s): %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("web: リダイレクト解決失敗 (url=%s, status=%d)", rawURL, resp.StatusCode)
	}
	return resp.Request.URL.String(), nil
}
