package web

import (
	"errors"
	"net"
	"net/http"
	"time"
)

// maxRedirects は追跡するリダイレクトの上限です
const maxRedirects = 10

// userAgent は外部サイトへのリクエストに付与する User-Agent です
const userAgent = "slack-ai-gateway/1.0 (+https://api.slack.com/bot-users)"

var errTooManyRedirects = errors.New("リダイレクト回数が上限を超えました")

// newHTTPClient は接続タイムアウトと読み込みタイムアウトを分けて設定した HTTP クライアントを作成します。
// 読み込みタイムアウトはレスポンスヘッダー待ちに適用し、全体の上限は接続と読み込みの合計です。
func newHTTPClient(connectTimeout, readTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = readTimeout

	return &http.Client{
		Transport: transport,
		Timeout:   connectTimeout + readTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return errTooManyRedirects
			}
			return nil
		},
	}
}
