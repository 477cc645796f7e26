package httpsec

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/slack-go/slack"
)

// ErrUnauthorized は署名検証に失敗した場合のエラーです
var ErrUnauthorized = errors.New("httpsec: 署名検証失敗")

// Verifier は Slack からのリクエストの署名を検証します。
// X-Slack-Signature と X-Slack-Request-Timestamp を確認し、改ざんやリプレイ（5分超）を拒否します。
type Verifier struct {
	signingSecret string
	enabled       bool
}

// NewVerifier は Verifier を作成します。enabled が false の場合は検証を行いません（ローカル開発用）
func NewVerifier(signingSecret string, enabled bool) *Verifier {
	return &Verifier{signingSecret: signingSecret, enabled: enabled}
}

// Verify はヘッダーとリクエストボディから署名を検証します
func (v *Verifier) Verify(header http.Header, body []byte) error {
	if !v.enabled {
		return nil
	}
	if v.signingSecret == "" {
		return fmt.Errorf("%w: signing secret が未設定です", ErrUnauthorized)
	}

	sv, err := slack.NewSecretsVerifier(header, v.signingSecret)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}
	return nil
}
