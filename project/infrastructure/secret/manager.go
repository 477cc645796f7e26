package secret

import (
	"context"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
)

// Manager は Secret Manager を通じて Slack の認証情報を取得するクライアントです
type Manager struct {
	client    *secretmanager.Client
	projectID string
}

// NewManager は Secret Manager のマネージャーを初期化します
func NewManager(ctx context.Context, projectID string) (*Manager, error) {
	if projectID == "" {
		return nil, fmt.Errorf("secret manager: プロジェクトIDが未設定です")
	}
	client, err := secretmanager.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("secret manager: クライアント初期化失敗: %w", err)
	}

	return &Manager{
		client:    client,
		projectID: projectID,
	}, nil
}

// GetSecret は指定されたシークレットの値を取得します。
// secretName がバージョン付きのリソース名（projects/.../versions/N）の場合はそのまま使い、
// それ以外は最新版を取得します。
func (m *Manager) GetSecret(ctx context.Context, secretName string) (string, error) {
	req := &secretmanagerpb.AccessSecretVersionRequest{
		Name: resourceName(m.projectID, secretName),
	}

	result, err := m.client.AccessSecretVersion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("secret manager: シークレット取得失敗 (name=%s): %w", secretName, err)
	}

	// ファイルから登録された値の末尾改行を除去する
	secret := strings.TrimSpace(string(result.GetPayload().GetData()))
	if secret == "" {
		return "", fmt.Errorf("secret manager: シークレット値が空です (name=%s)", secretName)
	}

	return secret, nil
}

// Close は Secret Manager クライアントを閉じます
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}

// resourceName はシークレット名からリソース名を組み立てます
// 形式: projects/{project_id}/secrets/{secret_name}/versions/latest
func resourceName(projectID, secretName string) string {
	if strings.HasPrefix(secretName, "projects/") {
		return secretName
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/latest", projectID, secretName)
}
