package tasks

import (
	"context"
	"fmt"

	cloudtasks "cloud.google.com/go/cloudtasks/apiv2"
	"cloud.google.com/go/cloudtasks/apiv2/cloudtaskspb"
	"github.com/google/uuid"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/dto"
)

// HeaderWorkItemID は作業項目IDを下流ワーカーへ渡す HTTP ヘッダーです
const HeaderWorkItemID = "X-Work-Item-Id"

// QueueConfig は Cloud Tasks の送信先設定です
type QueueConfig struct {
	ProjectID string
	Location  string
	Queue     string

	// TargetURL は下流ワーカーのエンドポイント
	TargetURL string

	// ServiceAccount が設定されている場合は OIDC トークン付きで呼び出します
	ServiceAccount string
}

// CloudTasksClient は service.QueuePort の Cloud Tasks 実装です
type CloudTasksClient struct {
	cli   *cloudtasks.Client
	cfg   QueueConfig
	newID func() string
}

// NewCloudTasksClient は Cloud Tasks クライアントを初期化します
func NewCloudTasksClient(ctx context.Context, cfg QueueConfig) (*CloudTasksClient, error) {
	cli, err := cloudtasks.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("cloudtasks: クライアント初期化失敗: %w", err)
	}
	return &CloudTasksClient{cli: cli, cfg: cfg, newID: uuid.NewString}, nil
}

// Publish は作業項目を HTTP タスクとしてキューに登録します
func (ct *CloudTasksClient) Publish(ctx context.Context, item domain.PostedWorkItem) error {
	req, err := buildTaskRequest(ct.cfg, ct.newID(), item)
	if err != nil {
		return err
	}
	if _, err := ct.cli.CreateTask(ctx, req); err != nil {
		return fmt.Errorf("cloudtasks: タスク登録失敗 (queue=%s, channel=%s): %w", req.GetParent(), item.Channel, err)
	}
	return nil
}

// Close は Cloud Tasks クライアントを閉じます
func (ct *CloudTasksClient) Close() error {
	if ct.cli != nil {
		return ct.cli.Close()
	}
	return nil
}

// buildTaskRequest はタスク登録リクエストを組み立てます
func buildTaskRequest(cfg QueueConfig, workItemID string, item domain.PostedWorkItem) (*cloudtaskspb.CreateTaskRequest, error) {
	body, err := dto.EncodeQueueMessage(item)
	if err != nil {
		return nil, fmt.Errorf("cloudtasks: ペイロード JSON 化失敗: %w", err)
	}

	httpReq := &cloudtaskspb.HttpRequest{
		Url:        cfg.TargetURL,
		HttpMethod: cloudtaskspb.HttpMethod_POST,
		Headers: map[string]string{
			"Content-Type":   "application/json",
			HeaderWorkItemID: workItemID,
		},
		Body: body,
	}
	if cfg.ServiceAccount != "" {
		httpReq.AuthorizationHeader = &cloudtaskspb.HttpRequest_OidcToken{
			OidcToken: &cloudtaskspb.OidcToken{
				ServiceAccountEmail: cfg.ServiceAccount,
				Audience:            cfg.TargetURL,
			},
		}
	}

	return &cloudtaskspb.CreateTaskRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/queues/%s", cfg.ProjectID, cfg.Location, cfg.Queue),
		Task: &cloudtaskspb.Task{
			MessageType: &cloudtaskspb.Task_HttpRequest{HttpRequest: httpReq},
		},
	}, nil
}
