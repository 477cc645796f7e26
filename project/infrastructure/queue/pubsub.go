package queue

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/dto"
)

// メッセージ属性のキー
const (
	AttrWorkItemID = "work_item_id"
	AttrChannel    = "channel"
	AttrCommand    = "command"
)

// PubSubPublisher は service.QueuePort の Pub/Sub 実装です
type PubSubPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	newID  func() string
}

// NewPubSubPublisher は Pub/Sub クライアントを作成してトピックへの送信を初期化します
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, error) {
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub: クライアント初期化失敗: %w", err)
	}
	return NewPubSubPublisherWithClient(client, topicID), nil
}

// NewPubSubPublisherWithClient は既存のクライアントでトピックへの送信を初期化します
func NewPubSubPublisherWithClient(client *pubsub.Client, topicID string) *PubSubPublisher {
	return &PubSubPublisher{
		client: client,
		topic:  client.Topic(topicID),
		newID:  uuid.NewString,
	}
}

// Publish は作業項目を JSON にしてトピックへ送信し、サーバーの受領を待ちます
func (p *PubSubPublisher) Publish(ctx context.Context, item domain.PostedWorkItem) error {
	data, err := dto.EncodeQueueMessage(item)
	if err != nil {
		return fmt.Errorf("pubsub: メッセージ JSON 化失敗: %w", err)
	}

	attrs := map[string]string{
		AttrWorkItemID: p.newID(),
		AttrChannel:    item.Channel,
	}
	if item.Command != "" {
		attrs[AttrCommand] = item.Command
	}

	res := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if _, err := res.Get(ctx); err != nil {
		return fmt.Errorf("pubsub: メッセージ送信失敗 (topic=%s, channel=%s): %w", p.topic.ID(), item.Channel, err)
	}
	return nil
}

// Close は未送信のメッセージを送り切ってからクライアントを閉じます
func (p *PubSubPublisher) Close() error {
	p.topic.Stop()
	return p.client.Close()
}
