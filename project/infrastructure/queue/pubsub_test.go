package queue

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/dto"
)

func newTestPublisher(t *testing.T) (*PubSubPublisher, *pstest.Server) {
	t.Helper()
	ctx := context.Background()

	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient() error = %v", err)
	}

	client, err := pubsub.NewClient(ctx, "test-project", option.WithGRPCConn(conn))
	if err != nil {
		t.Fatalf("pubsub.NewClient() error = %v", err)
	}
	if _, err := client.CreateTopic(ctx, "slack-ai-chat"); err != nil {
		t.Fatalf("CreateTopic() error = %v", err)
	}

	p := NewPubSubPublisherWithClient(client, "slack-ai-chat")
	p.newID = func() string { return "11111111-2222-3333-4444-555555555555" }
	t.Cleanup(func() { _ = p.Close() })
	return p, srv
}

func TestPubSubPublish(t *testing.T) {
	t.Parallel()

	p, srv := newTestPublisher(t)
	item := domain.PostedWorkItem{
		Command:               "/gpt",
		Channel:               "C1",
		ThreadTS:              "100.1",
		UserID:                "U1",
		ChatHistory:           []domain.ChatTurn{domain.UserTurn("hello")},
		ProcessingMessageTS:   "100.2",
		ProcessingMessageText: "Processing.",
	}
	if err := p.Publish(context.Background(), item); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	msgs := srv.Messages()
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}
	got := msgs[0]

	var decoded dto.QueueMessage
	if err := json.Unmarshal(got.Data, &decoded); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}
	if decoded.Context.Channel != "C1" || decoded.Context.TS != "100.2" {
		t.Fatalf("context = %+v", decoded.Context)
	}
	if decoded.Context.Command == nil || *decoded.Context.Command != "/gpt" {
		t.Fatalf("command = %v", decoded.Context.Command)
	}
	if len(decoded.ChatHistory) != 1 || decoded.ChatHistory[0].Content != "hello" {
		t.Fatalf("chat_history = %+v", decoded.ChatHistory)
	}

	wantAttrs := map[string]string{
		AttrWorkItemID: "11111111-2222-3333-4444-555555555555",
		AttrChannel:    "C1",
		AttrCommand:    "/gpt",
	}
	for k, v := range wantAttrs {
		if got.Attributes[k] != v {
			t.Errorf("attribute %s = %q, want %q", k, got.Attributes[k], v)
		}
	}
}

func TestPubSubPublishMissingTopic(t *testing.T) {
	t.Parallel()

	p, _ := newTestPublisher(t)
	missing := NewPubSubPublisherWithClient(p.client, "does-not-exist")
	t.Cleanup(missing.topic.Stop)

	item := domain.PostedWorkItem{
		Channel:             "C1",
		ChatHistory:         []domain.ChatTurn{domain.UserTurn("x")},
		ProcessingMessageTS: "1.1",
	}
	if err := missing.Publish(context.Background(), item); err == nil {
		t.Fatalf("Publish() error = nil, want error")
	}
}
