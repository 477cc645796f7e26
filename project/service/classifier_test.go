package service

import (
	"encoding/json"
	"reflect"
	"regexp"
	"testing"

	"github.com/slack-go/slack"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/dto"
)

func testClassifier() *Classifier {
	return NewClassifier(ClassifierConfig{
		Bot:            BotIdentity{UserID: "UBOT", BotID: "BBOT"},
		ShareChannelID: "CSHARE",
		MailChannelID:  "CMAIL",
		SlashCommands:  []string{"/gpt", "/summarize", "/idea"},
		ActionPattern:  regexp.MustCompile(`^ai_`),
	})
}

func TestClassifyEvent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		event  dto.SlackEvent
		want   domain.InboundEvent
		wantOK bool
	}{
		{
			name:  "message edit is ignored even inside a thread",
			event: dto.SlackEvent{Type: "message", SubType: "message_changed", Channel: "C1", ThreadTs: "100.1"},
		},
		{
			name:  "message delete is ignored",
			event: dto.SlackEvent{Type: "message", SubType: "message_deleted", Channel: "CSHARE", Text: "https://example.com"},
		},
		{
			name:  "own placeholder in thread is ignored",
			event: dto.SlackEvent{Type: "message", User: "UBOT", BotID: "BBOT", Channel: "C1", Timestamp: "100.2", ThreadTs: "100.1"},
		},
		{
			name:  "thread reply",
			event: dto.SlackEvent{Type: "message", User: "U1", Text: "more please", Channel: "C1", Timestamp: "100.3", ThreadTs: "100.1"},
			want: domain.ThreadMessage{
				Origin: domain.Origin{Channel: "C1", TS: "100.3", ThreadTS: "100.1", UserID: "U1"},
				Text:   "more please",
			},
			wantOK: true,
		},
		{
			name:  "thread takes precedence over mention",
			event: dto.SlackEvent{Type: "app_mention", User: "U1", Text: "<@UBOT> hi", Channel: "C1", Timestamp: "100.3", ThreadTs: "100.1"},
			want: domain.ThreadMessage{
				Origin: domain.Origin{Channel: "C1", TS: "100.3", ThreadTS: "100.1", UserID: "U1"},
				Text:   "<@UBOT> hi",
			},
			wantOK: true,
		},
		{
			name:  "channel join inside thread is ignored",
			event: dto.SlackEvent{Type: "message", SubType: "channel_join", User: "U1", Channel: "C1", ThreadTs: "100.1"},
		},
		{
			name: "file share on mail channel",
			event: dto.SlackEvent{
				Type: "message", SubType: "file_share", User: "U1", Channel: "CMAIL", Timestamp: "200.1", Text: "invoice",
				Files: []dto.SlackFile{{ID: "F1", Name: "invoice.eml", Mimetype: "message/rfc822", URLPrivate: "https://files.slack.com/F1"}},
			},
			want: domain.FileShare{
				Origin: domain.Origin{Channel: "CMAIL", TS: "200.1", UserID: "U1"},
				Text:   "invoice",
				Files:  []domain.SharedFile{{ID: "F1", Name: "invoice.eml", Mimetype: "message/rfc822", URLPrivate: "https://files.slack.com/F1"}},
			},
			wantOK: true,
		},
		{
			name:  "file share elsewhere is ignored",
			event: dto.SlackEvent{Type: "message", SubType: "file_share", User: "U1", Channel: "C1", Timestamp: "200.1"},
		},
		{
			name:  "mention strips own mention token",
			event: dto.SlackEvent{Type: "app_mention", User: "U1", Text: "  <@UBOT>  summarize this  ", Channel: "C1", Timestamp: "300.1"},
			want: domain.Mention{
				Origin: domain.Origin{Channel: "C1", TS: "300.1", UserID: "U1"},
				Text:   "summarize this",
			},
			wantOK: true,
		},
		{
			name:  "mention keeps other users",
			event: dto.SlackEvent{Type: "app_mention", User: "U1", Text: "<@UBOT> ask <@U2>", Channel: "C1", Timestamp: "300.1"},
			want: domain.Mention{
				Origin: domain.Origin{Channel: "C1", TS: "300.1", UserID: "U1"},
				Text:   "ask <@U2>",
			},
			wantOK: true,
		},
		{
			name:  "share channel message with url",
			event: dto.SlackEvent{Type: "message", User: "U1", Text: "look <https://example.com/a?utm_source=x&id=7>", Channel: "CSHARE", Timestamp: "400.1"},
			want: domain.ShareLink{
				Origin: domain.Origin{Channel: "CSHARE", TS: "400.1", UserID: "U1"},
				Text:   "look <https://example.com/a?utm_source=x&id=7>",
			},
			wantOK: true,
		},
		{
			name:  "share channel message without url",
			event: dto.SlackEvent{Type: "message", User: "U1", Text: "no links here", Channel: "CSHARE", Timestamp: "400.2"},
		},
		{
			name:  "plain message elsewhere",
			event: dto.SlackEvent{Type: "message", User: "U1", Text: "https://example.com", Channel: "C1", Timestamp: "400.3"},
		},
		{
			name:  "unknown event type",
			event: dto.SlackEvent{Type: "reaction_added", User: "U1", Channel: "C1"},
		},
		{
			name: "assistant thread started",
			event: dto.SlackEvent{Type: "assistant_thread_started", AssistantThread: &dto.SlackAssistantThread{
				UserID: "U1", ChannelID: "D1", ThreadTs: "500.1",
			}},
			want:   domain.AssistantThreadStarted{Origin: domain.Origin{Channel: "D1", TS: "500.1", ThreadTS: "500.1", UserID: "U1"}},
			wantOK: true,
		},
	}

	c := testClassifier()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := tt.event
			got, ok := c.Classify(RawEvent{Event: &ev})
			if ok != tt.wantOK {
				t.Fatalf("Classify() ok = %v, want %v (got %#v)", ok, tt.wantOK, got)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Classify() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestClassifyCommand(t *testing.T) {
	t.Parallel()

	c := testClassifier()

	got, ok := c.Classify(RawEvent{Command: &slack.SlashCommand{Command: "/gpt", Text: "hello", ChannelID: "C1", UserID: "U1"}})
	if !ok {
		t.Fatalf("Classify(/gpt) ok = false, want true")
	}
	want := domain.SlashCommand{Origin: domain.Origin{Channel: "C1", UserID: "U1"}, Command: "/gpt", Text: "hello"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Classify(/gpt) = %#v, want %#v", got, want)
	}

	if _, ok := c.Classify(RawEvent{Command: &slack.SlashCommand{Command: "/deploy", ChannelID: "C1"}}); ok {
		t.Fatalf("Classify(/deploy) ok = true, want false")
	}
}

func TestClassifyInteraction(t *testing.T) {
	t.Parallel()

	payload := `{
		"type": "block_actions",
		"user": {"id": "U1"},
		"channel": {"id": "C1"},
		"container": {"type": "message", "message_ts": "600.2", "channel_id": "C1"},
		"message": {"type": "message", "text": "Here is a summary.", "ts": "600.2", "thread_ts": "600.1"},
		"actions": [
			{"action_id": "other_button", "block_id": "b1", "type": "button", "value": "nope"},
			{"action_id": "ai_more", "block_id": "b1", "type": "button", "value": "Tell me more"}
		]
	}`
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &cb); err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	c := testClassifier()
	got, ok := c.Classify(RawEvent{Interaction: &cb})
	if !ok {
		t.Fatalf("Classify() ok = false, want true")
	}
	want := domain.ButtonAction{
		Origin:       domain.Origin{Channel: "C1", TS: "600.2", ThreadTS: "600.1", UserID: "U1"},
		ActionID:     "ai_more",
		Value:        "Tell me more",
		OriginalText: "Here is a summary.",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Classify() = %#v, want %#v", got, want)
	}

	cb.ActionCallback.BlockActions = cb.ActionCallback.BlockActions[:1]
	if _, ok := c.Classify(RawEvent{Interaction: &cb}); ok {
		t.Fatalf("Classify(unmatched action) ok = true, want false")
	}
}

func TestClassifyEmpty(t *testing.T) {
	t.Parallel()

	if _, ok := testClassifier().Classify(RawEvent{}); ok {
		t.Fatalf("Classify(empty) ok = true, want false")
	}
}
