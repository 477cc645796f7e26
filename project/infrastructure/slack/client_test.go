package slack

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"

	"github.com/slack-go/slack"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/service"
)

// slackAPI は Slack Web API の最小限のテスト用サーバーです
type slackAPI struct {
	mu       sync.Mutex
	handlers map[string]func(form map[string]string) string
}

func newSlackAPI(t *testing.T, handlers map[string]func(form map[string]string) string) *SlackClient {
	t.Helper()
	api := &slackAPI{handlers: handlers}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)
	return NewSlackClient("xoxb-test", slack.OptionAPIURL(server.URL+"/"))
}

func (a *slackAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	form := map[string]string{}
	for k := range r.Form {
		form[k] = r.Form.Get(k)
	}
	method := r.URL.Path[1:]

	a.mu.Lock()
	handler, ok := a.handlers[method]
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		fmt.Fprint(w, `{"ok":false,"error":"unknown_method"}`)
		return
	}
	fmt.Fprint(w, handler(form))
}

func TestIdentity(t *testing.T) {
	t.Parallel()

	sc := newSlackAPI(t, map[string]func(map[string]string) string{
		"auth.test": func(map[string]string) string {
			return `{"ok":true,"user_id":"UBOT","bot_id":"BBOT","team_id":"T1"}`
		},
	})
	got, err := sc.Identity(context.Background())
	if err != nil {
		t.Fatalf("Identity() error = %v", err)
	}
	if want := (service.BotIdentity{UserID: "UBOT", BotID: "BBOT"}); got != want {
		t.Fatalf("Identity() = %+v, want %+v", got, want)
	}
}

func TestPostMessage(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var forms []map[string]string
	sc := newSlackAPI(t, map[string]func(map[string]string) string{
		"chat.postMessage": func(form map[string]string) string {
			mu.Lock()
			forms = append(forms, form)
			mu.Unlock()
			return `{"ok":true,"channel":"C1","ts":"123.456"}`
		},
	})

	ts, err := sc.PostMessage(context.Background(), "C1", "100.1", "Processing.")
	if err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}
	if ts != "123.456" {
		t.Fatalf("PostMessage() ts = %q, want %q", ts, "123.456")
	}
	if _, err := sc.PostMessage(context.Background(), "C1", "", "top level"); err != nil {
		t.Fatalf("PostMessage() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(forms) != 2 {
		t.Fatalf("requests = %d, want 2", len(forms))
	}
	if forms[0]["channel"] != "C1" || forms[0]["thread_ts"] != "100.1" || forms[0]["text"] != "Processing." {
		t.Fatalf("threaded form = %v", forms[0])
	}
	if _, ok := forms[1]["thread_ts"]; ok {
		t.Fatalf("top-level form has thread_ts: %v", forms[1])
	}
}

func TestPostMessageError(t *testing.T) {
	t.Parallel()

	sc := newSlackAPI(t, map[string]func(map[string]string) string{
		"chat.postMessage": func(map[string]string) string { return `{"ok":false,"error":"not_in_channel"}` },
	})
	if _, err := sc.PostMessage(context.Background(), "C1", "", "x"); err == nil {
		t.Fatalf("PostMessage() error = nil, want error")
	}
}

func TestConversationRepliesPaginates(t *testing.T) {
	t.Parallel()

	sc := newSlackAPI(t, map[string]func(map[string]string) string{
		"conversations.replies": func(form map[string]string) string {
			if form["cursor"] == "" {
				return `{"ok":true,"has_more":true,"response_metadata":{"next_cursor":"page2"},"messages":[
					{"type":"message","user":"U1","text":"question","ts":"100.1","thread_ts":"100.1","reply_users":["UBOT","U1"]},
					{"type":"message","user":"UBOT","bot_id":"BBOT","text":"answer","ts":"100.2","thread_ts":"100.1"}
				]}`
			}
			return `{"ok":true,"has_more":false,"messages":[
				{"type":"message","user":"U1","text":"follow up","ts":"100.3","thread_ts":"100.1"}
			]}`
		},
	})

	got, err := sc.ConversationReplies(context.Background(), "C1", "100.1")
	if err != nil {
		t.Fatalf("ConversationReplies() error = %v", err)
	}
	want := []domain.ThreadReply{
		{User: "U1", Text: "question", TS: "100.1", ReplyUsers: []string{"UBOT", "U1"}},
		{User: "UBOT", BotID: "BBOT", Text: "answer", TS: "100.2"},
		{User: "U1", Text: "follow up", TS: "100.3"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ConversationReplies() = %#v, want %#v", got, want)
	}
}

func TestSetSuggestedPrompts(t *testing.T) {
	t.Parallel()

	called := make(chan struct{}, 1)
	sc := newSlackAPI(t, map[string]func(map[string]string) string{
		"assistant.threads.setSuggestedPrompts": func(map[string]string) string {
			called <- struct{}{}
			return `{"ok":true}`
		},
	})

	if err := sc.SetSuggestedPrompts(context.Background(), "D1", "500.1", []string{"要約して"}); err != nil {
		t.Fatalf("SetSuggestedPrompts() error = %v", err)
	}
	select {
	case <-called:
	default:
		t.Fatalf("assistant.threads.setSuggestedPrompts was not called")
	}
}
