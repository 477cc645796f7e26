package service

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"slack-ai-gateway/project/domain"
)

func TestReconstruct(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		replies []domain.ThreadReply
		err     error
		want    []domain.ChatTurn
		wantOK  bool
	}{
		{
			name: "bot participant, replies sorted by ts",
			replies: []domain.ThreadReply{
				{User: "U1", Text: "first", TS: "100.1", ReplyUsers: []string{"U1", "UBOT"}},
				{User: "U1", Text: "third", TS: "100.3"},
				{User: "UBOT", BotID: "BBOT", Text: "second", TS: "100.2"},
			},
			want: []domain.ChatTurn{
				domain.UserTurn("first"),
				domain.AssistantTurn("second"),
				domain.UserTurn("third"),
			},
			wantOK: true,
		},
		{
			name: "other bots count as assistant",
			replies: []domain.ThreadReply{
				{User: "U1", Text: "q", TS: "100.1", ReplyUsers: []string{"UBOT"}},
				{BotID: "BOTHER", Text: "integration", TS: "100.2"},
			},
			want:   []domain.ChatTurn{domain.UserTurn("q"), domain.AssistantTurn("integration")},
			wantOK: true,
		},
		{
			name: "bot not participating",
			replies: []domain.ThreadReply{
				{User: "U1", Text: "hi", TS: "100.1", ReplyUsers: []string{"U2"}},
				{User: "U2", Text: "hello", TS: "100.2"},
			},
		},
		{
			name: "root without reply users",
			replies: []domain.ThreadReply{
				{User: "U1", Text: "hi", TS: "100.1"},
			},
		},
		{
			name: "empty thread",
		},
		{
			name: "fetch failure",
			err:  errors.New("channel_not_found"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sp := &fakeSlack{replies: tt.replies, repliesErr: tt.err}
			r := NewThreadReconstructor(sp, zap.NewNop())

			got, ok := r.Reconstruct(context.Background(), "C1", "100.1", "UBOT")
			if ok != tt.wantOK {
				t.Fatalf("Reconstruct() ok = %v, want %v", ok, tt.wantOK)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("Reconstruct() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestReconstructUsesThreadParentForParticipation(t *testing.T) {
	t.Parallel()

	// 親メッセージが先頭以外に来ても参加者判定は親で行う
	sp := &fakeSlack{replies: []domain.ThreadReply{
		{User: "U2", Text: "reply", TS: "100.2"},
		{User: "U1", Text: "parent", TS: "100.1", ReplyUsers: []string{"UBOT"}},
	}}
	got, ok := NewThreadReconstructor(sp, zap.NewNop()).Reconstruct(context.Background(), "C1", "100.1", "UBOT")
	if !ok {
		t.Fatalf("Reconstruct() ok = false, want true")
	}
	want := []domain.ChatTurn{domain.UserTurn("parent"), domain.UserTurn("reply")}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Reconstruct() = %#v, want %#v", got, want)
	}
}
