package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/slack-go/slack"
	"go.uber.org/zap"

	"slack-ai-gateway/project/service"
)

// serveForm は form 形式のリクエストを処理します。
// payload を持つものはインタラクション、command を持つものはスラッシュコマンドとして扱います。
func (h *SlackHandler) serveForm(w http.ResponseWriter, r *http.Request, body []byte) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	switch {
	case values.Get("payload") != "":
		h.serveInteraction(w, r, values.Get("payload"))
	case values.Get("command") != "":
		h.serveCommand(w, r, body)
	default:
		http.Error(w, "Bad Request", http.StatusBadRequest)
	}
}

// serveCommand はスラッシュコマンドを処理します
func (h *SlackHandler) serveCommand(w http.ResponseWriter, r *http.Request, body []byte) {
	// 本体は読み込み済みのため、SlashCommandParse 用に戻す
	r.Body = io.NopCloser(bytes.NewReader(body))
	cmd, err := slack.SlashCommandParse(r)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	h.dispatch(w, r, service.RawEvent{Command: &cmd},
		zap.String("command", cmd.Command), zap.String("team_id", cmd.TeamID))
}

// serveInteraction はボタン操作などのインタラクションを処理します
func (h *SlackHandler) serveInteraction(w http.ResponseWriter, r *http.Request, payload string) {
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(payload), &cb); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	h.dispatch(w, r, service.RawEvent{Interaction: &cb},
		zap.String("interaction_type", string(cb.Type)), zap.String("team_id", cb.Team.ID))
}
