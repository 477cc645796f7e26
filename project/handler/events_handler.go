package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"go.uber.org/zap"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/dto"
	"slack-ai-gateway/project/infrastructure/httpsec"
	"slack-ai-gateway/project/service"
)

const (
	// maxRequestBytes は受け付けるリクエスト本体の上限です
	maxRequestBytes = 1 << 20

	// defaultDispatchTimeout は1リクエストあたりの処理時間の上限です
	defaultDispatchTimeout = 30 * time.Second

	headerRetryNum = "X-Slack-Retry-Num"

	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"

	typeURLVerification = "url_verification"
	typeEventCallback   = "event_callback"
)

// SlackHandler は Slack からの全リクエスト（Events API・スラッシュコマンド・インタラクション）を
// 1つのエンドポイントで受け付けます
type SlackHandler struct {
	classifier *service.Classifier
	dispatcher service.Dispatcher
	verifier   *httpsec.Verifier
	logger     *zap.Logger
	timeout    time.Duration
}

// NewSlackHandler は SlackHandler を作成します。timeout が 0 以下の場合は既定値を使います
func NewSlackHandler(
	classifier *service.Classifier,
	dispatcher service.Dispatcher,
	verifier *httpsec.Verifier,
	logger *zap.Logger,
	timeout time.Duration,
) *SlackHandler {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &SlackHandler{
		classifier: classifier,
		dispatcher: dispatcher,
		verifier:   verifier,
		logger:     logger.Named("handler"),
		timeout:    timeout,
	}
}

// ServeHTTP は Slack リクエスト受信エンドポイントです
func (h *SlackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Only POST requests are accepted", http.StatusMethodNotAllowed)
		return
	}
	// 再送は処理済み（または処理中）なので受理だけ返す
	if r.Header.Get(headerRetryNum) != "" {
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "No need to resend")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	switch mediaType {
	case contentTypeJSON:
		h.serveEvents(w, r, body)
	case contentTypeForm:
		if !h.verify(w, r, body) {
			return
		}
		h.serveForm(w, r, body)
	default:
		http.Error(w, "Bad Request", http.StatusBadRequest)
	}
}

// serveEvents は Events API の JSON を処理します
func (h *SlackHandler) serveEvents(w http.ResponseWriter, r *http.Request, body []byte) {
	var req dto.SlackEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// URL 検証は署名検証より先に応答する
	if req.Type == typeURLVerification {
		w.Header().Set("Content-Type", contentTypeJSON)
		json.NewEncoder(w).Encode(map[string]string{"challenge": req.Challenge})
		return
	}

	if !h.verify(w, r, body) {
		return
	}

	if req.Type != typeEventCallback {
		w.WriteHeader(http.StatusOK)
		return
	}

	h.dispatch(w, r, service.RawEvent{Event: &req.Event},
		zap.String("event_id", req.EventID), zap.String("event_type", req.Event.Type), zap.String("team_id", req.TeamID))
}

// verify は署名を検証し、失敗した場合は 401 を書き込んで false を返します
func (h *SlackHandler) verify(w http.ResponseWriter, r *http.Request, body []byte) bool {
	if err := h.verifier.Verify(r.Header, body); err != nil {
		h.logger.Warn("署名検証失敗", zap.Error(err))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return false
	}
	return true
}

// dispatch は分類と処理を行い、結果をステータスコードとして返します。
// 対象外のペイロードは 200、処理の致命的な失敗は 500 になります。
func (h *SlackHandler) dispatch(w http.ResponseWriter, r *http.Request, raw service.RawEvent, fields ...zap.Field) {
	ev, ok := h.classifier.Classify(raw)
	if !ok {
		h.logger.Debug("対象外のイベント", fields...)
		w.WriteHeader(http.StatusOK)
		return
	}

	// Slack への応答後も処理を打ち切らないよう、リクエストのキャンセルは引き継がない
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.timeout)
	defer cancel()

	if err := h.dispatcher.Dispatch(ctx, ev); err != nil {
		o := ev.EventOrigin()
		h.logger.Error("イベント処理失敗",
			append(fields,
				zap.String("kind", eventKind(ev)),
				zap.String("channel", o.Channel),
				zap.String("ts", o.TS),
				zap.String("thread_ts", o.ThreadTS),
				zap.Bool("invalid", errors.Is(err, domain.ErrInvalid)),
				zap.Error(err))...)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func eventKind(ev domain.InboundEvent) string {
	switch ev.(type) {
	case domain.ThreadMessage:
		return "thread_message"
	case domain.Mention:
		return "mention"
	case domain.SlashCommand:
		return "slash_command"
	case domain.ButtonAction:
		return "button_action"
	case domain.FileShare:
		return "file_share"
	case domain.ShareLink:
		return "share_link"
	case domain.AssistantThreadStarted:
		return "assistant_thread_started"
	default:
		return "unknown"
	}
}
