package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"slack-ai-gateway/project/domain"
	"slack-ai-gateway/project/handler"
	"slack-ai-gateway/project/infrastructure/config"
	"slack-ai-gateway/project/infrastructure/httpsec"
	"slack-ai-gateway/project/infrastructure/logging"
	"slack-ai-gateway/project/infrastructure/queue"
	"slack-ai-gateway/project/infrastructure/slack"
	"slack-ai-gateway/project/infrastructure/store"
	"slack-ai-gateway/project/infrastructure/tasks"
	"slack-ai-gateway/project/infrastructure/web"
	"slack-ai-gateway/project/service"
)

const shutdownTimeout = 10 * time.Second

// queueBackend は Close 可能なキュー送信ポートです
type queueBackend interface {
	service.QueuePort
	Close() error
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Slack のイベントを受け付ける HTTP サーバーを起動します",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx)
		},
	}
}

func runServe(ctx context.Context) error {
	// 1. 設定を読み込む
	cfg, err := config.NewConfig(ctx)
	if err != nil {
		return fmt.Errorf("設定読み込み失敗: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("ロガー初期化失敗: %w", err)
	}
	defer logger.Sync()

	// 2. 依存関係を初期化
	slackClient := slack.NewSlackClient(cfg.SlackBotToken)
	bot, err := slackClient.Identity(ctx)
	if err != nil {
		return fmt.Errorf("Bot 情報取得失敗: %w", err)
	}
	logger.Info("Bot 情報取得", zap.String("user_id", bot.UserID), zap.String("bot_id", bot.BotID))

	qp, err := newQueue(ctx, cfg)
	if err != nil {
		return err
	}
	defer qp.Close()

	// Firestore（コレクション未設定の場合は重複判定なし）
	var ledger domain.EventLedger
	if cfg.FirestoreCollectionEvents != "" {
		fs, err := store.NewFirestoreLedger(ctx, cfg.GCPProjectID, cfg.FirestoreCollectionEvents, cfg.EventLedgerTTL)
		if err != nil {
			return fmt.Errorf("Firestore 初期化失敗: %w", err)
		}
		defer fs.Close()
		ledger = fs
	}

	// 3. サービス層を初期化
	links := service.NewLinkPolicy(
		web.NewResolver(cfg.ResolveConnectTimeout, cfg.ResolveReadTimeout),
		service.LinkRules{
			DomainBlacklist:    cfg.DomainBlacklist,
			ExtensionBlacklist: cfg.ExtensionBlacklist,
			TrackingParams:     cfg.TrackingParams,
		},
		logger,
	)

	assistantConf, err := service.LoadAssistantConfig(cfg.AssistantConfigPath)
	if err != nil {
		return fmt.Errorf("アシスタント設定読み込み失敗: %w", err)
	}

	dispatcher := service.NewDispatcher(service.DispatcherDeps{
		Bot:       bot,
		Slack:     slackClient,
		Threads:   service.NewThreadReconstructor(slackClient, logger),
		Links:     links,
		Publisher: service.NewPublisher(slackClient, qp, cfg.ProcessingMessage, logger),
		Greeter:   service.NewAssistantGreeter(slackClient, assistantConf, cfg.Location()),
		Ledger:    ledger,
		Logger:    logger,
	})

	classifier := service.NewClassifier(service.ClassifierConfig{
		Bot:            bot,
		ShareChannelID: cfg.ShareChannelID,
		MailChannelID:  cfg.MailChannelID,
		SlashCommands:  cfg.SlashCommands,
		ActionPattern:  cfg.ActionPattern(),
	})

	if !cfg.VerifySignature {
		logger.Warn("署名検証が無効です")
	}
	verifier := httpsec.NewVerifier(cfg.SlackSigningSecret, cfg.VerifySignature)

	// 4. HTTP ハンドラーを設定
	mux := http.NewServeMux()

	// Slack イベント・スラッシュコマンド・インタラクション
	slackHandler := handler.NewSlackHandler(classifier, dispatcher, verifier, logger, 0)
	mux.Handle("/slack/events", slackHandler)
	mux.Handle("/{$}", slackHandler)

	// ヘルスチェック
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// 5. サーバー起動
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("サーバー起動", zap.String("addr", srv.Addr), zap.String("queue", cfg.QueueBackend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバーエラー: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("シャットダウン開始")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("シャットダウン失敗: %w", err)
	}
	return nil
}

// newQueue は QUEUE_BACKEND に応じたキュー送信ポートを作成します
func newQueue(ctx context.Context, cfg *config.Config) (queueBackend, error) {
	switch cfg.QueueBackend {
	case "cloudtasks":
		ct, err := tasks.NewCloudTasksClient(ctx, tasks.QueueConfig{
			ProjectID:      cfg.GCPProjectID,
			Location:       cfg.TasksLocation,
			Queue:          cfg.TasksQueue,
			TargetURL:      cfg.TasksTargetURL,
			ServiceAccount: cfg.TasksServiceAccount,
		})
		if err != nil {
			return nil, fmt.Errorf("Cloud Tasks クライアント初期化失敗: %w", err)
		}
		return ct, nil
	default:
		ps, err := queue.NewPubSubPublisher(ctx, cfg.GCPProjectID, cfg.PubSubTopic)
		if err != nil {
			return nil, fmt.Errorf("Pub/Sub クライアント初期化失敗: %w", err)
		}
		return ps, nil
	}
}
