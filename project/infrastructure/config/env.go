package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"slack-ai-gateway/project/infrastructure/secret"
)

// secretsEnvKey は複数の設定値をまとめて渡す JSON 環境変数です（Secret Manager の環境変数マウント用）
const secretsEnvKey = "SECRETS"

// Config は環境変数から読み込まれるアプリケーション設定を表します
type Config struct {
	// 基本設定
	GCPProjectID string `env:"GCP_PROJECT_ID" validate:"required"`
	Port         string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat    string `env:"LOG_FORMAT" envDefault:"json" validate:"oneof=json text"`

	// Slack API設定（未設定の場合は Secret Manager から取得）
	SlackBotToken           string `env:"SLACK_BOT_TOKEN"`
	SlackSigningSecret      string `env:"SLACK_SIGNING_SECRET"`
	SecretBotTokenName      string `env:"SECRET_BOT_TOKEN_NAME" envDefault:"slack-bot-token"`
	SecretSigningSecretName string `env:"SECRET_SIGNING_SECRET_NAME" envDefault:"slack-signing-secret"`
	VerifySignature         bool   `env:"SLACK_VERIFY_SIGNATURE" envDefault:"true"`

	// 分類設定
	ShareChannelID      string   `env:"SHARE_CHANNEL_ID"`
	MailChannelID       string   `env:"MAIL_CHANNEL_ID"`
	SlashCommands       []string `env:"SLASH_COMMANDS" envDefault:"/gpt,/summarize,/idea"`
	ButtonActionPattern string   `env:"BUTTON_ACTION_PATTERN" envDefault:"^ai_"`
	ProcessingMessage   string   `env:"PROCESSING_MESSAGE" envDefault:"Processing." validate:"required"`

	// キュー設定
	QueueBackend        string `env:"QUEUE_BACKEND" envDefault:"pubsub" validate:"oneof=pubsub cloudtasks"`
	PubSubTopic         string `env:"PUBSUB_TOPIC" envDefault:"slack-ai-chat" validate:"required_if=QueueBackend pubsub"`
	TasksLocation       string `env:"TASKS_LOCATION" validate:"required_if=QueueBackend cloudtasks"`
	TasksQueue          string `env:"TASKS_QUEUE" validate:"required_if=QueueBackend cloudtasks"`
	TasksTargetURL      string `env:"TASKS_TARGET_URL" validate:"required_if=QueueBackend cloudtasks"`
	TasksServiceAccount string `env:"TASKS_SERVICE_ACCOUNT" validate:"omitempty,email"`

	// Firestore設定（コレクション名が空の場合は重複判定を行わない）
	FirestoreCollectionEvents string        `env:"FIRESTORE_COLLECTION_EVENTS"`
	EventLedgerTTL            time.Duration `env:"EVENT_LEDGER_TTL" envDefault:"24h" validate:"gt=0"`

	// URL 共有ポリシー
	DomainBlacklist    []string `env:"DOMAIN_BLACKLIST" envDefault:"twitter.com,speakerdeck.com,youtube.com,www.youtube.com"`
	ExtensionBlacklist []string `env:"EXTENSION_BLACKLIST" envDefault:".pdf,.jpg,.png,.gif,.jpeg,.zip"`
	TrackingParams     []string `env:"TRACKING_PARAMS" envDefault:"utm_source,utm_medium,utm_campaign,gclid,n_cid,fbclid,yclid,msclkid,mc_eid,mc_cid,mc_sub"`

	// HTTP タイムアウト
	ResolveConnectTimeout time.Duration `env:"RESOLVE_CONNECT_TIMEOUT" envDefault:"1s" validate:"gt=0"`
	ResolveReadTimeout    time.Duration `env:"RESOLVE_READ_TIMEOUT" envDefault:"2s" validate:"gt=0"`

	// AI アシスタント設定
	AssistantConfigPath string `env:"ASSISTANT_CONFIG_PATH" envDefault:"conf/assistant.json"`
	AssistantTimezone   string `env:"ASSISTANT_TIMEZONE" envDefault:"Asia/Tokyo"`

	actionPattern *regexp.Regexp
	location      *time.Location
}

// ExtractConfig は Content Extractor の設定です。Slack や GCP の設定とは独立して読み込みます
type ExtractConfig struct {
	ConnectTimeout time.Duration `env:"EXTRACT_CONNECT_TIMEOUT" envDefault:"3s" validate:"gt=0"`
	ReadTimeout    time.Duration `env:"EXTRACT_READ_TIMEOUT" envDefault:"8s" validate:"gt=0"`
	RemoveAside    bool          `env:"EXTRACT_REMOVE_ASIDE" envDefault:"true"`
}

// ActionPattern はコンパイル済みの BUTTON_ACTION_PATTERN を返します
func (c *Config) ActionPattern() *regexp.Regexp { return c.actionPattern }

// Location は AI アシスタントの挨拶に使うタイムゾーンを返します
func (c *Config) Location() *time.Location { return c.location }

// SecretSource はシークレット値の取得元です
type SecretSource interface {
	GetSecret(ctx context.Context, secretName string) (string, error)
}

// SecretSourceFunc は検証済みのプロジェクトIDに対するシークレット取得元を返します
type SecretSourceFunc func(projectID string) SecretSource

// NewConfig はプロセスの環境変数から設定を読み込みます。
// Slack の認証情報が環境変数に無い場合のみ Secret Manager に接続します。
func NewConfig(ctx context.Context) (*Config, error) {
	lazy := &lazySecrets{}
	defer lazy.Close()
	return Load(ctx, env.ToMap(os.Environ()), func(projectID string) SecretSource {
		lazy.projectID = projectID
		return lazy
	})
}

// Load は与えられた環境変数マップから設定を読み込み、検証します。
// secrets が nil の場合は Secret Manager へのフォールバックを行いません。
func Load(ctx context.Context, environ map[string]string, secrets SecretSourceFunc) (*Config, error) {
	environ, err := mergeSecretsJSON(environ)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return nil, fmt.Errorf("config: 環境変数の解析失敗: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config: 設定値の検証失敗: %w", err)
	}

	// プロジェクトIDは SECRETS から補完される場合があるため、検証後の値を渡す
	var src SecretSource
	if secrets != nil {
		src = secrets(cfg.GCPProjectID)
	}
	if cfg.SlackBotToken == "" {
		cfg.SlackBotToken, err = fromSecret(ctx, src, cfg.SecretBotTokenName)
		if err != nil {
			return nil, fmt.Errorf("config: SLACK_BOT_TOKEN 取得失敗: %w", err)
		}
	}
	if cfg.VerifySignature && cfg.SlackSigningSecret == "" {
		cfg.SlackSigningSecret, err = fromSecret(ctx, src, cfg.SecretSigningSecretName)
		if err != nil {
			return nil, fmt.Errorf("config: SLACK_SIGNING_SECRET 取得失敗: %w", err)
		}
	}

	cfg.actionPattern, err = regexp.Compile(cfg.ButtonActionPattern)
	if err != nil {
		return nil, fmt.Errorf("config: BUTTON_ACTION_PATTERN が不正です: %w", err)
	}
	cfg.location, err = time.LoadLocation(cfg.AssistantTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: ASSISTANT_TIMEZONE が不正です: %w", err)
	}

	return &cfg, nil
}

// NewExtractConfig はプロセスの環境変数から Content Extractor の設定のみを読み込みます
func NewExtractConfig() (ExtractConfig, error) {
	return LoadExtract(env.ToMap(os.Environ()))
}

// LoadExtract は与えられた環境変数マップから Content Extractor の設定を読み込みます
func LoadExtract(environ map[string]string) (ExtractConfig, error) {
	var cfg ExtractConfig
	environ, err := mergeSecretsJSON(environ)
	if err != nil {
		return cfg, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return cfg, fmt.Errorf("config: 環境変数の解析失敗: %w", err)
	}
	if err := validator.New().Struct(&cfg); err != nil {
		return cfg, fmt.Errorf("config: 設定値の検証失敗: %w", err)
	}
	return cfg, nil
}

// mergeSecretsJSON は SECRETS（JSON オブジェクト）の値を、未設定のキーにのみ補完します
func mergeSecretsJSON(environ map[string]string) (map[string]string, error) {
	merged := make(map[string]string, len(environ))
	for k, v := range environ {
		merged[k] = v
	}
	raw := merged[secretsEnvKey]
	if raw == "" {
		return merged, nil
	}

	var values map[string]string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("config: %s の JSON 解析失敗: %w", secretsEnvKey, err)
	}
	for k, v := range values {
		if merged[k] == "" {
			merged[k] = v
		}
	}
	return merged, nil
}

var errNoSecretSource = errors.New("環境変数が未設定で、Secret Manager も利用できません")

func fromSecret(ctx context.Context, secrets SecretSource, name string) (string, error) {
	if secrets == nil {
		return "", errNoSecretSource
	}
	return secrets.GetSecret(ctx, name)
}

// lazySecrets は初回アクセス時に Secret Manager クライアントを作成する SecretSource です
type lazySecrets struct {
	projectID string
	mgr       *secret.Manager
}

func (l *lazySecrets) GetSecret(ctx context.Context, secretName string) (string, error) {
	if l.mgr == nil {
		mgr, err := secret.NewManager(ctx, l.projectID)
		if err != nil {
			return "", err
		}
		l.mgr = mgr
	}
	return l.mgr.GetSecret(ctx, secretName)
}

func (l *lazySecrets) Close() error {
	if l.mgr == nil {
		return nil
	}
	return l.mgr.Close()
}
