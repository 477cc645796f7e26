package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"
)

const (
	defaultGreeting    = "はいはい〜。"
	maxSuggestedPrompt = 4
)

// AssistantConfig は AI アシスタントの挨拶と提案プロンプトの設定です
//
//	{
//	  "greetings": {"Monday": {"9-12": ["おはようございます"]}},
//	  "suggested_prompts": ["この記事を要約して", ...]
//	}
type AssistantConfig struct {
	// Greetings は 曜日 → "開始時-終了時"（3時間単位）→ 挨拶候補 です
	Greetings map[string]map[string][]string `json:"greetings"`

	SuggestedPrompts []string `json:"suggested_prompts"`
}

// LoadAssistantConfig は設定ファイルを読み込みます。ファイルが無い場合は空の設定を返します
func LoadAssistantConfig(path string) (AssistantConfig, error) {
	var conf AssistantConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return conf, nil
		}
		return conf, fmt.Errorf("assistant: 設定ファイル読み込み失敗 (path=%s): %w", path, err)
	}
	if err := json.Unmarshal(b, &conf); err != nil {
		return conf, fmt.Errorf("assistant: 設定ファイル解析失敗 (path=%s): %w", path, err)
	}
	return conf, nil
}

// AssistantGreeter はアシスタントスレッド開始時の挨拶を行います
type AssistantGreeter struct {
	sp   SlackPort
	conf AssistantConfig
	loc  *time.Location
	now  func() time.Time
	intN func(n int) int
}

// NewAssistantGreeter は AssistantGreeter を作成します
func NewAssistantGreeter(sp SlackPort, conf AssistantConfig, loc *time.Location) *AssistantGreeter {
	if loc == nil {
		loc = time.UTC
	}
	return &AssistantGreeter{
		sp:   sp,
		conf: conf,
		loc:  loc,
		now:  time.Now,
		intN: rand.IntN,
	}
}

// Greeting は現在時刻に応じた挨拶と、ランダムに選んだ提案プロンプト（最大4件）を返します
func (g *AssistantGreeter) Greeting() (string, []string) {
	now := g.now().In(g.loc)
	bucket := now.Hour() / 3 * 3
	hourRange := fmt.Sprintf("%d-%d", bucket, bucket+3)

	greeting := defaultGreeting
	if candidates := g.conf.Greetings[now.Weekday().String()][hourRange]; len(candidates) > 0 {
		greeting = candidates[g.intN(len(candidates))]
	}
	return greeting, g.samplePrompts()
}

// Start は挨拶をスレッドへ投稿し、提案プロンプトを設定します
func (g *AssistantGreeter) Start(ctx context.Context, channelID, threadTS string) error {
	greeting, prompts := g.Greeting()
	if _, err := g.sp.PostMessage(ctx, channelID, threadTS, greeting); err != nil {
		return fmt.Errorf("assistant: 挨拶投稿失敗 (channel=%s, thread_ts=%s): %w", channelID, threadTS, err)
	}
	if len(prompts) == 0 {
		return nil
	}
	if err := g.sp.SetSuggestedPrompts(ctx, channelID, threadTS, prompts); err != nil {
		return fmt.Errorf("assistant: 提案プロンプト設定失敗 (channel=%s, thread_ts=%s): %w", channelID, threadTS, err)
	}
	return nil
}

// samplePrompts は重複なしで提案プロンプトを選びます
func (g *AssistantGreeter) samplePrompts() []string {
	pool := append([]string(nil), g.conf.SuggestedPrompts...)
	n := min(maxSuggestedPrompt, len(pool))
	for i := 0; i < n; i++ {
		j := i + g.intN(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:n]
}
