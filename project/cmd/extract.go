package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"slack-ai-gateway/project/infrastructure/config"
	"slack-ai-gateway/project/infrastructure/logging"
	"slack-ai-gateway/project/infrastructure/web"
)

var errNonPositiveTimeout = errors.New("タイムアウトは正の値を指定してください")

func extractCmd() *cobra.Command {
	var (
		connectTimeout time.Duration
		readTimeout    time.Duration
		removeAside    bool
		logLevel       string
	)

	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Web ページを取得し、タイトル・説明・見出し・本文を JSON で出力します",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// EXTRACT_* 環境変数を既定値とし、指定されたフラグで上書きする
			cfg, err := config.NewExtractConfig()
			if err != nil {
				return fmt.Errorf("設定読み込み失敗: %w", err)
			}
			flags := cmd.Flags()
			if flags.Changed("connect-timeout") {
				cfg.ConnectTimeout = connectTimeout
			}
			if flags.Changed("read-timeout") {
				cfg.ReadTimeout = readTimeout
			}
			if flags.Changed("remove-aside") {
				cfg.RemoveAside = removeAside
			}
			if cfg.ConnectTimeout <= 0 || cfg.ReadTimeout <= 0 {
				return errNonPositiveTimeout
			}

			logger, err := logging.New(logLevel, "text")
			if err != nil {
				return err
			}
			defer logger.Sync()

			extractor := web.NewExtractor(web.ExtractorConfig{
				ConnectTimeout: cfg.ConnectTimeout,
				ReadTimeout:    cfg.ReadTimeout,
				RemoveAside:    cfg.RemoveAside,
			}, logger)

			page, err := extractor.Fetch(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("ページを取得できませんでした: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetEscapeHTML(false)
			enc.SetIndent("", "  ")
			return enc.Encode(page)
		},
	}

	cmd.Flags().DurationVar(&connectTimeout, "connect-timeout", 0, "接続タイムアウト（未指定時は EXTRACT_CONNECT_TIMEOUT）")
	cmd.Flags().DurationVar(&readTimeout, "read-timeout", 0, "読み込みタイムアウト（未指定時は EXTRACT_READ_TIMEOUT）")
	cmd.Flags().BoolVar(&removeAside, "remove-aside", false, "aside 要素を本文から除く（未指定時は EXTRACT_REMOVE_ASIDE）")
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "ログレベル (debug|info|warn|error)")
	return cmd
}
