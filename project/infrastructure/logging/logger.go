package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New はログレベルと出力形式から zap.Logger を作成します。
// format が "text" の場合は開発用のコンソール出力、それ以外は Cloud Logging が解釈できる JSON 出力です。
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: ログレベルが不正です (level=%s): %w", level, err)
	}

	var conf zap.Config
	if format == "text" {
		conf = zap.NewDevelopmentConfig()
	} else {
		conf = zap.NewProductionConfig()
		// Cloud Logging の構造化ログのキー名に合わせる
		conf.EncoderConfig.LevelKey = "severity"
		conf.EncoderConfig.MessageKey = "message"
		conf.EncoderConfig.TimeKey = "time"
		conf.EncoderConfig.EncodeLevel = severityEncoder
		conf.EncoderConfig.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	}
	conf.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := conf.Build()
	if err != nil {
		return nil, fmt.Errorf("logging: ロガー作成失敗: %w", err)
	}
	return logger, nil
}

// severityEncoder は zap のレベルを Cloud Logging の severity 名に変換します
func severityEncoder(l zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	switch l {
	case zapcore.DebugLevel:
		enc.AppendString("DEBUG")
	case zapcore.InfoLevel:
		enc.AppendString("INFO")
	case zapcore.WarnLevel:
		enc.AppendString("WARNING")
	case zapcore.ErrorLevel:
		enc.AppendString("ERROR")
	case zapcore.DPanicLevel, zapcore.PanicLevel:
		enc.AppendString("CRITICAL")
	case zapcore.FatalLevel:
		enc.AppendString("ALERT")
	default:
		enc.AppendString("DEFAULT")
	}
}
