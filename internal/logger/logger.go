package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Newは環境に応じたzapロガーを作る。prodはJSON、それ以外はコンソール。
func New(env, level string) (*zap.Logger, error) {
	var zapCfg zap.Config
	if env == "prod" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	lv, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lv)

	return zapCfg.Build()
}
