// Package logger provides structured logging for MerchAuth.
//
// It wraps Uber's zap logger and exposes a global instance configured from
// the LOG_LEVEL setting. Initialize once at startup:
//
//	logger.Init("debug") // Options: debug, info, warn, error
//
// then log through the global:
//
//	logger.Log.Info("user logged in", zap.String("user_id", userID))
package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Log *zap.Logger = zap.NewNop()

func Init(level string) {
	var zapLevel zapcore.Level
	if err := zapLevel.UnmarshalText([]byte(level)); err != nil {
		zapLevel = zap.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	var err error
	Log, err = cfg.Build()
	if err != nil {
		panic(err)
	}
}
