// Package logger provides the slog front-end used across the client. In
// development it writes human-readable text; otherwise it logs JSON through a
// zap core.
package logger

import (
	"log/slog"
	"os"
	"time"

	slogzap "github.com/samber/slog-zap/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Service string
	Debug   bool
	// JSON selects the zap JSON backend over the plain text handler.
	JSON bool
}

func New(cfg Config) *slog.Logger {
	if cfg.Service == "" {
		cfg.Service = "chatclient"
	}

	lvl := slog.LevelInfo
	if cfg.Debug {
		lvl = slog.LevelDebug
	}

	var h slog.Handler
	if cfg.JSON {
		h = newZapHandler(lvl)
	} else {
		h = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}

	return slog.New(h).With("service", cfg.Service)
}

func newZapHandler(lvl slog.Level) slog.Handler {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	enc := zapcore.NewJSONEncoder(encCfg)

	core := zapcore.NewCore(enc, zapcore.AddSync(os.Stderr), toZapLevel(lvl))

	// Sample during bursts so a flapping connection can't flood the logs.
	core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 10)

	return slogzap.Option{Logger: zap.New(core)}.NewZapHandler()
}

func toZapLevel(lvl slog.Level) zapcore.Level {
	switch {
	case lvl <= slog.LevelDebug:
		return zapcore.DebugLevel
	case lvl == slog.LevelInfo:
		return zapcore.InfoLevel
	case lvl == slog.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}
