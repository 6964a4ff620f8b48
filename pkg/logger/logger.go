// Package logger 基于zerolog的结构化日志
//
// 使用方式：
//
//	log, _ := logger.New(logger.Config{Level: "info", Format: "json"})
//	logger.SetDefault(log)
//	logger.Ctx(ctx).Info().Uint("order_id", id).Msg("订单已接单")
package logger

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 日志配置
type Config struct {
	Level        string // debug | info | warn | error
	Format       string // console | json
	Output       string // stdout | stderr | /path/to/file（按大小滚动）
	EnableCaller bool
	Service      string // 写入每条日志的service字段
}

// New 根据配置创建Logger
func New(cfg Config) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
		}
		level = l
	}

	out, err := openOutput(cfg.Output)
	if err != nil {
		return zerolog.Nop(), err
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.DateTime}
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if cfg.Service != "" {
		ctx = ctx.Str("service", cfg.Service)
	}
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}
	return ctx.Logger(), nil
}

func openOutput(output string) (io.Writer, error) {
	switch output {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	default:
		if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
			return nil, fmt.Errorf("创建日志目录失败: %w", err)
		}
		return &lumberjack.Logger{
			Filename:   output,
			MaxSize:    100, // MB
			MaxBackups: 7,
			MaxAge:     30, // 天
			Compress:   true,
		}, nil
	}
}

// SetDefault 设置全局Logger
// context中没有Logger时，Ctx会回落到这里设置的Logger
func SetDefault(l zerolog.Logger) {
	zlog.Logger = l
	zerolog.DefaultContextLogger = &zlog.Logger
}

// WithContext 将Logger放入context
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}

// Ctx 从context取出Logger
func Ctx(ctx context.Context) *zerolog.Logger {
	return zerolog.Ctx(ctx)
}
