// @title           FastOrder API
// @version         1.0
// @description     订单生命周期与支付服务：下单、接单、支付（熔断+重试）、按时限退款取消
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/xiebiao/fastorder/docs"
	"github.com/xiebiao/fastorder/internal/infrastructure/config"
	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/metrics"
	"github.com/xiebiao/fastorder/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("加载配置失败: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:        cfg.Log.Level,
		Format:       cfg.Log.Format,
		Output:       cfg.Log.Output,
		EnableCaller: cfg.Log.EnableCaller,
		Service:      "fastorder-api",
	})
	if err != nil {
		os.Stderr.WriteString("初始化日志失败: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.SetDefault(log)

	if cfg.Tracing.Enabled {
		shutdown, err := tracing.InitTracer(tracing.Config{
			ServiceName: "fastorder-api",
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRatio: cfg.Tracing.SampleRatio,
			Insecure:    cfg.Tracing.Insecure,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("初始化链路追踪失败")
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				log.Warn().Err(err).Msg("关闭链路追踪失败")
			}
		}()
	}
	if cfg.Metrics.Enabled {
		metrics.InitMetrics()
	}

	engine, cleanup, err := InitializeApp(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("初始化应用失败")
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", srv.Addr).
			Str("storage", cfg.Storage.Driver).
			Str("gateway", cfg.Payment.Gateway).
			Str("lock", cfg.Lock.Driver).
			Str("notification", cfg.Notification.Driver).
			Msg("HTTP服务启动")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("正在关闭服务...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("服务异常退出")
		return
	}
	log.Info().Msg("服务已关闭")
}
