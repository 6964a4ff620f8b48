// settlement 本地结算服务：用模拟网关实现Settlement gRPC接口，
// 配合 payment.gateway=grpc 联调支付管道。
package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/xiebiao/fastorder/internal/infrastructure/config"
	"github.com/xiebiao/fastorder/internal/infrastructure/gateway"
	"github.com/xiebiao/fastorder/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("加载配置失败: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: "fastorder-settlement",
	})
	if err != nil {
		os.Stderr.WriteString("初始化日志失败: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.SetDefault(log)

	srv := grpc.NewServer()
	gateway.RegisterSettlementServer(srv,
		gateway.NewSettlementAdapter(gateway.NewSimulated(cfg.Payment.FailureRate, nil)))
	// 开发环境启用反射，便于grpcurl调试
	reflection.Register(srv)

	lis, err := net.Listen("tcp", cfg.Payment.SettlementListen)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.Payment.SettlementListen).Msg("监听端口失败")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().
			Str("addr", lis.Addr().String()).
			Float64("failure_rate", cfg.Payment.FailureRate).
			Msg("结算服务启动")
		return srv.Serve(lis)
	})
	g.Go(func() error {
		<-gctx.Done()
		srv.GracefulStop()
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("结算服务异常退出")
		return
	}
	log.Info().Msg("结算服务已关闭")
}
