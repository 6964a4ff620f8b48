// notifier 订单事件消费者：从RabbitMQ或Kafka读取订单事件并发送通知
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/xiebiao/fastorder/internal/infrastructure/config"
	notify "github.com/xiebiao/fastorder/internal/infrastructure/notification"
	"github.com/xiebiao/fastorder/pkg/logger"
	"github.com/xiebiao/fastorder/pkg/mq"
)

// 订单事件和支付凭证都要消费
var routingKeys = []string{"order.#", "payment.#"}

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
		Service:      "fastorder-notifier",
	})
	if err != nil {
		os.Stderr.WriteString("初始化日志失败: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	g, gctx := errgroup.WithContext(ctx)

	switch cfg.Notification.Driver {
	case "rabbitmq":
		consumer, err := mq.NewConsumer(cfg.Notification.RabbitMQURL, cfg.Notification.Exchange, "topic",
			cfg.Notification.Queue, routingKeys)
		if err != nil {
			log.Fatal().Err(err).Msg("连接RabbitMQ失败")
		}
		defer consumer.Close()

		g.Go(func() error {
			return consumer.Consume(gctx, notify.HandleEvent)
		})

	case "kafka":
		g.Go(func() error {
			return notify.ConsumeKafka(gctx, cfg.Notification.KafkaBrokers, cfg.Notification.KafkaTopic,
				cfg.Notification.Queue)
		})

	default:
		log.Fatal().Str("driver", cfg.Notification.Driver).Msg("当前通知驱动没有消息可消费")
	}

	log.Info().Str("driver", cfg.Notification.Driver).Msg("通知消费者启动")
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("通知消费者异常退出")
		return
	}
	log.Info().Msg("通知消费者已退出")
}
