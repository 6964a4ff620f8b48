package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	appayment "github.com/xiebiao/fastorder/internal/application/payment"
	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/internal/domain/product"
	"github.com/xiebiao/fastorder/internal/infrastructure/config"
	"github.com/xiebiao/fastorder/internal/infrastructure/gateway"
	notify "github.com/xiebiao/fastorder/internal/infrastructure/notification"
	"github.com/xiebiao/fastorder/internal/infrastructure/persistence/memory"
	"github.com/xiebiao/fastorder/internal/infrastructure/persistence/mysql"
	"github.com/xiebiao/fastorder/internal/infrastructure/persistence/redis"
	"github.com/xiebiao/fastorder/internal/interface/http/handler"
	"github.com/xiebiao/fastorder/internal/interface/http/middleware"
	"github.com/xiebiao/fastorder/internal/interface/http/router"
	"github.com/xiebiao/fastorder/pkg/circuitbreaker"
	"github.com/xiebiao/fastorder/pkg/jwt"
)

// Repositories 按storage.driver选出的一组仓储
type Repositories struct {
	Orders   order.Repository
	Products product.Repository
	Payments payment.Repository
}

// provideRepositories memory驱动用于本地开发，启动时写入几件演示商品
func provideRepositories(cfg *config.Config, log zerolog.Logger) (*Repositories, func(), error) {
	if cfg.Storage.Driver == "memory" {
		repos := &Repositories{
			Orders:   memory.NewOrderRepository(),
			Products: memory.NewProductRepository(),
			Payments: memory.NewPaymentRepository(),
		}
		if err := seedDemoProducts(repos.Products); err != nil {
			return nil, nil, err
		}
		log.Warn().Msg("使用内存存储，重启后数据丢失")
		return repos, func() {}, nil
	}

	db, err := mysql.NewDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return &Repositories{
		Orders:   mysql.NewOrderRepository(db),
		Products: mysql.NewProductRepository(db),
		Payments: mysql.NewPaymentRepository(db, mysql.NewTxManager(db)),
	}, cleanup, nil
}

func seedDemoProducts(repo product.Repository) error {
	demo := []struct {
		name  string
		price int64
		stock int
	}{
		{"机械键盘", 39900, 50},
		{"降噪耳机", 129900, 20},
		{"USB-C扩展坞", 19900, 100},
	}
	for _, d := range demo {
		p, err := product.NewProduct(d.name, d.price, d.stock)
		if err != nil {
			return err
		}
		if err := repo.Create(context.Background(), p); err != nil {
			return err
		}
	}
	return nil
}

// provideRedis 只有锁驱动为redis时才连接Redis，否则返回nil
func provideRedis(cfg *config.Config) (*goredis.Client, func(), error) {
	if cfg.Lock.Driver != "redis" {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(cfg)
	if err != nil {
		return nil, nil, err
	}
	return client, func() { _ = client.Close() }, nil
}

func provideLocker(cfg *config.Config, client *goredis.Client) order.Locker {
	if client == nil {
		return memory.NewOrderLocker()
	}
	return redis.NewOrderLocker(client, cfg.Lock.TTL, cfg.Lock.Wait)
}

func provideTokenBlacklist(client *goredis.Client) middleware.TokenBlacklist {
	if client == nil {
		return nil
	}
	return redis.NewTokenBlacklist(client)
}

func provideGateway(cfg *config.Config) (payment.Gateway, func(), error) {
	return gateway.New(cfg.Payment)
}

func providePipeline(cfg *config.Config, gw payment.Gateway) *appayment.Pipeline {
	breaker := appayment.NewGatewayBreaker("payment-gateway", circuitbreaker.Config{
		FailureThreshold: cfg.Payment.FailureThreshold,
		Cooldown:         cfg.Payment.Cooldown,
		HalfOpen:         cfg.Payment.HalfOpen,
	})
	return appayment.NewPipeline(gw, breaker, appayment.Options{
		MaxAttempts: cfg.Payment.MaxAttempts,
		RetryOnOpen: cfg.Payment.RetryOnOpen,
		Jitter:      cfg.Payment.Jitter,
	})
}

// provideNotifier cleanup等待在途通知发送完毕
func provideNotifier(cfg *config.Config, log zerolog.Logger) (notification.Notifier, func(), error) {
	publisher, err := notify.NewPublisher(cfg.Notification)
	if err != nil {
		return nil, nil, err
	}
	dispatcher := notify.NewDispatcher(publisher, cfg.Notification.Timeout)
	cleanup := func() {
		if err := dispatcher.Close(); err != nil {
			log.Warn().Err(err).Msg("关闭通知发布者失败")
		}
	}
	return dispatcher, cleanup, nil
}

func provideClock() order.Clock {
	return time.Now
}

func provideJWTManager(cfg *config.Config) *jwt.Manager {
	return jwt.NewManager(
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpire,
		cfg.JWT.RefreshTokenExpire,
	)
}

func provideRateLimiter(cfg *config.Config) *middleware.RateLimiter {
	if cfg.Server.RateLimit == 0 {
		return nil
	}
	return middleware.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateWindow)
}

func provideEngine(
	cfg *config.Config,
	log zerolog.Logger,
	orderHandler *handler.OrderHandler,
	paymentHandler *handler.PaymentHandler,
	auth *middleware.AuthMiddleware,
	limiter *middleware.RateLimiter,
) *gin.Engine {
	switch cfg.Server.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	opts := router.Options{
		Swagger:     cfg.Server.Mode != "release",
		RateLimiter: limiter,
	}
	if cfg.Metrics.Enabled {
		opts.MetricsPath = cfg.Metrics.Path
	}
	return router.New(log, orderHandler, paymentHandler, auth, opts)
}
