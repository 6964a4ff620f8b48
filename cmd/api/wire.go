//go:build wireinject
// +build wireinject

// Wire依赖注入配置，修改后执行 `wire gen ./cmd/api` 重新生成wire_gen.go

package main

import (
	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/rs/zerolog"

	apporder "github.com/xiebiao/fastorder/internal/application/order"
	appayment "github.com/xiebiao/fastorder/internal/application/payment"
	"github.com/xiebiao/fastorder/internal/infrastructure/config"
	"github.com/xiebiao/fastorder/internal/interface/http/handler"
	"github.com/xiebiao/fastorder/internal/interface/http/middleware"
)

// infrastructureSet 存储、锁、支付网关、通知
var infrastructureSet = wire.NewSet(
	provideRepositories,
	wire.FieldsOf(new(*Repositories), "Orders", "Products", "Payments"),
	provideRedis,
	provideLocker,
	provideTokenBlacklist,
	provideGateway,
	provideNotifier,
	provideClock,
)

// applicationSet 用例与支付管道
var applicationSet = wire.NewSet(
	providePipeline,
	wire.Bind(new(apporder.PaymentPipeline), new(*appayment.Pipeline)),
	apporder.NewCreateOrderUseCase,
	apporder.NewAcceptOrderUseCase,
	apporder.NewPayOrderUseCase,
	apporder.NewCancelOrderUseCase,
	apporder.NewListOrdersUseCase,
)

// interfaceSet HTTP处理器与中间件
var interfaceSet = wire.NewSet(
	provideJWTManager,
	provideRateLimiter,
	middleware.NewAuthMiddleware,
	handler.NewOrderHandler,
	handler.NewPaymentHandler,
	provideEngine,
)

// InitializeApp 组装HTTP服务，返回的cleanup按依赖逆序释放资源
func InitializeApp(cfg *config.Config, log zerolog.Logger) (*gin.Engine, func(), error) {
	wire.Build(
		infrastructureSet,
		applicationSet,
		interfaceSet,
	)
	return nil, nil, nil
}
