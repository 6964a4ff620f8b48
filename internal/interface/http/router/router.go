// Package router 注册HTTP路由
package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/xiebiao/fastorder/internal/interface/http/handler"
	"github.com/xiebiao/fastorder/internal/interface/http/middleware"
	"github.com/xiebiao/fastorder/pkg/response"
)

// Options 路由可选项
type Options struct {
	MetricsPath string // 为空不暴露/metrics
	Swagger     bool
	RateLimiter *middleware.RateLimiter // nil不限流
}

// New 创建Gin引擎并注册全部路由
func New(
	log zerolog.Logger,
	orderHandler *handler.OrderHandler,
	paymentHandler *handler.PaymentHandler,
	auth *middleware.AuthMiddleware,
	opts Options,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.Metrics())

	r.GET("/ping", func(c *gin.Context) {
		response.Success(c, gin.H{"message": "pong", "status": "healthy"})
	})
	if opts.MetricsPath != "" {
		r.GET(opts.MetricsPath, gin.WrapH(promhttp.Handler()))
	}
	if opts.Swagger {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group("/api/v1")
	if opts.RateLimiter != nil {
		v1.Use(opts.RateLimiter.Middleware())
	}
	v1.Use(auth.RequireAuth())
	{
		orders := v1.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("/mine", orderHandler.ListMyOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PUT("/:id/cancel", orderHandler.CancelOrder)
		}

		v1.POST("/payments", paymentHandler.Pay)

		admin := v1.Group("/admin", auth.RequireAdmin())
		{
			admin.GET("/orders", orderHandler.ListAllOrders)
			admin.PUT("/orders/:id/accept", orderHandler.AcceptOrder)
		}
	}

	return r
}
