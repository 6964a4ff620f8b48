package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/fastorder/pkg/metrics"
)

// Metrics HTTP指标中间件
// path使用路由模板（/api/v1/orders/:id），避免订单ID撑爆标签基数。
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.ObserveHTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start).Seconds())
	}
}
