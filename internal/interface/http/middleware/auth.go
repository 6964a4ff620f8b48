package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/pkg/jwt"
	"github.com/xiebiao/fastorder/pkg/response"
)

const (
	ctxUserID  = "user_id"
	ctxRole    = "role"
	ctxIsAdmin = "is_admin"
)

// TokenBlacklist 已吊销Token查询（生产环境由Redis实现）
type TokenBlacklist interface {
	Contains(ctx context.Context, token string) (bool, error)
}

// AuthMiddleware JWT认证中间件
// Token由账号服务签发，这里只校验签名、过期时间和黑名单。
type AuthMiddleware struct {
	jwtManager *jwt.Manager
	blacklist  TokenBlacklist
}

// NewAuthMiddleware 创建认证中间件，blacklist可以为nil
func NewAuthMiddleware(jwtManager *jwt.Manager, blacklist TokenBlacklist) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		blacklist:  blacklist,
	}
}

// RequireAuth 要求登录
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Authorization: Bearer <token>
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.ErrorWithCode(c, 40100, "请先登录")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.ErrorWithCode(c, 40101, "Token格式错误")
			c.Abort()
			return
		}
		tokenString := parts[1]

		if m.blacklist != nil {
			revoked, err := m.blacklist.Contains(c.Request.Context(), tokenString)
			if err != nil {
				response.ErrorWithCode(c, 50002, "验证Token失败")
				c.Abort()
				return
			}
			if revoked {
				response.ErrorWithCode(c, 40103, "Token已失效，请重新登录")
				c.Abort()
				return
			}
		}

		claims, err := m.jwtManager.ParseToken(tokenString)
		if err != nil {
			response.Error(c, err) // ErrTokenExpired、ErrInvalidToken
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxIsAdmin, claims.IsAdmin())
		c.Next()
	}
}

// RequireAdmin 要求管理员角色，必须挂在RequireAuth之后
func (m *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxIsAdmin) {
			response.ErrorWithCode(c, 40104, "需要管理员权限")
			c.Abort()
			return
		}
		c.Next()
	}
}

// GetUserID 从Context获取当前登录用户ID，未登录返回0
func GetUserID(c *gin.Context) uint {
	if userID, exists := c.Get(ctxUserID); exists {
		if uid, ok := userID.(uint); ok {
			return uid
		}
	}
	return 0
}

// MustGetActor 从Context构造调用方（如果不存在则panic）
// 说明：用于已经通过RequireAuth中间件的Handler
func MustGetActor(c *gin.Context) order.Actor {
	userID := GetUserID(c)
	if userID == 0 {
		panic("user_id not found in context")
	}
	return order.Actor{UserID: userID, IsAdmin: c.GetBool(ctxIsAdmin)}
}
