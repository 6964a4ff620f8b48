package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/xiebiao/fastorder/pkg/errors"
)

// Manager JWT管理器
// 设计说明：
// 1. 使用双Token机制：Access Token（短期）+ Refresh Token（长期）
// 2. Access Token用于API鉴权，有效期短（2小时）
// 3. Refresh Token由签发方换取新的Access Token，本服务只校验Access Token
type Manager struct {
	secret             string        // JWT签名密钥
	accessTokenExpire  time.Duration // Access Token有效期
	refreshTokenExpire time.Duration // Refresh Token有效期
}

// NewManager 创建JWT管理器
func NewManager(secret string, accessTokenExpire, refreshTokenExpire time.Duration) *Manager {
	return &Manager{
		secret:             secret,
		accessTokenExpire:  accessTokenExpire,
		refreshTokenExpire: refreshTokenExpire,
	}
}

// 角色
const (
	RoleBuyer = "buyer"
	RoleAdmin = "admin"
)

const issuer = "fastorder"

// Claims 自定义JWT Claims
// Token由外部账号服务签发，这里只负责校验和解析；
// Role决定是否具备管理员能力（接单、查看全部订单）。
type Claims struct {
	UserID   uint   `json:"user_id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin 是否管理员
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// TokenPair Token对（Access + Refresh）
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"` // Access Token过期时间（秒）
}

// GenerateToken 生成Token对（账号服务和测试使用）
func (m *Manager) GenerateToken(userID uint, email, nickname, role string) (*TokenPair, error) {
	now := time.Now()

	// 1. 生成Access Token
	accessClaims := Claims{
		UserID:   userID,
		Email:    email,
		Nickname: nickname,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTokenExpire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(m.secret))
	if err != nil {
		return nil, apperrors.Wrap(err, "生成Access Token失败")
	}

	// 2. 生成Refresh Token
	refreshClaims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTokenExpire)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
			Subject:   fmt.Sprintf("%d", userID),
		},
	}

	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(m.secret))
	if err != nil {
		return nil, apperrors.Wrap(err, "生成Refresh Token失败")
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresIn:    int64(m.accessTokenExpire.Seconds()),
	}, nil
}

// ParseToken 解析并验证Token
// 学习要点：
// 1. 验证签名（防止伪造）
// 2. 验证过期时间（exp）
// 3. 验证生效时间（nbf）
func (m *Manager) ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		// 验证签名算法
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", token.Header["alg"])
		}
		return []byte(m.secret), nil
	})

	if err != nil {
		// 判断具体的错误类型
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	// 提取Claims
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, apperrors.ErrInvalidToken
}
