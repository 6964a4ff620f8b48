package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端（防止泄露敏感信息）
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、外部服务调用失败）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误

	// 认证授权错误（40100-40199）
	ErrCodeUnauthorized = 40100 // 未登录或无权操作该订单
	ErrCodeInvalidToken = 40101 // Token无效
	ErrCodeTokenExpired = 40102 // Token过期
	ErrCodeTokenRevoked = 40103 // Token已被吊销
	ErrCodeForbidden    = 40104 // 无权操作（非管理员或非订单买家）

	// 资源错误（40400-40499）
	ErrCodeNotFound        = 40400 // 资源不存在(通用)
	ErrCodeOrderNotFound   = 40403 // 订单不存在
	ErrCodePaymentNotFound = 40404 // 支付记录不存在
	ErrCodeProductNotFound = 40405 // 商品不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError             = 40000 // 业务错误(通用)
	ErrCodeInsufficientStock         = 40001 // 库存不足
	ErrCodeInvalidOrderStatus        = 40002 // 订单状态非法
	ErrCodeInvalidQuantity           = 40003 // 购买数量非法
	ErrCodeInvalidTransition         = 40006 // 状态流转非法
	ErrCodeAlreadyPaid               = 40007 // 订单已支付
	ErrCodeCancellationWindowExpired = 40008 // 超过可取消时限
	ErrCodeDuplicateEntry            = 40009 // 重复记录(通用)
	ErrCodeConcurrentUpdate          = 40010 // 并发修改冲突

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败

	// 限流（42900）
	ErrCodeTooManyRequests = 42900 // 请求过于频繁

	// 外部依赖错误（50200-50399）
	ErrCodePaymentFailed      = 50200 // 支付网关拒绝或重试耗尽
	ErrCodePaymentUnavailable = 50300 // 支付网关熔断中
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")

	// 认证授权
	ErrUnauthorized = New(ErrCodeUnauthorized, "请先登录")
	ErrInvalidToken = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired = New(ErrCodeTokenExpired, "Token已过期")
	ErrForbidden    = New(ErrCodeForbidden, "无权限访问")

	// 资源不存在
	ErrNotFound = New(ErrCodeNotFound, "资源不存在")

	// 业务规则
	ErrInsufficientStock = New(ErrCodeInsufficientStock, "库存不足")
	ErrInvalidTransition = New(ErrCodeInvalidTransition, "订单状态不允许此操作")
	ErrConcurrentUpdate  = New(ErrCodeConcurrentUpdate, "数据已被其他请求修改，请重试")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// WithCause 复制预定义错误并附加内部原因
// 预定义错误是共享指针，不能直接修改其Err字段
func WithCause(base *AppError, cause error) *AppError {
	return &AppError{
		Code:    base.Code,
		Message: base.Message,
		Err:     cause,
	}
}

// Is 让带原因的副本与预定义错误匹配（比较错误码）
//
//	errors.Is(apperrors.WithCause(order.ErrAlreadyPaid, err), order.ErrAlreadyPaid) == true
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// CodeOf 返回错误对应的业务错误码，非AppError返回ErrCodeInternal
func CodeOf(err error) int {
	if err == nil {
		return 0
	}
	return GetAppError(err).Code
}
