package order

import (
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
)

// 订单领域错误定义
var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = apperrors.New(apperrors.ErrCodeOrderNotFound, "订单不存在")

	// ErrInvalidTransition 当前状态不允许该操作
	ErrInvalidTransition = apperrors.New(apperrors.ErrCodeInvalidTransition, "订单状态不允许此操作")

	// ErrAlreadyPaid 订单已支付
	ErrAlreadyPaid = apperrors.New(apperrors.ErrCodeAlreadyPaid, "订单已支付，请勿重复支付")

	// ErrCancellationWindowExpired 已超过可退款取消的时限
	ErrCancellationWindowExpired = apperrors.New(apperrors.ErrCodeCancellationWindowExpired, "已超过48小时，订单不可取消")

	// ErrNotOwner 不是订单的买家
	ErrNotOwner = apperrors.New(apperrors.ErrCodeForbidden, "无权操作该订单")

	// ErrAdminRequired 需要管理员权限
	ErrAdminRequired = apperrors.New(apperrors.ErrCodeForbidden, "需要管理员权限")

	// ErrConcurrentUpdate 订单已被其他请求修改（版本号不匹配）
	ErrConcurrentUpdate = apperrors.ErrConcurrentUpdate

	// ErrInvalidQuantity 购买数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidQuantity, "购买数量必须大于0")
)
