package payment

import (
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
)

var (
	// ErrPaymentNotFound 支付记录不存在
	ErrPaymentNotFound = apperrors.New(apperrors.ErrCodePaymentNotFound, "支付记录不存在")

	// ErrPaymentFailed 网关拒绝或重试后仍失败
	ErrPaymentFailed = apperrors.New(apperrors.ErrCodePaymentFailed, "支付失败，请稍后重试")

	// ErrPaymentUnavailable 支付服务熔断中
	ErrPaymentUnavailable = apperrors.New(apperrors.ErrCodePaymentUnavailable, "支付服务暂不可用")

	// ErrNotRefundable 只有成功的支付才能标记退款
	ErrNotRefundable = apperrors.New(apperrors.ErrCodeInvalidTransition, "支付记录状态不允许退款")

	// ErrDuplicatePayment 订单已存在有效支付记录
	ErrDuplicatePayment = apperrors.New(apperrors.ErrCodeDuplicateEntry, "订单已存在支付记录")
)
