// Package refund 已支付订单取消时的退款规则
//
// 距订单最后一次状态变化的整小时数 h：
//
//	h < 24        退 90%（扣 10% 手续费）
//	24 <= h <= 48 退 25%（扣 75% 手续费）
//	h > 48        不允许取消
//
// 金额按分计算，四舍五入到分（0.5远离零进位）。
package refund

import (
	"github.com/shopspring/decimal"
)

// Tier 退款档位
type Tier string

const (
	TierFee10   Tier = "fee_10"
	TierFee75   Tier = "fee_75"
	TierExpired Tier = "expired"
)

const (
	// FullRefundHours 90%退款档的上限（不含）
	FullRefundHours = 24
	// PartialRefundHours 25%退款档的上限（含）
	PartialRefundHours = 48
)

var (
	rateFee10 = decimal.RequireFromString("0.90")
	rateFee75 = decimal.RequireFromString("0.25")
)

// Decision 退款决策
type Decision struct {
	Permitted bool
	Amount    int64 // 退款金额(分)，不允许时为0
	Tier      Tier
}

// Compute 根据订单总价和经过的小时数计算退款
// 纯函数，没有副作用。hoursElapsed为负时按0处理。
func Compute(totalPrice int64, hoursElapsed int) Decision {
	if hoursElapsed < 0 {
		hoursElapsed = 0
	}

	switch {
	case hoursElapsed < FullRefundHours:
		return Decision{Permitted: true, Amount: apply(totalPrice, rateFee10), Tier: TierFee10}
	case hoursElapsed <= PartialRefundHours:
		return Decision{Permitted: true, Amount: apply(totalPrice, rateFee75), Tier: TierFee75}
	default:
		return Decision{Permitted: false, Tier: TierExpired}
	}
}

func apply(totalPrice int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(totalPrice).Mul(rate).Round(0).IntPart()
}
