package order

import (
	"fmt"
	"time"

	"github.com/xiebiao/fastorder/internal/domain/order"
	"github.com/xiebiao/fastorder/internal/domain/payment"
)

const timeLayout = "2006-01-02 15:04:05"

// OrderResponse 订单响应DTO
type OrderResponse struct {
	ID            uint    `json:"id"`
	OrderNo       string  `json:"order_no"`
	BuyerID       uint    `json:"buyer_id"`
	ProductID     uint    `json:"product_id"`
	Quantity      int     `json:"quantity"`
	TotalPrice    int64   `json:"total_price"`
	TotalYuan     string  `json:"total_yuan"`
	Status        string  `json:"status"`
	PaymentStatus string  `json:"payment_status"`
	RefundAmount  *int64  `json:"refund_amount,omitempty"`
	RefundYuan    string  `json:"refund_yuan,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
	PaidAt        *string `json:"paid_at,omitempty"`
	RefundedAt    *string `json:"refunded_at,omitempty"`
}

// PaymentResponse 支付响应DTO
type PaymentResponse struct {
	PaymentID  uint   `json:"payment_id"`
	PaymentNo  string `json:"payment_no"`
	OrderID    uint   `json:"order_id"`
	Amount     int64  `json:"amount"`
	AmountYuan string `json:"amount_yuan"`
	Status     string `json:"status"`
	PaidAt     string `json:"paid_at"`
}

// OrderListResponse 订单列表，Page/PageSize为校正后的分页参数
type OrderListResponse struct {
	Orders   []*OrderResponse
	Total    int64
	Page     int
	PageSize int
}

func toOrderResponse(o *order.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:            o.ID,
		OrderNo:       o.OrderNo,
		BuyerID:       o.BuyerID,
		ProductID:     o.ProductID,
		Quantity:      o.Quantity,
		TotalPrice:    o.TotalPrice,
		TotalYuan:     formatPrice(o.TotalPrice),
		Status:        o.Status.String(),
		PaymentStatus: o.PaymentStatus.String(),
		RefundAmount:  o.RefundAmount,
		CreatedAt:     o.CreatedAt.Format(timeLayout),
		UpdatedAt:     o.UpdatedAt.Format(timeLayout),
		PaidAt:        formatTimePtr(o.PaidAt),
		RefundedAt:    formatTimePtr(o.RefundedAt),
	}
	if o.RefundAmount != nil {
		resp.RefundYuan = formatPrice(*o.RefundAmount)
	}
	return resp
}

func toPaymentResponse(p *payment.Payment) *PaymentResponse {
	return &PaymentResponse{
		PaymentID:  p.ID,
		PaymentNo:  p.PaymentNo,
		OrderID:    p.OrderID,
		Amount:     p.Amount,
		AmountYuan: formatPrice(p.Amount),
		Status:     p.Status.String(),
		PaidAt:     p.CreatedAt.Format(timeLayout),
	}
}

// formatPrice 格式化价格(分→元)
func formatPrice(fen int64) string {
	return fmt.Sprintf("%d.%02d", fen/100, fen%100)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(timeLayout)
	return &s
}
