package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/fastorder/internal/application/order"
	"github.com/xiebiao/fastorder/internal/interface/http/dto"
	"github.com/xiebiao/fastorder/internal/interface/http/middleware"
	"github.com/xiebiao/fastorder/pkg/response"
)

// PaymentHandler 支付HTTP处理器
type PaymentHandler struct {
	payOrder *apporder.PayOrderUseCase
}

// NewPaymentHandler 创建支付处理器
func NewPaymentHandler(payOrder *apporder.PayOrderUseCase) *PaymentHandler {
	return &PaymentHandler{payOrder: payOrder}
}

// Pay 支付订单
// @Summary      支付订单
// @Description  只有已接单的订单可以支付；网关调用经过熔断器和重试，熔断期间返回503
// @Tags         支付
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.PayRequest true "支付信息"
// @Success      200 {object} response.Response{data=order.PaymentResponse} "支付成功"
// @Failure      401 {object} response.Response "未登录"
// @Failure      403 {object} response.Response "不是订单买家"
// @Failure      402 {object} response.Response "支付失败"
// @Failure      409 {object} response.Response "订单状态不允许或已支付"
// @Failure      503 {object} response.Response "支付网关暂不可用"
// @Router       /api/v1/payments [post]
func (h *PaymentHandler) Pay(c *gin.Context) {
	var req dto.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.payOrder.Execute(c.Request.Context(), req.OrderID, middleware.MustGetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
