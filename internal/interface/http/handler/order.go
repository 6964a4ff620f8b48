package handler

import (
	"github.com/gin-gonic/gin"

	apporder "github.com/xiebiao/fastorder/internal/application/order"
	"github.com/xiebiao/fastorder/internal/interface/http/dto"
	"github.com/xiebiao/fastorder/internal/interface/http/middleware"
	"github.com/xiebiao/fastorder/pkg/response"
)

// OrderHandler 订单HTTP处理器
// Handler只负责参数绑定、取出调用方身份和输出响应，状态流转都在应用层。
type OrderHandler struct {
	createOrder *apporder.CreateOrderUseCase
	acceptOrder *apporder.AcceptOrderUseCase
	cancelOrder *apporder.CancelOrderUseCase
	listOrders  *apporder.ListOrdersUseCase
}

// NewOrderHandler 创建订单处理器
func NewOrderHandler(
	createOrder *apporder.CreateOrderUseCase,
	acceptOrder *apporder.AcceptOrderUseCase,
	cancelOrder *apporder.CancelOrderUseCase,
	listOrders *apporder.ListOrdersUseCase,
) *OrderHandler {
	return &OrderHandler{
		createOrder: createOrder,
		acceptOrder: acceptOrder,
		cancelOrder: cancelOrder,
		listOrders:  listOrders,
	}
}

// CreateOrder 下单
// @Summary      下单
// @Description  买家下单，只校验库存不扣减，库存在接单时扣减
// @Tags         订单
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body dto.CreateOrderRequest true "下单信息"
// @Success      200 {object} response.Response{data=order.OrderResponse} "下单成功"
// @Failure      400 {object} response.Response "参数错误"
// @Failure      401 {object} response.Response "未登录"
// @Failure      404 {object} response.Response "商品不存在"
// @Failure      409 {object} response.Response "库存不足"
// @Router       /api/v1/orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.createOrder.Execute(c.Request.Context(), apporder.CreateOrderRequest{
		Actor:     middleware.MustGetActor(c),
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListMyOrders 我的订单
// @Summary      我的订单
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(10)
// @Success      200 {object} response.Response{data=response.PageData{list=[]order.OrderResponse}}
// @Failure      401 {object} response.Response "未登录"
// @Router       /api/v1/orders/mine [get]
func (h *OrderHandler) ListMyOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.listOrders.ListMine(c.Request.Context(), middleware.MustGetActor(c), req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.Orders, result.Total, result.Page, result.PageSize)
}

// GetOrder 订单详情
// @Summary      订单详情
// @Description  买家本人或管理员可查看
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=order.OrderResponse}
// @Failure      401 {object} response.Response "未登录"
// @Failure      403 {object} response.Response "不是订单买家"
// @Failure      404 {object} response.Response "订单不存在"
// @Router       /api/v1/orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	var uri dto.OrderIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ErrorWithCode(c, 40900, "订单ID错误")
		return
	}

	result, err := h.listOrders.Get(c.Request.Context(), uri.ID, middleware.MustGetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// CancelOrder 取消订单
// @Summary      取消订单
// @Description  未支付订单直接取消；已支付订单按距离上次状态变化的小时数退款：24小时内退90%，24~48小时退25%，超过48小时不可取消
// @Tags         订单
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=order.OrderResponse}
// @Failure      403 {object} response.Response "不是订单买家"
// @Failure      404 {object} response.Response "订单不存在"
// @Failure      409 {object} response.Response "订单已取消或超过可取消时限"
// @Router       /api/v1/orders/{id}/cancel [put]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	var uri dto.OrderIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ErrorWithCode(c, 40900, "订单ID错误")
		return
	}

	result, err := h.cancelOrder.Execute(c.Request.Context(), uri.ID, middleware.MustGetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}

// ListAllOrders 全部订单（管理员）
// @Summary      全部订单
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        page      query int false "页码" default(1)
// @Param        page_size query int false "每页数量" default(10)
// @Success      200 {object} response.Response{data=response.PageData{list=[]order.OrderResponse}}
// @Failure      403 {object} response.Response "需要管理员权限"
// @Router       /api/v1/admin/orders [get]
func (h *OrderHandler) ListAllOrders(c *gin.Context) {
	var req dto.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.ErrorWithCode(c, 40900, "参数错误: "+err.Error())
		return
	}

	result, err := h.listOrders.ListAll(c.Request.Context(), middleware.MustGetActor(c), req.Page, req.PageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.SuccessWithPage(c, result.Orders, result.Total, result.Page, result.PageSize)
}

// AcceptOrder 接单（管理员）
// @Summary      接单
// @Description  待处理订单转为已接单并扣减库存
// @Tags         管理
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "订单ID"
// @Success      200 {object} response.Response{data=order.OrderResponse}
// @Failure      403 {object} response.Response "需要管理员权限"
// @Failure      404 {object} response.Response "订单不存在"
// @Failure      409 {object} response.Response "状态不允许或库存不足"
// @Router       /api/v1/admin/orders/{id}/accept [put]
func (h *OrderHandler) AcceptOrder(c *gin.Context) {
	var uri dto.OrderIDUri
	if err := c.ShouldBindUri(&uri); err != nil {
		response.ErrorWithCode(c, 40900, "订单ID错误")
		return
	}

	result, err := h.acceptOrder.Execute(c.Request.Context(), uri.ID, middleware.MustGetActor(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, result)
}
