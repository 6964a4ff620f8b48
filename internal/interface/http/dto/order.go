package dto

// CreateOrderRequest HTTP下单请求
type CreateOrderRequest struct {
	ProductID uint `json:"product_id" binding:"required" example:"1"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// PayRequest HTTP支付请求
type PayRequest struct {
	OrderID uint `json:"order_id" binding:"required" example:"1"`
}

// ListOrdersRequest 订单列表分页参数
type ListOrdersRequest struct {
	Page     int `form:"page" binding:"omitempty,min=1" example:"1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100" example:"10"`
}

// OrderIDUri 路径中的订单ID
type OrderIDUri struct {
	ID uint `uri:"id" binding:"required,min=1"`
}
