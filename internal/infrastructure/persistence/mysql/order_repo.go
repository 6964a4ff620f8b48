package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/fastorder/internal/domain/order"
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
)

// orderRepository 订单仓储实现(MySQL)
type orderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓储
func NewOrderRepository(db *gorm.DB) order.Repository {
	return &orderRepository{db: db}
}

// Create 创建订单
func (r *orderRepository) Create(ctx context.Context, o *order.Order) error {
	o.Version = 1
	model := toOrderModel(o)

	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return apperrors.WithCause(apperrors.New(apperrors.ErrCodeDuplicateEntry, "订单号重复"), err)
		}
		return apperrors.Wrap(err, "创建订单失败")
	}

	o.ID = model.ID
	return nil
}

// FindByID 根据ID查找订单
func (r *orderRepository) FindByID(ctx context.Context, id uint) (*order.Order, error) {
	var model OrderModel
	if err := dbFrom(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, order.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "查询订单失败")
	}
	return toOrderEntity(&model), nil
}

// Update 按版本号条件更新
// UPDATE orders SET ..., version = version + 1 WHERE id = ? AND version = ?
// 使用UpdateColumns，updated_at取领域对象上的值，不被GORM改写。
func (r *orderRepository) Update(ctx context.Context, o *order.Order) error {
	db := dbFrom(ctx, r.db)

	result := db.Model(&OrderModel{}).
		Where("id = ? AND version = ?", o.ID, o.Version).
		UpdateColumns(map[string]interface{}{
			"status":         int(o.Status),
			"payment_status": int(o.PaymentStatus),
			"refund_amount":  o.RefundAmount,
			"paid_at":        o.PaidAt,
			"refunded_at":    o.RefundedAt,
			"updated_at":     o.UpdatedAt,
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新订单失败")
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&OrderModel{}).Where("id = ?", o.ID).Count(&count).Error; err != nil {
			return apperrors.Wrap(err, "查询订单失败")
		}
		if count == 0 {
			return order.ErrOrderNotFound
		}
		return order.ErrConcurrentUpdate
	}

	o.Version++
	return nil
}

// ListByBuyer 查询买家的订单列表
func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uint, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(dbFrom(ctx, r.db).Model(&OrderModel{}).Where("buyer_id = ?", buyerID), page, pageSize)
}

// List 查询全部订单
func (r *orderRepository) List(ctx context.Context, page, pageSize int) ([]*order.Order, int64, error) {
	return r.list(dbFrom(ctx, r.db).Model(&OrderModel{}), page, pageSize)
}

func (r *orderRepository) list(query *gorm.DB, page, pageSize int) ([]*order.Order, int64, error) {
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单总数失败")
	}

	var models []OrderModel
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, apperrors.Wrap(err, "查询订单列表失败")
	}

	orders := make([]*order.Order, len(models))
	for i := range models {
		orders[i] = toOrderEntity(&models[i])
	}
	return orders, total, nil
}

// toOrderModel 领域实体 → GORM模型
func toOrderModel(o *order.Order) *OrderModel {
	return &OrderModel{
		ID:            o.ID,
		OrderNo:       o.OrderNo,
		BuyerID:       o.BuyerID,
		ProductID:     o.ProductID,
		Quantity:      o.Quantity,
		TotalPrice:    o.TotalPrice,
		Status:        int(o.Status),
		PaymentStatus: int(o.PaymentStatus),
		RefundAmount:  o.RefundAmount,
		PaidAt:        o.PaidAt,
		RefundedAt:    o.RefundedAt,
		Version:       o.Version,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

// toOrderEntity GORM模型 → 领域实体
func toOrderEntity(m *OrderModel) *order.Order {
	return &order.Order{
		ID:            m.ID,
		OrderNo:       m.OrderNo,
		BuyerID:       m.BuyerID,
		ProductID:     m.ProductID,
		Quantity:      m.Quantity,
		TotalPrice:    m.TotalPrice,
		Status:        order.Status(m.Status),
		PaymentStatus: order.PaymentStatus(m.PaymentStatus),
		RefundAmount:  m.RefundAmount,
		PaidAt:        m.PaidAt,
		RefundedAt:    m.RefundedAt,
		Version:       m.Version,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}
