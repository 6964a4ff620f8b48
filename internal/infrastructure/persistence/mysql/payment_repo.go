package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xiebiao/fastorder/internal/domain/payment"
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
)

// paymentRepository 支付记录仓储实现(MySQL)
type paymentRepository struct {
	db        *gorm.DB
	txManager *TxManager
}

// NewPaymentRepository 创建支付记录仓储
func NewPaymentRepository(db *gorm.DB, txManager *TxManager) payment.Repository {
	return &paymentRepository{db: db, txManager: txManager}
}

// Create 写入支付记录
// 在事务中锁住订单行再检查是否已有非失败记录，保证一个订单最多一条有效支付。
func (r *paymentRepository) Create(ctx context.Context, p *payment.Payment) error {
	return r.txManager.Transaction(ctx, func(txCtx context.Context) error {
		db := dbFrom(txCtx, r.db)

		// SELECT id FROM orders WHERE id = ? FOR UPDATE
		var locked OrderModel
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&locked, p.OrderID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Wrap(err, "锁定订单失败")
		}

		var count int64
		err = db.Model(&PaymentModel{}).
			Where("order_id = ? AND status <> ?", p.OrderID, int(payment.StatusFailed)).
			Count(&count).Error
		if err != nil {
			return apperrors.Wrap(err, "查询支付记录失败")
		}
		if count > 0 {
			return payment.ErrDuplicatePayment
		}

		model := toPaymentModel(p)
		if err := db.Create(model).Error; err != nil {
			if isDuplicateError(err) {
				return payment.ErrDuplicatePayment
			}
			return apperrors.Wrap(err, "创建支付记录失败")
		}
		p.ID = model.ID
		return nil
	})
}

// FindByOrderID 订单当前有效的支付记录
func (r *paymentRepository) FindByOrderID(ctx context.Context, orderID uint) (*payment.Payment, error) {
	var model PaymentModel
	err := dbFrom(ctx, r.db).
		Where("order_id = ? AND status <> ?", orderID, int(payment.StatusFailed)).
		Order("id DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, payment.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, "查询支付记录失败")
	}
	return toPaymentEntity(&model), nil
}

// Update 更新支付状态
func (r *paymentRepository) Update(ctx context.Context, p *payment.Payment) error {
	result := dbFrom(ctx, r.db).Model(&PaymentModel{}).
		Where("id = ?", p.ID).
		UpdateColumns(map[string]interface{}{
			"status":      int(p.Status),
			"gateway_ref": p.GatewayRef,
			"updated_at":  p.UpdatedAt,
		})
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新支付记录失败")
	}
	if result.RowsAffected == 0 {
		return payment.ErrPaymentNotFound
	}
	return nil
}

func toPaymentModel(p *payment.Payment) *PaymentModel {
	return &PaymentModel{
		ID:         p.ID,
		PaymentNo:  p.PaymentNo,
		OrderID:    p.OrderID,
		Amount:     p.Amount,
		Status:     int(p.Status),
		GatewayRef: p.GatewayRef,
		CreatedAt:  p.CreatedAt,
		UpdatedAt:  p.UpdatedAt,
	}
}

func toPaymentEntity(m *PaymentModel) *payment.Payment {
	return &payment.Payment{
		ID:         m.ID,
		PaymentNo:  m.PaymentNo,
		OrderID:    m.OrderID,
		Amount:     m.Amount,
		Status:     payment.Status(m.Status),
		GatewayRef: m.GatewayRef,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
