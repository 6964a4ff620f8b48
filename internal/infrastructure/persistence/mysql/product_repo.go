package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xiebiao/fastorder/internal/domain/product"
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
)

// productRepository 商品仓储实现(MySQL)
type productRepository struct {
	db *gorm.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(db *gorm.DB) product.Repository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, p *product.Product) error {
	if err := p.CheckInvariant(); err != nil {
		return err
	}

	model := &ProductModel{
		Name:  p.Name,
		Price: p.Price,
		Stock: p.Stock,
	}
	if err := dbFrom(ctx, r.db).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建商品失败")
	}

	p.ID = model.ID
	p.CreatedAt = model.CreatedAt
	p.UpdatedAt = model.UpdatedAt
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*product.Product, error) {
	var model ProductModel
	if err := dbFrom(ctx, r.db).First(&model, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, product.ErrProductNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品失败")
	}
	return &product.Product{
		ID:        model.ID,
		Name:      model.Name,
		Price:     model.Price,
		Stock:     model.Stock,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

// UpdateStock 原子调整库存
// UPDATE products SET stock = stock + ? WHERE id = ? AND stock + ? >= 0
// 影响行数为0时再查一次，区分"商品不存在"和"库存不足"。
func (r *productRepository) UpdateStock(ctx context.Context, id uint, delta int) error {
	if delta == 0 {
		return product.ErrInvalidQuantity
	}
	db := dbFrom(ctx, r.db)

	result := db.Model(&ProductModel{}).
		Where("id = ?", id).
		Where("stock + ? >= 0", delta).
		Update("stock", gorm.Expr("stock + ?", delta))
	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新库存失败")
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := db.Model(&ProductModel{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return apperrors.Wrap(err, "查询商品失败")
		}
		if count == 0 {
			return product.ErrProductNotFound
		}
		return product.ErrInsufficientStock
	}

	return nil
}
