package product

import (
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
)

// 商品领域错误定义
var (
	// ErrProductNotFound 商品不存在
	ErrProductNotFound = apperrors.New(apperrors.ErrCodeProductNotFound, "商品不存在")

	// ErrInsufficientStock 库存不足
	ErrInsufficientStock = apperrors.ErrInsufficientStock

	// ErrInvalidQuantity 数量必须大于0
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidQuantity, "数量必须大于0")

	// ErrInvalidPrice 价格必须大于0
	ErrInvalidPrice = apperrors.New(apperrors.ErrCodeInvalidParams, "价格必须大于0")

	// ErrNegativeStock 库存出现负数（不变量被破坏）
	ErrNegativeStock = apperrors.New(apperrors.ErrCodeInternal, "库存数据异常")
)
