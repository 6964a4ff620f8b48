package mysql

import (
	"context"

	"gorm.io/gorm"
)

type txKey struct{}

// TxManager 事务管理器
// 1. 封装GORM的Transaction方法
// 2. 通过context传递事务DB(避免全局变量)
// 3. 支持嵌套事务(GORM自动使用Savepoint)
type TxManager struct {
	db *gorm.DB
}

// NewTxManager 创建事务管理器
func NewTxManager(db *gorm.DB) *TxManager {
	return &TxManager{db: db}
}

// Transaction 执行事务
// fn内通过ctx调用的仓储方法都在同一事务中执行，
// fn返回error时ROLLBACK，返回nil时COMMIT。
func (m *TxManager) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return dbFrom(ctx, m.db).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// dbFrom 优先使用context中的事务DB
func dbFrom(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return db.WithContext(ctx)
}
