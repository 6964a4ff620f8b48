package mysql

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xiebiao/fastorder/internal/infrastructure/config"
)

// NewDB 创建数据库连接
// 设计说明：
// 1. 使用GORM v2作为ORM框架
// 2. 配置连接池参数（MaxOpenConns、MaxIdleConns、ConnMaxLifetime）
// 3. SQL日志写入zerolog，开发环境打印全部SQL，其余只记录慢查询
// 4. 自动迁移表结构（AutoMigrate）
func NewDB(cfg *config.Config) (*gorm.DB, error) {
	logLevel := gormlogger.Warn
	if cfg.Server.Mode == "debug" {
		logLevel = gormlogger.Info
	}

	zl := log.Logger.With().Str("component", "gorm").Logger()
	db, err := gorm.Open(mysql.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.New(&zl, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("获取SQL DB失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}
	log.Info().Str("host", cfg.Database.Host).Str("db", cfg.Database.DBName).Msg("数据库连接成功")

	// 注意：生产环境应使用版本化的迁移脚本，不要依赖AutoMigrate
	if err := db.AutoMigrate(&ProductModel{}, &OrderModel{}, &PaymentModel{}); err != nil {
		return nil, fmt.Errorf("数据库迁移失败: %w", err)
	}

	return db, nil
}

// ProductModel GORM商品模型
// 价格使用int64存储"分"为单位(避免浮点数精度问题)
type ProductModel struct {
	ID        uint           `gorm:"primaryKey"`
	Name      string         `gorm:"size:200;not null;comment:商品名称"`
	Price     int64          `gorm:"not null;comment:单价(分)"`
	Stock     int            `gorm:"not null;default:0;check:stock >= 0;comment:库存数量"`
	CreatedAt time.Time      `gorm:"comment:创建时间"`
	UpdatedAt time.Time      `gorm:"comment:更新时间"`
	DeletedAt gorm.DeletedAt `gorm:"index;comment:删除时间(软删除)"`
}

// TableName 指定表名
func (ProductModel) TableName() string {
	return "products"
}

// OrderModel GORM订单模型
// 1. OrderNo有唯一索引(业务主键)
// 2. Status、PaymentStatus使用tinyint存储
// 3. Version用于乐观锁，更新时 WHERE version = ?
// 4. UpdatedAt由领域层显式赋值（退款时限以它为起点），不使用GORM的自动更新时间
type OrderModel struct {
	ID            uint       `gorm:"primaryKey"`
	OrderNo       string     `gorm:"uniqueIndex;size:32;not null;comment:订单号"`
	BuyerID       uint       `gorm:"index:idx_buyer_created;not null;comment:买家用户ID"`
	ProductID     uint       `gorm:"index;not null;comment:商品ID"`
	Quantity      int        `gorm:"not null;comment:购买数量"`
	TotalPrice    int64      `gorm:"not null;comment:订单总金额(分)"`
	Status        int        `gorm:"index;type:tinyint;default:1;comment:订单状态(1待接单2已接单3已取消)"`
	PaymentStatus int        `gorm:"type:tinyint;default:1;comment:支付状态(1待支付2成功3失败4已退款)"`
	RefundAmount  *int64     `gorm:"comment:退款金额(分)"`
	PaidAt        *time.Time `gorm:"comment:支付时间"`
	RefundedAt    *time.Time `gorm:"comment:退款时间"`
	Version       int        `gorm:"not null;default:1;comment:乐观锁版本号"`
	CreatedAt     time.Time  `gorm:"index:idx_buyer_created;autoCreateTime:false;comment:创建时间"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime:false;comment:最后一次状态变化时间"`
}

// TableName 指定表名
func (OrderModel) TableName() string {
	return "orders"
}

// PaymentModel GORM支付记录模型
type PaymentModel struct {
	ID         uint      `gorm:"primaryKey"`
	PaymentNo  string    `gorm:"uniqueIndex;size:32;not null;comment:支付单号"`
	OrderID    uint      `gorm:"index;not null;comment:订单ID"`
	Amount     int64     `gorm:"not null;comment:支付金额(分)"`
	Status     int       `gorm:"type:tinyint;not null;comment:支付状态(1待支付2成功3失败4已退款)"`
	GatewayRef string    `gorm:"size:64;comment:网关流水号"`
	CreatedAt  time.Time `gorm:"comment:创建时间"`
	UpdatedAt  time.Time `gorm:"comment:更新时间"`
}

// TableName 指定表名
func (PaymentModel) TableName() string {
	return "payments"
}
