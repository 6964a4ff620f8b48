package order

import (
	"fmt"
	"math/rand"
	"time"
)

// GenerateOrderNo 生成订单号
// 格式:ORD + 创建时间(秒) + 6位随机数，如 ORD1699248000123456
// 订单号是对外展示的业务编号，唯一性由orders.order_no唯一索引兜底。
func GenerateOrderNo(now time.Time) string {
	return fmt.Sprintf("ORD%d%06d", now.Unix(), rand.Intn(1000000))
}
