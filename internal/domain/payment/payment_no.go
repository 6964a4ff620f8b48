package payment

import (
	"fmt"
	"math/rand"
	"time"
)

// GeneratePaymentNo 生成支付单号：PAY + 秒级时间戳 + 6位随机数
func GeneratePaymentNo(now time.Time) string {
	return fmt.Sprintf("PAY%d%06d", now.Unix(), rand.Intn(1000000))
}
