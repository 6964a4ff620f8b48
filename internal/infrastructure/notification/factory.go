package notification

import (
	"fmt"

	"github.com/xiebiao/fastorder/internal/infrastructure/config"
	"github.com/xiebiao/fastorder/pkg/mq"
)

// NewPublisher 按配置创建发布者
func NewPublisher(cfg config.NotificationConfig) (Publisher, error) {
	switch cfg.Driver {
	case "rabbitmq":
		p, err := mq.NewPublisher(cfg.RabbitMQURL, cfg.Exchange, "topic")
		if err != nil {
			return nil, err
		}
		return p, nil
	case "kafka":
		return NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case "log", "":
		return NewLogPublisher(), nil
	default:
		return nil, fmt.Errorf("不支持的通知驱动: %s", cfg.Driver)
	}
}
