// Package metrics 基于Prometheus的指标收集
//
// 指标在第一次使用时注册到默认Registry（InitMetrics只会生效一次），
// 通过/metrics端点暴露给Prometheus抓取。
//
// 命名规范：
// - Counter以_total结尾
// - Histogram以单位结尾（_seconds）
// - 标签只使用有限取值（transition、result、name），不要用order_id、user_id
package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// HTTP请求相关指标

	// HTTPRequestsTotal HTTP请求总数，标签：method、path、status
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration HTTP请求耗时，标签：method、path
	HTTPRequestDuration *prometheus.HistogramVec

	// HTTPRequestsInProgress 正在处理的HTTP请求数
	HTTPRequestsInProgress prometheus.Gauge

	// 订单业务指标

	// OrderTransitionsTotal 订单状态迁移次数
	// 标签：transition（create/accept/pay/cancel）、result（success或错误码）
	OrderTransitionsTotal *prometheus.CounterVec

	// RefundsTotal 退款次数，标签：tier（fee_10/fee_75）
	RefundsTotal *prometheus.CounterVec

	// RefundAmountCents 退款金额累计（分）
	RefundAmountCents prometheus.Counter

	// 支付指标

	// PaymentGatewayCalls 网关调用次数，标签：result（success/failure/rejected）
	PaymentGatewayCalls *prometheus.CounterVec

	// PaymentPipelineDuration 支付管道耗时（含重试），标签：result
	PaymentPipelineDuration *prometheus.HistogramVec

	// 熔断器指标

	// CircuitBreakerState 熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）
	CircuitBreakerState *prometheus.GaugeVec

	// CircuitBreakerTransitions 熔断器状态变化次数，标签：name、to
	CircuitBreakerTransitions *prometheus.CounterVec

	// Saga指标

	// SagaCompensationsTotal Saga补偿次数，标签：flow（accept/pay/refund）、result
	SagaCompensationsTotal *prometheus.CounterVec

	// 通知与消息队列指标

	// NotificationsTotal 通知投递次数，标签：event、result
	NotificationsTotal *prometheus.CounterVec

	// MessagesPublishedTotal 消息发布总数，标签：transport、destination
	MessagesPublishedTotal *prometheus.CounterVec

	// MessagesConsumedTotal 消息消费总数，标签：queue、result
	MessagesConsumedTotal *prometheus.CounterVec
)

// InitMetrics 注册所有指标，可重复调用
func InitMetrics() {
	once.Do(register)
}

func register() {
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP请求耗时（秒）",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_progress",
			Help: "正在处理的HTTP请求数",
		},
	)

	OrderTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "订单状态迁移次数",
		},
		[]string{"transition", "result"},
	)

	RefundsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_refunds_total",
			Help: "订单退款次数",
		},
		[]string{"tier"},
	)

	RefundAmountCents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "order_refund_amount_cents_total",
			Help: "退款金额累计（分）",
		},
	)

	PaymentGatewayCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_gateway_calls_total",
			Help: "支付网关调用次数（含被熔断拒绝的调用）",
		},
		[]string{"result"},
	)

	// 立即重试时整个管道通常在毫秒级，开启退避后可达秒级
	PaymentPipelineDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payment_pipeline_duration_seconds",
			Help:    "支付管道耗时（秒，含重试）",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"result"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "熔断器状态（0=CLOSED, 1=OPEN, 2=HALF_OPEN）",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "熔断器状态变化次数",
		},
		[]string{"name", "to"},
	)

	SagaCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Saga补偿执行次数",
		},
		[]string{"flow", "result"},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "订单通知投递次数",
		},
		[]string{"event", "result"},
	)

	MessagesPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_published_total",
			Help: "消息发布总数",
		},
		[]string{"transport", "destination"},
	)

	MessagesConsumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_consumed_total",
			Help: "消息消费总数",
		},
		[]string{"queue", "result"},
	)
}

// =========================================
// 业务埋点函数
// =========================================

// ObserveHTTPRequest 记录一次HTTP请求
func ObserveHTTPRequest(method, path string, status int, seconds float64) {
	InitMetrics()
	HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}

// RecordOrderTransition 记录一次订单状态迁移，result为"success"或错误码
func RecordOrderTransition(transition, result string) {
	InitMetrics()
	OrderTransitionsTotal.WithLabelValues(transition, result).Inc()
}

// RecordRefund 记录一次退款
func RecordRefund(tier string, amountCents int64) {
	InitMetrics()
	RefundsTotal.WithLabelValues(tier).Inc()
	RefundAmountCents.Add(float64(amountCents))
}

// RecordGatewayCall 记录一次网关调用
func RecordGatewayCall(result string) {
	InitMetrics()
	PaymentGatewayCalls.WithLabelValues(result).Inc()
}

// ObservePaymentPipeline 记录一次支付管道执行
func ObservePaymentPipeline(result string, seconds float64) {
	InitMetrics()
	PaymentPipelineDuration.WithLabelValues(result).Observe(seconds)
}

// SetCircuitBreakerState 更新熔断器状态
func SetCircuitBreakerState(name string, state int, to string) {
	InitMetrics()
	CircuitBreakerState.WithLabelValues(name).Set(float64(state))
	CircuitBreakerTransitions.WithLabelValues(name, to).Inc()
}

// RecordSagaCompensation 记录一次Saga补偿
func RecordSagaCompensation(flow, result string) {
	InitMetrics()
	SagaCompensationsTotal.WithLabelValues(flow, result).Inc()
}

// RecordNotification 记录一次通知投递
func RecordNotification(event, result string) {
	InitMetrics()
	NotificationsTotal.WithLabelValues(event, result).Inc()
}

// RecordMessagePublished 记录一次消息发布
func RecordMessagePublished(transport, destination string) {
	InitMetrics()
	MessagesPublishedTotal.WithLabelValues(transport, destination).Inc()
}

// RecordMessageConsumed 记录一次消息消费
func RecordMessageConsumed(queue, result string) {
	InitMetrics()
	MessagesConsumedTotal.WithLabelValues(queue, result).Inc()
}
