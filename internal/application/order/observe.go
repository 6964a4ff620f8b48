package order

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/xiebiao/fastorder/internal/domain/notification"
	"github.com/xiebiao/fastorder/internal/domain/order"
	apperrors "github.com/xiebiao/fastorder/pkg/errors"
	"github.com/xiebiao/fastorder/pkg/metrics"
	"github.com/xiebiao/fastorder/pkg/tracing"
)

const tracerName = "order"

// beginTransition 为一次状态迁移开启Span，返回的finish记录指标并结束Span
func beginTransition(ctx context.Context, transition string, orderID uint) (context.Context, func(err error)) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "order."+transition,
		trace.WithAttributes(attribute.Int64("order.id", int64(orderID))))

	return ctx, func(err error) {
		result := "success"
		if err != nil {
			result = strconv.Itoa(apperrors.CodeOf(err))
		}
		metrics.RecordOrderTransition(transition, result)
		tracing.EndSpan(span, err)
	}
}

// compensation 包装Saga补偿函数，记录补偿结果
func compensation(flow string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil {
			metrics.RecordSagaCompensation(flow, "failed")
		} else {
			metrics.RecordSagaCompensation(flow, "success")
		}
		return err
	}
}

func newEvent(t notification.EventType, o *order.Order) notification.Event {
	return notification.Event{
		Type:       t,
		OrderID:    o.ID,
		OrderNo:    o.OrderNo,
		BuyerID:    o.BuyerID,
		TotalPrice: o.TotalPrice,
		OccurredAt: o.UpdatedAt,
	}
}
