package gateway

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/pkg/logger"
)

// SettlementAdapter 把任意payment.Gateway暴露为结算服务
// cmd/settlement用它包装Simulated，本地联调GRPC网关。
type SettlementAdapter struct {
	gw payment.Gateway
}

var _ SettlementServer = (*SettlementAdapter)(nil)

// NewSettlementAdapter 创建结算服务适配器
func NewSettlementAdapter(gw payment.Gateway) *SettlementAdapter {
	return &SettlementAdapter{gw: gw}
}

// Charge 实现SettlementServer
func (a *SettlementAdapter) Charge(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	req := payment.ChargeRequest{
		OrderID: uint(fields["order_id"].GetNumberValue()),
		OrderNo: fields["order_no"].GetStringValue(),
		Amount:  int64(fields["amount"].GetNumberValue()),
	}
	if req.OrderID == 0 || req.Amount <= 0 {
		return nil, status.Error(codes.InvalidArgument, "order_id和amount必填")
	}

	key := fields["idempotency_key"].GetStringValue()
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(idempotencyHeader); len(vals) > 0 && vals[0] != key {
			return nil, status.Error(codes.InvalidArgument, "幂等键不一致")
		}
	}

	res, err := a.gw.Charge(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, status.FromContextError(err).Err()
		}
		logger.Ctx(ctx).Info().Str("order_no", req.OrderNo).Err(err).Msg("结算拒付")
		return nil, DeclineStatus("CARD_DECLINED", err.Error())
	}

	return structpb.NewStruct(map[string]interface{}{
		"gateway_ref": res.GatewayRef,
	})
}
