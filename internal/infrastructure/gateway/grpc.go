package gateway

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xiebiao/fastorder/internal/domain/payment"
	"github.com/xiebiao/fastorder/pkg/logger"
)

// DeclineError 结算服务明确拒付
type DeclineError struct {
	Reason string
	Code   codes.Code
}

func (e *DeclineError) Error() string {
	return fmt.Sprintf("settlement declined: %s (%s)", e.Reason, e.Code)
}

// ErrSettlementUnavailable 结算服务不可达或超时
var ErrSettlementUnavailable = errors.New("settlement service unavailable")

// GRPC 通过gRPC调用外部结算服务
type GRPC struct {
	conn    *grpc.ClientConn
	timeout time.Duration
}

var _ payment.Gateway = (*GRPC)(nil)

// NewGRPC 连接结算服务
// Dial是异步的，不会阻塞等待连接成功；第一次调用失败由支付管道重试。
func NewGRPC(target string, timeout time.Duration, opts ...grpc.DialOption) (*GRPC, error) {
	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}, opts...)

	conn, err := grpc.Dial(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("连接结算服务失败: %w", err)
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &GRPC{conn: conn, timeout: timeout}, nil
}

// Close 关闭连接
func (g *GRPC) Close() error {
	return g.conn.Close()
}

// Charge 发起扣款
// 同一订单、同一金额的重试使用相同的幂等键，结算服务据此去重。
func (g *GRPC) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	key := IdempotencyKey(req)
	in, err := structpb.NewStruct(map[string]interface{}{
		"order_id":        float64(req.OrderID),
		"order_no":        req.OrderNo,
		"amount":          float64(req.Amount),
		"idempotency_key": key,
	})
	if err != nil {
		return payment.ChargeResult{}, fmt.Errorf("构造结算请求失败: %w", err)
	}

	ctx = metadata.AppendToOutgoingContext(ctx, idempotencyHeader, key)
	out := new(structpb.Struct)
	if err := g.conn.Invoke(ctx, ChargeMethod, in, out); err != nil {
		mapped := mapError(err)
		logger.Ctx(ctx).Debug().Err(err).Uint("order_id", req.OrderID).Msg("结算服务调用失败")
		return payment.ChargeResult{}, mapped
	}

	ref := out.GetFields()["gateway_ref"].GetStringValue()
	if ref == "" {
		return payment.ChargeResult{}, errors.New("结算服务响应缺少gateway_ref")
	}
	return payment.ChargeResult{GatewayRef: ref}, nil
}

// IdempotencyKey 订单维度的幂等键：blake2b-256(order_id|order_no|amount)
func IdempotencyKey(req payment.ChargeRequest) string {
	sum := blake2b.Sum256([]byte(fmt.Sprintf("%d|%s|%d", req.OrderID, req.OrderNo, req.Amount)))
	return hex.EncodeToString(sum[:])
}

// mapError gRPC错误 → 网关错误
func mapError(err error) error {
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return fmt.Errorf("%w: %s", ErrSettlementUnavailable, st.Message())
	}

	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return &DeclineError{Reason: info.GetReason(), Code: st.Code()}
		}
	}
	return err
}

// DeclineStatus 构造带ErrorInfo的拒付错误（结算服务端使用）
func DeclineStatus(reason, message string) error {
	st := status.New(codes.FailedPrecondition, message)
	withDetails, err := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain})
	if err != nil {
		return st.Err()
	}
	return withDetails.Err()
}
