package gateway

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// 结算服务的gRPC协议
//
// 请求/响应都是google.protobuf.Struct，字段约定：
//
//	请求  order_id(number) order_no(string) amount(number,分) idempotency_key(string)
//	响应  gateway_ref(string)
//
// 拒付时返回gRPC错误，details中带google.rpc.ErrorInfo（reason如CARD_DECLINED）。
const (
	SettlementService = "fastorder.settlement.v1.Settlement"
	ChargeMethod      = "/" + SettlementService + "/Charge"

	// ErrorDomain ErrorInfo.Domain
	ErrorDomain = "settlement.fastorder"

	idempotencyHeader = "x-idempotency-key"
)

// SettlementServer 结算服务端接口
type SettlementServer interface {
	Charge(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error)
}

// RegisterSettlementServer 注册结算服务
func RegisterSettlementServer(s grpc.ServiceRegistrar, srv SettlementServer) {
	s.RegisterService(&settlementServiceDesc, srv)
}

var settlementServiceDesc = grpc.ServiceDesc{
	ServiceName: SettlementService,
	HandlerType: (*SettlementServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Charge", Handler: chargeHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "fastorder/settlement/v1/settlement.proto",
}

func chargeHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(structpb.Struct)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SettlementServer).Charge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: ChargeMethod}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(SettlementServer).Charge(ctx, req.(*structpb.Struct))
	}
	return interceptor(ctx, in, info, handler)
}
