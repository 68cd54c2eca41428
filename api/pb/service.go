package pb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// AquaDexServer is the server contract for the aquadex.AquaDex
// service.
type AquaDexServer interface {
	CreateMarket(context.Context, *CreateMarketRequest) (*CreateMarketReply, error)
	Limit(context.Context, *OrderRequest) (*OrderReply, error)
	CancelOrder(context.Context, *CancelRequest) (*WithdrawReply, error)
	Withdraw(context.Context, *WithdrawRequest) (*WithdrawReply, error)
	ExpireOrder(context.Context, *ExpireRequest) (*ExpireReply, error)
	ExtendLog(context.Context, *ExtendLogRequest) (*ExtendLogReply, error)
	LogStatus(context.Context, *LogStatusRequest) (*LogStatusReply, error)
	Depth(context.Context, *DepthRequest) (*DepthReply, error)
	ManagerCancelOrder(context.Context, *ManagerCancelRequest) (*WithdrawReply, error)
	ManagerWithdraw(context.Context, *ManagerWithdrawRequest) (*WithdrawReply, error)
	ManagerWithdrawFees(context.Context, *FeesRequest) (*FeesReply, error)
	ManagerUpdateMarket(context.Context, *ManagerUpdateRequest) (*Ack, error)
	ManagerTransferSol(context.Context, *ManagerTransferRequest) (*FeesReply, error)
	CreateVault(context.Context, *CreateVaultRequest) (*Ack, error)
	VaultDeposit(context.Context, *VaultDepositRequest) (*Ack, error)
	VaultWithdraw(context.Context, *VaultWithdrawRequest) (*WithdrawReply, error)
}

// UnimplementedAquaDexServer provides forward-compatible defaults.
type UnimplementedAquaDexServer struct{}

func (UnimplementedAquaDexServer) CreateMarket(context.Context, *CreateMarketRequest) (*CreateMarketReply, error) {
	return nil, status.Error(codes.Unimplemented, "CreateMarket not implemented")
}

func (UnimplementedAquaDexServer) Limit(context.Context, *OrderRequest) (*OrderReply, error) {
	return nil, status.Error(codes.Unimplemented, "Limit not implemented")
}

func (UnimplementedAquaDexServer) CancelOrder(context.Context, *CancelRequest) (*WithdrawReply, error) {
	return nil, status.Error(codes.Unimplemented, "CancelOrder not implemented")
}

func (UnimplementedAquaDexServer) Withdraw(context.Context, *WithdrawRequest) (*WithdrawReply, error) {
	return nil, status.Error(codes.Unimplemented, "Withdraw not implemented")
}

func (UnimplementedAquaDexServer) ExpireOrder(context.Context, *ExpireRequest) (*ExpireReply, error) {
	return nil, status.Error(codes.Unimplemented, "ExpireOrder not implemented")
}

func (UnimplementedAquaDexServer) ExtendLog(context.Context, *ExtendLogRequest) (*ExtendLogReply, error) {
	return nil, status.Error(codes.Unimplemented, "ExtendLog not implemented")
}

func (UnimplementedAquaDexServer) LogStatus(context.Context, *LogStatusRequest) (*LogStatusReply, error) {
	return nil, status.Error(codes.Unimplemented, "LogStatus not implemented")
}

func (UnimplementedAquaDexServer) Depth(context.Context, *DepthRequest) (*DepthReply, error) {
	return nil, status.Error(codes.Unimplemented, "Depth not implemented")
}

func (UnimplementedAquaDexServer) ManagerCancelOrder(context.Context, *ManagerCancelRequest) (*WithdrawReply, error) {
	return nil, status.Error(codes.Unimplemented, "ManagerCancelOrder not implemented")
}

func (UnimplementedAquaDexServer) ManagerWithdraw(context.Context, *ManagerWithdrawRequest) (*WithdrawReply, error) {
	return nil, status.Error(codes.Unimplemented, "ManagerWithdraw not implemented")
}

func (UnimplementedAquaDexServer) ManagerWithdrawFees(context.Context, *FeesRequest) (*FeesReply, error) {
	return nil, status.Error(codes.Unimplemented, "ManagerWithdrawFees not implemented")
}

func (UnimplementedAquaDexServer) ManagerUpdateMarket(context.Context, *ManagerUpdateRequest) (*Ack, error) {
	return nil, status.Error(codes.Unimplemented, "ManagerUpdateMarket not implemented")
}

func (UnimplementedAquaDexServer) ManagerTransferSol(context.Context, *ManagerTransferRequest) (*FeesReply, error) {
	return nil, status.Error(codes.Unimplemented, "ManagerTransferSol not implemented")
}

func (UnimplementedAquaDexServer) CreateVault(context.Context, *CreateVaultRequest) (*Ack, error) {
	return nil, status.Error(codes.Unimplemented, "CreateVault not implemented")
}

func (UnimplementedAquaDexServer) VaultDeposit(context.Context, *VaultDepositRequest) (*Ack, error) {
	return nil, status.Error(codes.Unimplemented, "VaultDeposit not implemented")
}

func (UnimplementedAquaDexServer) VaultWithdraw(context.Context, *VaultWithdrawRequest) (*WithdrawReply, error) {
	return nil, status.Error(codes.Unimplemented, "VaultWithdraw not implemented")
}

// RegisterAquaDexServer binds an implementation to a gRPC registrar.
func RegisterAquaDexServer(s grpc.ServiceRegistrar, srv AquaDexServer) {
	s.RegisterService(&AquaDex_ServiceDesc, srv)
}

func unary[Req any](method func(AquaDexServer, context.Context, *Req) (any, error), name string) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return method(srv.(AquaDexServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/aquadex.AquaDex/" + name,
			}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return method(srv.(AquaDexServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// AquaDex_ServiceDesc is the hand-maintained service descriptor.
var AquaDex_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "aquadex.AquaDex",
	HandlerType: (*AquaDexServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(func(s AquaDexServer, ctx context.Context, r *CreateMarketRequest) (any, error) {
			return s.CreateMarket(ctx, r)
		}, "CreateMarket"),
		unary(func(s AquaDexServer, ctx context.Context, r *OrderRequest) (any, error) {
			return s.Limit(ctx, r)
		}, "Limit"),
		unary(func(s AquaDexServer, ctx context.Context, r *CancelRequest) (any, error) {
			return s.CancelOrder(ctx, r)
		}, "CancelOrder"),
		unary(func(s AquaDexServer, ctx context.Context, r *WithdrawRequest) (any, error) {
			return s.Withdraw(ctx, r)
		}, "Withdraw"),
		unary(func(s AquaDexServer, ctx context.Context, r *ExpireRequest) (any, error) {
			return s.ExpireOrder(ctx, r)
		}, "ExpireOrder"),
		unary(func(s AquaDexServer, ctx context.Context, r *ExtendLogRequest) (any, error) {
			return s.ExtendLog(ctx, r)
		}, "ExtendLog"),
		unary(func(s AquaDexServer, ctx context.Context, r *LogStatusRequest) (any, error) {
			return s.LogStatus(ctx, r)
		}, "LogStatus"),
		unary(func(s AquaDexServer, ctx context.Context, r *DepthRequest) (any, error) {
			return s.Depth(ctx, r)
		}, "Depth"),
		unary(func(s AquaDexServer, ctx context.Context, r *ManagerCancelRequest) (any, error) {
			return s.ManagerCancelOrder(ctx, r)
		}, "ManagerCancelOrder"),
		unary(func(s AquaDexServer, ctx context.Context, r *ManagerWithdrawRequest) (any, error) {
			return s.ManagerWithdraw(ctx, r)
		}, "ManagerWithdraw"),
		unary(func(s AquaDexServer, ctx context.Context, r *FeesRequest) (any, error) {
			return s.ManagerWithdrawFees(ctx, r)
		}, "ManagerWithdrawFees"),
		unary(func(s AquaDexServer, ctx context.Context, r *ManagerUpdateRequest) (any, error) {
			return s.ManagerUpdateMarket(ctx, r)
		}, "ManagerUpdateMarket"),
		unary(func(s AquaDexServer, ctx context.Context, r *ManagerTransferRequest) (any, error) {
			return s.ManagerTransferSol(ctx, r)
		}, "ManagerTransferSol"),
		unary(func(s AquaDexServer, ctx context.Context, r *CreateVaultRequest) (any, error) {
			return s.CreateVault(ctx, r)
		}, "CreateVault"),
		unary(func(s AquaDexServer, ctx context.Context, r *VaultDepositRequest) (any, error) {
			return s.VaultDeposit(ctx, r)
		}, "VaultDeposit"),
		unary(func(s AquaDexServer, ctx context.Context, r *VaultWithdrawRequest) (any, error) {
			return s.VaultWithdraw(ctx, r)
		}, "VaultWithdraw"),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "api/proto/aquadex.proto",
}
