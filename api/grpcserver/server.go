// Package grpcserver exposes the MarketService over the AquaDex gRPC
// contract, translating engine errors onto status codes.
package grpcserver

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/atellix/aqua-dex/api/pb"
	"github.com/atellix/aqua-dex/domain/engine"
	"github.com/atellix/aqua-dex/domain/market"
	"github.com/atellix/aqua-dex/domain/settle"
	"github.com/atellix/aqua-dex/domain/slab"
	"github.com/atellix/aqua-dex/service"
)

// Server adapts a MarketService to the wire contract.
type Server struct {
	pb.UnimplementedAquaDexServer
	svc *service.MarketService
}

// NewServer wraps a service.
func NewServer(svc *service.MarketService) *Server {
	return &Server{svc: svc}
}

func key(b []byte) (market.Key, error) {
	var k market.Key
	if len(b) != len(k) {
		return k, status.Errorf(codes.InvalidArgument, "key must be %d bytes, got %d", len(k), len(b))
	}
	copy(k[:], b)
	return k, nil
}

func orderID(b []byte) ([16]byte, error) {
	var id [16]byte
	if len(b) != len(id) {
		return id, status.Errorf(codes.InvalidArgument, "order id must be %d bytes, got %d", len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

func side(v uint32) (market.Side, error) {
	if v > uint32(market.Ask) {
		return 0, status.Errorf(codes.InvalidArgument, "bad side %d", v)
	}
	return market.Side(v), nil
}

// toStatus maps the engine taxonomy onto gRPC codes.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	var code codes.Code
	switch {
	case errors.Is(err, engine.ErrOrderNotFound),
		errors.Is(err, engine.ErrAccountNotFound),
		errors.Is(err, slab.ErrKeyNotFound),
		errors.Is(err, service.ErrUnknownMarket):
		code = codes.NotFound
	case errors.Is(err, engine.ErrNotOwner),
		errors.Is(err, engine.ErrNotAuthorized):
		code = codes.PermissionDenied
	case errors.Is(err, engine.ErrBookFull),
		errors.Is(err, engine.ErrRolloverRequired),
		errors.Is(err, settle.ErrLogFull),
		errors.Is(err, slab.ErrCapacity):
		code = codes.ResourceExhausted
	case errors.Is(err, engine.ErrBadQty),
		errors.Is(err, engine.ErrBadPrice),
		errors.Is(err, engine.ErrBadTick),
		errors.Is(err, engine.ErrBelowMin),
		errors.Is(err, engine.ErrExpired),
		errors.Is(err, engine.ErrInvalid),
		errors.Is(err, engine.ErrRolloverNotNeeded):
		code = codes.InvalidArgument
	case errors.Is(err, engine.ErrNotFilled),
		errors.Is(err, engine.ErrMarketClosed),
		errors.Is(err, engine.ErrLogNotEmpty),
		errors.Is(err, engine.ErrVaultNotEmpty):
		code = codes.FailedPrecondition
	case errors.Is(err, engine.ErrVault):
		code = codes.Aborted
	case errors.Is(err, engine.ErrOverflow):
		code = codes.OutOfRange
	default:
		code = codes.Internal
	}
	return status.Error(code, err.Error())
}

func (s *Server) CreateMarket(ctx context.Context, req *pb.CreateMarketRequest) (*pb.CreateMarketReply, error) {
	manager, err := key(req.Manager)
	if err != nil {
		return nil, err
	}
	mktMint, err := key(req.MktMint)
	if err != nil {
		return nil, err
	}
	prcMint, err := key(req.PrcMint)
	if err != nil {
		return nil, err
	}
	cfg := market.Config{
		MktDecimals:    uint8(req.MktDecimals),
		PrcDecimals:    uint8(req.PrcDecimals),
		MktMintType:    uint8(req.MktMintType),
		PrcMintType:    uint8(req.PrcMintType),
		ManagerActions: req.ManagerActions,
		ExpireEnable:   req.ExpireEnable,
		ExpireMin:      req.ExpireMin,
		MinQuantity:    req.MinQuantity,
		TickDecimals:   uint8(req.TickDecimals),
		TakerFee:       req.TakerFee,
		MakerRebate:    req.MakerRebate,
		LogFee:         req.LogFee,
		LogRebate:      req.LogRebate,
		LogReimburse:   req.LogReimburse,
	}
	acc, err := s.svc.CreateMarket(cfg, manager, mktMint, prcMint)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.CreateMarketReply{
		Market:   acc.Market[:],
		State:    acc.State[:],
		Orders:   acc.Orders[:],
		TradeLog: acc.TradeLog[:],
		SettleA:  acc.SettleA[:],
		SettleB:  acc.SettleB[:],
		Agent:    acc.Agent[:],
		MktVault: acc.MktVault[:],
		PrcVault: acc.PrcVault[:],
	}, nil
}

func (s *Server) Limit(ctx context.Context, req *pb.OrderRequest) (*pb.OrderReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	sd, err := side(req.Side)
	if err != nil {
		return nil, err
	}
	user, err := key(req.User)
	if err != nil {
		return nil, err
	}
	userMkt, err := key(req.UserMkt)
	if err != nil {
		return nil, err
	}
	userPrc, err := key(req.UserPrc)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Limit(marketID, sd, service.LimitArgs{
		User:     user,
		UserMkt:  userMkt,
		UserPrc:  userPrc,
		Quantity: req.Quantity,
		Price:    req.Price,
		Post:     req.Post,
		Fill:     req.Fill,
		Expires:  req.Expires,
		Preview:  req.Preview,
		Rollover: req.Rollover,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.OrderReply{
		TokensSent:     res.TokensSent,
		TokensReceived: res.TokensReceived,
		TokensFee:      res.TokensFee,
		PostedQuantity: res.PostedQuantity,
		OrderId:        res.OrderID[:],
	}, nil
}

func (s *Server) CancelOrder(ctx context.Context, req *pb.CancelRequest) (*pb.WithdrawReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	sd, err := side(req.Side)
	if err != nil {
		return nil, err
	}
	user, err := key(req.User)
	if err != nil {
		return nil, err
	}
	userMkt, err := key(req.UserMkt)
	if err != nil {
		return nil, err
	}
	userPrc, err := key(req.UserPrc)
	if err != nil {
		return nil, err
	}
	oid, err := orderID(req.OrderId)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Cancel(marketID, sd, user, userMkt, userPrc, oid)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.WithdrawReply{MktTokens: res.MktTokens, PrcTokens: res.PrcTokens}, nil
}

func (s *Server) Withdraw(ctx context.Context, req *pb.WithdrawRequest) (*pb.WithdrawReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	user, err := key(req.User)
	if err != nil {
		return nil, err
	}
	userMkt, err := key(req.UserMkt)
	if err != nil {
		return nil, err
	}
	userPrc, err := key(req.UserPrc)
	if err != nil {
		return nil, err
	}
	logKey, err := key(req.Log)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.Withdraw(marketID, user, userMkt, userPrc, logKey)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.WithdrawReply{MktTokens: res.MktTokens, PrcTokens: res.PrcTokens}, nil
}

func (s *Server) ExpireOrder(ctx context.Context, req *pb.ExpireRequest) (*pb.ExpireReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	sd, err := side(req.Side)
	if err != nil {
		return nil, err
	}
	caller, err := key(req.Caller)
	if err != nil {
		return nil, err
	}
	oid, err := orderID(req.OrderId)
	if err != nil {
		return nil, err
	}
	removed, err := s.svc.ExpireOrder(marketID, sd, caller, oid)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.ExpireReply{Removed: removed}, nil
}

func (s *Server) ExtendLog(ctx context.Context, req *pb.ExtendLogRequest) (*pb.ExtendLogReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	user, err := key(req.User)
	if err != nil {
		return nil, err
	}
	logKey, err := s.svc.ExtendLog(marketID, user)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.ExtendLogReply{Log: logKey[:]}, nil
}

func (s *Server) LogStatus(ctx context.Context, req *pb.LogStatusRequest) (*pb.LogStatusReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	logKey, err := key(req.Log)
	if err != nil {
		return nil, err
	}
	st, err := s.svc.LogStatus(marketID, logKey)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.LogStatusReply{Prev: st.Prev[:], Next: st.Next[:], Items: st.Items}, nil
}

func (s *Server) Depth(ctx context.Context, req *pb.DepthRequest) (*pb.DepthReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	levels := int(req.Levels)
	if levels == 0 {
		levels = 32
	}
	d, err := s.svc.Depth(marketID, levels)
	if err != nil {
		return nil, toStatus(err)
	}
	reply := &pb.DepthReply{LastPrice: d.LastPrice, Ts: d.Ts}
	for _, l := range d.Bids {
		reply.Bids = append(reply.Bids, &pb.Level{Price: l.Price, Quantity: l.Quantity, Orders: l.Orders})
	}
	for _, l := range d.Asks {
		reply.Asks = append(reply.Asks, &pb.Level{Price: l.Price, Quantity: l.Quantity, Orders: l.Orders})
	}
	return reply, nil
}

func (s *Server) ManagerCancelOrder(ctx context.Context, req *pb.ManagerCancelRequest) (*pb.WithdrawReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	sd, err := side(req.Side)
	if err != nil {
		return nil, err
	}
	manager, err := key(req.Manager)
	if err != nil {
		return nil, err
	}
	oid, err := orderID(req.OrderId)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.ManagerCancel(marketID, manager, sd, oid, req.Rollover)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.WithdrawReply{MktTokens: res.MktTokens, PrcTokens: res.PrcTokens}, nil
}

func (s *Server) ManagerWithdraw(ctx context.Context, req *pb.ManagerWithdrawRequest) (*pb.WithdrawReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	manager, err := key(req.Manager)
	if err != nil {
		return nil, err
	}
	owner, err := key(req.Owner)
	if err != nil {
		return nil, err
	}
	ownerMkt, err := key(req.OwnerMkt)
	if err != nil {
		return nil, err
	}
	ownerPrc, err := key(req.OwnerPrc)
	if err != nil {
		return nil, err
	}
	logKey, err := key(req.Log)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.ManagerWithdraw(marketID, manager, owner, ownerMkt, ownerPrc, logKey)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.WithdrawReply{MktTokens: res.MktTokens, PrcTokens: res.PrcTokens}, nil
}

func (s *Server) ManagerWithdrawFees(ctx context.Context, req *pb.FeesRequest) (*pb.FeesReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	manager, err := key(req.Manager)
	if err != nil {
		return nil, err
	}
	managerPrc, err := key(req.ManagerPrc)
	if err != nil {
		return nil, err
	}
	amount, err := s.svc.ManagerWithdrawFees(marketID, manager, managerPrc)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.FeesReply{Amount: amount}, nil
}

func (s *Server) ManagerUpdateMarket(ctx context.Context, req *pb.ManagerUpdateRequest) (*pb.Ack, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	manager, err := key(req.Manager)
	if err != nil {
		return nil, err
	}
	err = s.svc.ManagerUpdateMarket(marketID, manager, engine.MarketUpdate{
		Active:       req.Active,
		ExpireEnable: req.ExpireEnable,
		ExpireMin:    req.ExpireMin,
		MinQuantity:  req.MinQuantity,
		TickDecimals: uint8(req.TickDecimals),
		TakerFee:     req.TakerFee,
		MakerRebate:  req.MakerRebate,
		LogFee:       req.LogFee,
		LogRebate:    req.LogRebate,
		LogReimburse: req.LogReimburse,
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.Ack{}, nil
}

func (s *Server) ManagerTransferSol(ctx context.Context, req *pb.ManagerTransferRequest) (*pb.FeesReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	manager, err := key(req.Manager)
	if err != nil {
		return nil, err
	}
	moved, err := s.svc.ManagerTransferSol(marketID, manager, req.Withdraw, req.All, req.Amount)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.FeesReply{Amount: moved}, nil
}

func (s *Server) CreateVault(ctx context.Context, req *pb.CreateVaultRequest) (*pb.Ack, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	manager, err := key(req.Manager)
	if err != nil {
		return nil, err
	}
	owner, err := key(req.Owner)
	if err != nil {
		return nil, err
	}
	if err := s.svc.CreateVault(marketID, manager, owner); err != nil {
		return nil, toStatus(err)
	}
	return &pb.Ack{}, nil
}

func (s *Server) VaultDeposit(ctx context.Context, req *pb.VaultDepositRequest) (*pb.Ack, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	manager, err := key(req.Manager)
	if err != nil {
		return nil, err
	}
	owner, err := key(req.Owner)
	if err != nil {
		return nil, err
	}
	logKey, err := key(req.Log)
	if err != nil {
		return nil, err
	}
	if err := s.svc.VaultDeposit(marketID, manager, owner, logKey); err != nil {
		return nil, toStatus(err)
	}
	return &pb.Ack{}, nil
}

func (s *Server) VaultWithdraw(ctx context.Context, req *pb.VaultWithdrawRequest) (*pb.WithdrawReply, error) {
	marketID, err := key(req.Market)
	if err != nil {
		return nil, err
	}
	actor, err := key(req.Actor)
	if err != nil {
		return nil, err
	}
	owner, err := key(req.Owner)
	if err != nil {
		return nil, err
	}
	ownerMkt, err := key(req.OwnerMkt)
	if err != nil {
		return nil, err
	}
	ownerPrc, err := key(req.OwnerPrc)
	if err != nil {
		return nil, err
	}
	res, err := s.svc.VaultWithdraw(marketID, actor, owner, ownerMkt, ownerPrc, req.Manager)
	if err != nil {
		return nil, toStatus(err)
	}
	return &pb.WithdrawReply{MktTokens: res.MktTokens, PrcTokens: res.PrcTokens}, nil
}
