// Package pb holds the wire messages for the AquaDex gRPC service.
// The types are maintained by hand in lockstep with
// api/proto/aquadex.proto; the protobuf runtime derives descriptors
// from the struct tags, so field numbers here are load-bearing.
package pb

import (
	"google.golang.org/protobuf/encoding/prototext"
	"google.golang.org/protobuf/protoadapt"
)

func text(m protoadapt.MessageV1) string {
	return prototext.Format(protoadapt.MessageV2Of(m))
}

type Ack struct{}

func (m *Ack) Reset()         { *m = Ack{} }
func (m *Ack) String() string { return text(m) }
func (*Ack) ProtoMessage()    {}

type CreateMarketRequest struct {
	Manager        []byte `protobuf:"bytes,1,opt,name=manager,proto3" json:"manager,omitempty"`
	MktMint        []byte `protobuf:"bytes,2,opt,name=mkt_mint,json=mktMint,proto3" json:"mkt_mint,omitempty"`
	PrcMint        []byte `protobuf:"bytes,3,opt,name=prc_mint,json=prcMint,proto3" json:"prc_mint,omitempty"`
	MktDecimals    uint32 `protobuf:"varint,4,opt,name=mkt_decimals,json=mktDecimals,proto3" json:"mkt_decimals,omitempty"`
	PrcDecimals    uint32 `protobuf:"varint,5,opt,name=prc_decimals,json=prcDecimals,proto3" json:"prc_decimals,omitempty"`
	MktMintType    uint32 `protobuf:"varint,6,opt,name=mkt_mint_type,json=mktMintType,proto3" json:"mkt_mint_type,omitempty"`
	PrcMintType    uint32 `protobuf:"varint,7,opt,name=prc_mint_type,json=prcMintType,proto3" json:"prc_mint_type,omitempty"`
	ManagerActions bool   `protobuf:"varint,8,opt,name=manager_actions,json=managerActions,proto3" json:"manager_actions,omitempty"`
	ExpireEnable   bool   `protobuf:"varint,9,opt,name=expire_enable,json=expireEnable,proto3" json:"expire_enable,omitempty"`
	ExpireMin      int64  `protobuf:"varint,10,opt,name=expire_min,json=expireMin,proto3" json:"expire_min,omitempty"`
	MinQuantity    uint64 `protobuf:"varint,11,opt,name=min_quantity,json=minQuantity,proto3" json:"min_quantity,omitempty"`
	TickDecimals   uint32 `protobuf:"varint,12,opt,name=tick_decimals,json=tickDecimals,proto3" json:"tick_decimals,omitempty"`
	TakerFee       uint32 `protobuf:"varint,13,opt,name=taker_fee,json=takerFee,proto3" json:"taker_fee,omitempty"`
	MakerRebate    uint32 `protobuf:"varint,14,opt,name=maker_rebate,json=makerRebate,proto3" json:"maker_rebate,omitempty"`
	LogFee         uint64 `protobuf:"varint,15,opt,name=log_fee,json=logFee,proto3" json:"log_fee,omitempty"`
	LogRebate      uint64 `protobuf:"varint,16,opt,name=log_rebate,json=logRebate,proto3" json:"log_rebate,omitempty"`
	LogReimburse   uint64 `protobuf:"varint,17,opt,name=log_reimburse,json=logReimburse,proto3" json:"log_reimburse,omitempty"`
}

func (m *CreateMarketRequest) Reset()         { *m = CreateMarketRequest{} }
func (m *CreateMarketRequest) String() string { return text(m) }
func (*CreateMarketRequest) ProtoMessage()    {}

type CreateMarketReply struct {
	Market   []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	State    []byte `protobuf:"bytes,2,opt,name=state,proto3" json:"state,omitempty"`
	Orders   []byte `protobuf:"bytes,3,opt,name=orders,proto3" json:"orders,omitempty"`
	TradeLog []byte `protobuf:"bytes,4,opt,name=trade_log,json=tradeLog,proto3" json:"trade_log,omitempty"`
	SettleA  []byte `protobuf:"bytes,5,opt,name=settle_a,json=settleA,proto3" json:"settle_a,omitempty"`
	SettleB  []byte `protobuf:"bytes,6,opt,name=settle_b,json=settleB,proto3" json:"settle_b,omitempty"`
	Agent    []byte `protobuf:"bytes,7,opt,name=agent,proto3" json:"agent,omitempty"`
	MktVault []byte `protobuf:"bytes,8,opt,name=mkt_vault,json=mktVault,proto3" json:"mkt_vault,omitempty"`
	PrcVault []byte `protobuf:"bytes,9,opt,name=prc_vault,json=prcVault,proto3" json:"prc_vault,omitempty"`
}

func (m *CreateMarketReply) Reset()         { *m = CreateMarketReply{} }
func (m *CreateMarketReply) String() string { return text(m) }
func (*CreateMarketReply) ProtoMessage()    {}

type OrderRequest struct {
	Market   []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Side     uint32 `protobuf:"varint,2,opt,name=side,proto3" json:"side,omitempty"`
	User     []byte `protobuf:"bytes,3,opt,name=user,proto3" json:"user,omitempty"`
	UserMkt  []byte `protobuf:"bytes,4,opt,name=user_mkt,json=userMkt,proto3" json:"user_mkt,omitempty"`
	UserPrc  []byte `protobuf:"bytes,5,opt,name=user_prc,json=userPrc,proto3" json:"user_prc,omitempty"`
	Quantity uint64 `protobuf:"varint,6,opt,name=quantity,proto3" json:"quantity,omitempty"`
	Price    uint64 `protobuf:"varint,7,opt,name=price,proto3" json:"price,omitempty"`
	Post     bool   `protobuf:"varint,8,opt,name=post,proto3" json:"post,omitempty"`
	Fill     bool   `protobuf:"varint,9,opt,name=fill,proto3" json:"fill,omitempty"`
	Expires  int64  `protobuf:"varint,10,opt,name=expires,proto3" json:"expires,omitempty"`
	Preview  bool   `protobuf:"varint,11,opt,name=preview,proto3" json:"preview,omitempty"`
	Rollover bool   `protobuf:"varint,12,opt,name=rollover,proto3" json:"rollover,omitempty"`
}

func (m *OrderRequest) Reset()         { *m = OrderRequest{} }
func (m *OrderRequest) String() string { return text(m) }
func (*OrderRequest) ProtoMessage()    {}

type OrderReply struct {
	TokensSent     uint64 `protobuf:"varint,1,opt,name=tokens_sent,json=tokensSent,proto3" json:"tokens_sent,omitempty"`
	TokensReceived uint64 `protobuf:"varint,2,opt,name=tokens_received,json=tokensReceived,proto3" json:"tokens_received,omitempty"`
	TokensFee      uint64 `protobuf:"varint,3,opt,name=tokens_fee,json=tokensFee,proto3" json:"tokens_fee,omitempty"`
	PostedQuantity uint64 `protobuf:"varint,4,opt,name=posted_quantity,json=postedQuantity,proto3" json:"posted_quantity,omitempty"`
	OrderId        []byte `protobuf:"bytes,5,opt,name=order_id,json=orderId,proto3" json:"order_id,omitempty"`
}

func (m *OrderReply) Reset()         { *m = OrderReply{} }
func (m *OrderReply) String() string { return text(m) }
func (*OrderReply) ProtoMessage()    {}

type CancelRequest struct {
	Market  []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Side    uint32 `protobuf:"varint,2,opt,name=side,proto3" json:"side,omitempty"`
	User    []byte `protobuf:"bytes,3,opt,name=user,proto3" json:"user,omitempty"`
	UserMkt []byte `protobuf:"bytes,4,opt,name=user_mkt,json=userMkt,proto3" json:"user_mkt,omitempty"`
	UserPrc []byte `protobuf:"bytes,5,opt,name=user_prc,json=userPrc,proto3" json:"user_prc,omitempty"`
	OrderId []byte `protobuf:"bytes,6,opt,name=order_id,json=orderId,proto3" json:"order_id,omitempty"`
}

func (m *CancelRequest) Reset()         { *m = CancelRequest{} }
func (m *CancelRequest) String() string { return text(m) }
func (*CancelRequest) ProtoMessage()    {}

type WithdrawRequest struct {
	Market  []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	User    []byte `protobuf:"bytes,2,opt,name=user,proto3" json:"user,omitempty"`
	UserMkt []byte `protobuf:"bytes,3,opt,name=user_mkt,json=userMkt,proto3" json:"user_mkt,omitempty"`
	UserPrc []byte `protobuf:"bytes,4,opt,name=user_prc,json=userPrc,proto3" json:"user_prc,omitempty"`
	Log     []byte `protobuf:"bytes,5,opt,name=log,proto3" json:"log,omitempty"`
}

func (m *WithdrawRequest) Reset()         { *m = WithdrawRequest{} }
func (m *WithdrawRequest) String() string { return text(m) }
func (*WithdrawRequest) ProtoMessage()    {}

type WithdrawReply struct {
	MktTokens uint64 `protobuf:"varint,1,opt,name=mkt_tokens,json=mktTokens,proto3" json:"mkt_tokens,omitempty"`
	PrcTokens uint64 `protobuf:"varint,2,opt,name=prc_tokens,json=prcTokens,proto3" json:"prc_tokens,omitempty"`
}

func (m *WithdrawReply) Reset()         { *m = WithdrawReply{} }
func (m *WithdrawReply) String() string { return text(m) }
func (*WithdrawReply) ProtoMessage()    {}

type ExpireRequest struct {
	Market  []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Side    uint32 `protobuf:"varint,2,opt,name=side,proto3" json:"side,omitempty"`
	Caller  []byte `protobuf:"bytes,3,opt,name=caller,proto3" json:"caller,omitempty"`
	OrderId []byte `protobuf:"bytes,4,opt,name=order_id,json=orderId,proto3" json:"order_id,omitempty"`
}

func (m *ExpireRequest) Reset()         { *m = ExpireRequest{} }
func (m *ExpireRequest) String() string { return text(m) }
func (*ExpireRequest) ProtoMessage()    {}

type ExpireReply struct {
	Removed bool `protobuf:"varint,1,opt,name=removed,proto3" json:"removed,omitempty"`
}

func (m *ExpireReply) Reset()         { *m = ExpireReply{} }
func (m *ExpireReply) String() string { return text(m) }
func (*ExpireReply) ProtoMessage()    {}

type ExtendLogRequest struct {
	Market []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	User   []byte `protobuf:"bytes,2,opt,name=user,proto3" json:"user,omitempty"`
}

func (m *ExtendLogRequest) Reset()         { *m = ExtendLogRequest{} }
func (m *ExtendLogRequest) String() string { return text(m) }
func (*ExtendLogRequest) ProtoMessage()    {}

type ExtendLogReply struct {
	Log []byte `protobuf:"bytes,1,opt,name=log,proto3" json:"log,omitempty"`
}

func (m *ExtendLogReply) Reset()         { *m = ExtendLogReply{} }
func (m *ExtendLogReply) String() string { return text(m) }
func (*ExtendLogReply) ProtoMessage()    {}

type LogStatusRequest struct {
	Market []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Log    []byte `protobuf:"bytes,2,opt,name=log,proto3" json:"log,omitempty"`
}

func (m *LogStatusRequest) Reset()         { *m = LogStatusRequest{} }
func (m *LogStatusRequest) String() string { return text(m) }
func (*LogStatusRequest) ProtoMessage()    {}

type LogStatusReply struct {
	Prev  []byte `protobuf:"bytes,1,opt,name=prev,proto3" json:"prev,omitempty"`
	Next  []byte `protobuf:"bytes,2,opt,name=next,proto3" json:"next,omitempty"`
	Items uint32 `protobuf:"varint,3,opt,name=items,proto3" json:"items,omitempty"`
}

func (m *LogStatusReply) Reset()         { *m = LogStatusReply{} }
func (m *LogStatusReply) String() string { return text(m) }
func (*LogStatusReply) ProtoMessage()    {}

type DepthRequest struct {
	Market []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Levels uint32 `protobuf:"varint,2,opt,name=levels,proto3" json:"levels,omitempty"`
}

func (m *DepthRequest) Reset()         { *m = DepthRequest{} }
func (m *DepthRequest) String() string { return text(m) }
func (*DepthRequest) ProtoMessage()    {}

type Level struct {
	Price    uint64 `protobuf:"varint,1,opt,name=price,proto3" json:"price,omitempty"`
	Quantity uint64 `protobuf:"varint,2,opt,name=quantity,proto3" json:"quantity,omitempty"`
	Orders   uint32 `protobuf:"varint,3,opt,name=orders,proto3" json:"orders,omitempty"`
}

func (m *Level) Reset()         { *m = Level{} }
func (m *Level) String() string { return text(m) }
func (*Level) ProtoMessage()    {}

type DepthReply struct {
	Bids      []*Level `protobuf:"bytes,1,rep,name=bids,proto3" json:"bids,omitempty"`
	Asks      []*Level `protobuf:"bytes,2,rep,name=asks,proto3" json:"asks,omitempty"`
	LastPrice uint64   `protobuf:"varint,3,opt,name=last_price,json=lastPrice,proto3" json:"last_price,omitempty"`
	Ts        int64    `protobuf:"varint,4,opt,name=ts,proto3" json:"ts,omitempty"`
}

func (m *DepthReply) Reset()         { *m = DepthReply{} }
func (m *DepthReply) String() string { return text(m) }
func (*DepthReply) ProtoMessage()    {}

type ManagerCancelRequest struct {
	Market   []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Side     uint32 `protobuf:"varint,2,opt,name=side,proto3" json:"side,omitempty"`
	Manager  []byte `protobuf:"bytes,3,opt,name=manager,proto3" json:"manager,omitempty"`
	OrderId  []byte `protobuf:"bytes,4,opt,name=order_id,json=orderId,proto3" json:"order_id,omitempty"`
	Rollover bool   `protobuf:"varint,5,opt,name=rollover,proto3" json:"rollover,omitempty"`
}

func (m *ManagerCancelRequest) Reset()         { *m = ManagerCancelRequest{} }
func (m *ManagerCancelRequest) String() string { return text(m) }
func (*ManagerCancelRequest) ProtoMessage()    {}

type ManagerWithdrawRequest struct {
	Market   []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Manager  []byte `protobuf:"bytes,2,opt,name=manager,proto3" json:"manager,omitempty"`
	Owner    []byte `protobuf:"bytes,3,opt,name=owner,proto3" json:"owner,omitempty"`
	OwnerMkt []byte `protobuf:"bytes,4,opt,name=owner_mkt,json=ownerMkt,proto3" json:"owner_mkt,omitempty"`
	OwnerPrc []byte `protobuf:"bytes,5,opt,name=owner_prc,json=ownerPrc,proto3" json:"owner_prc,omitempty"`
	Log      []byte `protobuf:"bytes,6,opt,name=log,proto3" json:"log,omitempty"`
}

func (m *ManagerWithdrawRequest) Reset()         { *m = ManagerWithdrawRequest{} }
func (m *ManagerWithdrawRequest) String() string { return text(m) }
func (*ManagerWithdrawRequest) ProtoMessage()    {}

type FeesRequest struct {
	Market     []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Manager    []byte `protobuf:"bytes,2,opt,name=manager,proto3" json:"manager,omitempty"`
	ManagerPrc []byte `protobuf:"bytes,3,opt,name=manager_prc,json=managerPrc,proto3" json:"manager_prc,omitempty"`
}

func (m *FeesRequest) Reset()         { *m = FeesRequest{} }
func (m *FeesRequest) String() string { return text(m) }
func (*FeesRequest) ProtoMessage()    {}

type FeesReply struct {
	Amount uint64 `protobuf:"varint,1,opt,name=amount,proto3" json:"amount,omitempty"`
}

func (m *FeesReply) Reset()         { *m = FeesReply{} }
func (m *FeesReply) String() string { return text(m) }
func (*FeesReply) ProtoMessage()    {}

type ManagerUpdateRequest struct {
	Market       []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Manager      []byte `protobuf:"bytes,2,opt,name=manager,proto3" json:"manager,omitempty"`
	Active       bool   `protobuf:"varint,3,opt,name=active,proto3" json:"active,omitempty"`
	ExpireEnable bool   `protobuf:"varint,4,opt,name=expire_enable,json=expireEnable,proto3" json:"expire_enable,omitempty"`
	ExpireMin    int64  `protobuf:"varint,5,opt,name=expire_min,json=expireMin,proto3" json:"expire_min,omitempty"`
	MinQuantity  uint64 `protobuf:"varint,6,opt,name=min_quantity,json=minQuantity,proto3" json:"min_quantity,omitempty"`
	TickDecimals uint32 `protobuf:"varint,7,opt,name=tick_decimals,json=tickDecimals,proto3" json:"tick_decimals,omitempty"`
	TakerFee     uint32 `protobuf:"varint,8,opt,name=taker_fee,json=takerFee,proto3" json:"taker_fee,omitempty"`
	MakerRebate  uint32 `protobuf:"varint,9,opt,name=maker_rebate,json=makerRebate,proto3" json:"maker_rebate,omitempty"`
	LogFee       uint64 `protobuf:"varint,10,opt,name=log_fee,json=logFee,proto3" json:"log_fee,omitempty"`
	LogRebate    uint64 `protobuf:"varint,11,opt,name=log_rebate,json=logRebate,proto3" json:"log_rebate,omitempty"`
	LogReimburse uint64 `protobuf:"varint,12,opt,name=log_reimburse,json=logReimburse,proto3" json:"log_reimburse,omitempty"`
}

func (m *ManagerUpdateRequest) Reset()         { *m = ManagerUpdateRequest{} }
func (m *ManagerUpdateRequest) String() string { return text(m) }
func (*ManagerUpdateRequest) ProtoMessage()    {}

type ManagerTransferRequest struct {
	Market   []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Manager  []byte `protobuf:"bytes,2,opt,name=manager,proto3" json:"manager,omitempty"`
	Withdraw bool   `protobuf:"varint,3,opt,name=withdraw,proto3" json:"withdraw,omitempty"`
	All      bool   `protobuf:"varint,4,opt,name=all,proto3" json:"all,omitempty"`
	Amount   uint64 `protobuf:"varint,5,opt,name=amount,proto3" json:"amount,omitempty"`
}

func (m *ManagerTransferRequest) Reset()         { *m = ManagerTransferRequest{} }
func (m *ManagerTransferRequest) String() string { return text(m) }
func (*ManagerTransferRequest) ProtoMessage()    {}

type CreateVaultRequest struct {
	Market  []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Manager []byte `protobuf:"bytes,2,opt,name=manager,proto3" json:"manager,omitempty"`
	Owner   []byte `protobuf:"bytes,3,opt,name=owner,proto3" json:"owner,omitempty"`
}

func (m *CreateVaultRequest) Reset()         { *m = CreateVaultRequest{} }
func (m *CreateVaultRequest) String() string { return text(m) }
func (*CreateVaultRequest) ProtoMessage()    {}

type VaultDepositRequest struct {
	Market  []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Manager []byte `protobuf:"bytes,2,opt,name=manager,proto3" json:"manager,omitempty"`
	Owner   []byte `protobuf:"bytes,3,opt,name=owner,proto3" json:"owner,omitempty"`
	Log     []byte `protobuf:"bytes,4,opt,name=log,proto3" json:"log,omitempty"`
}

func (m *VaultDepositRequest) Reset()         { *m = VaultDepositRequest{} }
func (m *VaultDepositRequest) String() string { return text(m) }
func (*VaultDepositRequest) ProtoMessage()    {}

type VaultWithdrawRequest struct {
	Market   []byte `protobuf:"bytes,1,opt,name=market,proto3" json:"market,omitempty"`
	Actor    []byte `protobuf:"bytes,2,opt,name=actor,proto3" json:"actor,omitempty"`
	Owner    []byte `protobuf:"bytes,3,opt,name=owner,proto3" json:"owner,omitempty"`
	OwnerMkt []byte `protobuf:"bytes,4,opt,name=owner_mkt,json=ownerMkt,proto3" json:"owner_mkt,omitempty"`
	OwnerPrc []byte `protobuf:"bytes,5,opt,name=owner_prc,json=ownerPrc,proto3" json:"owner_prc,omitempty"`
	Manager  bool   `protobuf:"varint,6,opt,name=manager,proto3" json:"manager,omitempty"`
}

func (m *VaultWithdrawRequest) Reset()         { *m = VaultWithdrawRequest{} }
func (m *VaultWithdrawRequest) String() string { return text(m) }
func (*VaultWithdrawRequest) ProtoMessage()    {}
