package market

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Fixed little-endian codecs for the records the host persists and the
// byte-exact result records off-core decoders read.

var errShortRecord = errors.New("market: short record")

type writer struct{ b []byte }

func (w *writer) u8(v uint8)   { w.b = append(w.b, v) }
func (w *writer) u32(v uint32) { w.b = binary.LittleEndian.AppendUint32(w.b, v) }
func (w *writer) u64(v uint64) { w.b = binary.LittleEndian.AppendUint64(w.b, v) }
func (w *writer) i64(v int64)  { w.u64(uint64(v)) }
func (w *writer) key(v Key)    { w.b = append(w.b, v[:]...) }
func (w *writer) raw(v []byte) { w.b = append(w.b, v...) }

func (w *writer) bool(v bool) {
	if v {
		w.u8(1)
	} else {
		w.u8(0)
	}
}

type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return make([]byte, n)
	}
	if r.off+n > len(r.b) {
		r.err = errShortRecord
		return make([]byte, n)
	}
	v := r.b[r.off : r.off+n]
	r.off += n
	return v
}

func (r *reader) u8() uint8   { return r.take(1)[0] }
func (r *reader) bool() bool  { return r.u8() != 0 }
func (r *reader) u32() uint32 { return binary.LittleEndian.Uint32(r.take(4)) }
func (r *reader) u64() uint64 { return binary.LittleEndian.Uint64(r.take(8)) }
func (r *reader) i64() int64  { return int64(r.u64()) }

func (r *reader) key() Key {
	var k Key
	copy(k[:], r.take(32))
	return k
}

// MarshalBinary encodes the immutable market record.
func (m *Market) MarshalBinary() ([]byte, error) {
	w := &writer{b: make([]byte, 0, 512)}
	w.bool(m.Active)
	w.bool(m.ManagerWithdraw)
	w.bool(m.ManagerCancel)
	w.bool(m.ExpireEnable)
	w.i64(m.ExpireMin)
	w.u64(m.MinQuantity)
	w.u8(m.TickDecimals)
	w.u32(m.TakerFee)
	w.u32(m.MakerRebate)
	w.u64(m.LogFee)
	w.u64(m.LogRebate)
	w.u64(m.LogReimburse)
	w.key(m.MarketID)
	w.key(m.StateID)
	w.key(m.TradeLogID)
	w.key(m.OrdersID)
	w.key(m.Settle0)
	w.key(m.Agent)
	w.u8(m.AgentNonce)
	w.key(m.Manager)
	w.key(m.MktMint)
	w.key(m.MktVault)
	w.u8(m.MktNonce)
	w.u8(m.MktDecimals)
	w.u8(uint8(m.MktMintType))
	w.key(m.PrcMint)
	w.key(m.PrcVault)
	w.u8(m.PrcNonce)
	w.u8(m.PrcDecimals)
	w.u8(uint8(m.PrcMintType))
	return w.b, nil
}

// UnmarshalBinary decodes an immutable market record.
func (m *Market) UnmarshalBinary(b []byte) error {
	r := &reader{b: b}
	m.Active = r.bool()
	m.ManagerWithdraw = r.bool()
	m.ManagerCancel = r.bool()
	m.ExpireEnable = r.bool()
	m.ExpireMin = r.i64()
	m.MinQuantity = r.u64()
	m.TickDecimals = r.u8()
	m.TakerFee = r.u32()
	m.MakerRebate = r.u32()
	m.LogFee = r.u64()
	m.LogRebate = r.u64()
	m.LogReimburse = r.u64()
	m.MarketID = r.key()
	m.StateID = r.key()
	m.TradeLogID = r.key()
	m.OrdersID = r.key()
	m.Settle0 = r.key()
	m.Agent = r.key()
	m.AgentNonce = r.u8()
	m.Manager = r.key()
	m.MktMint = r.key()
	m.MktVault = r.key()
	m.MktNonce = r.u8()
	m.MktDecimals = r.u8()
	m.MktMintType = MintType(r.u8())
	m.PrcMint = r.key()
	m.PrcVault = r.key()
	m.PrcNonce = r.u8()
	m.PrcDecimals = r.u8()
	m.PrcMintType = MintType(r.u8())
	if r.err != nil {
		return fmt.Errorf("market record: %w", r.err)
	}
	return nil
}

// MarshalBinary encodes the mutable market state.
func (s *State) MarshalBinary() ([]byte, error) {
	w := &writer{b: make([]byte, 0, 224)}
	w.key(s.SettleA)
	w.key(s.SettleB)
	w.bool(s.LogRollover)
	w.u64(s.LogDepositBalance)
	w.u64(s.ActionCounter)
	w.u64(s.TradeCounter)
	w.u64(s.ActiveBid)
	w.u64(s.ActiveAsk)
	w.u64(s.MktVaultBalance)
	w.u64(s.MktOrderBalance)
	w.u64(s.MktUserVaultBalance)
	w.u64(s.MktLogBalance)
	w.u64(s.PrcVaultBalance)
	w.u64(s.PrcOrderBalance)
	w.u64(s.PrcUserVaultBalance)
	w.u64(s.PrcLogBalance)
	w.u64(s.PrcFeesBalance)
	w.i64(s.LastTs)
	w.u64(s.LastPrice)
	return w.b, nil
}

// UnmarshalBinary decodes a mutable market state.
func (s *State) UnmarshalBinary(b []byte) error {
	r := &reader{b: b}
	s.SettleA = r.key()
	s.SettleB = r.key()
	s.LogRollover = r.bool()
	s.LogDepositBalance = r.u64()
	s.ActionCounter = r.u64()
	s.TradeCounter = r.u64()
	s.ActiveBid = r.u64()
	s.ActiveAsk = r.u64()
	s.MktVaultBalance = r.u64()
	s.MktOrderBalance = r.u64()
	s.MktUserVaultBalance = r.u64()
	s.MktLogBalance = r.u64()
	s.PrcVaultBalance = r.u64()
	s.PrcOrderBalance = r.u64()
	s.PrcUserVaultBalance = r.u64()
	s.PrcLogBalance = r.u64()
	s.PrcFeesBalance = r.u64()
	s.LastTs = r.i64()
	s.LastPrice = r.u64()
	if r.err != nil {
		return fmt.Errorf("state record: %w", r.err)
	}
	return nil
}

// MarshalBinary encodes a user vault record.
func (v *UserVault) MarshalBinary() ([]byte, error) {
	w := &writer{b: make([]byte, 0, 81)}
	w.bool(v.Initialized)
	w.key(v.Market)
	w.key(v.Owner)
	w.u64(v.MktTokens)
	w.u64(v.PrcTokens)
	return w.b, nil
}

// UnmarshalBinary decodes a user vault record.
func (v *UserVault) UnmarshalBinary(b []byte) error {
	r := &reader{b: b}
	v.Initialized = r.bool()
	v.Market = r.key()
	v.Owner = r.key()
	v.MktTokens = r.u64()
	v.PrcTokens = r.u64()
	if r.err != nil {
		return fmt.Errorf("user vault record: %w", r.err)
	}
	return nil
}

// TradeResultSize is the byte-exact length of an encoded TradeResult.
const TradeResultSize = 8 + 8 + 8 + 8 + 16

// MarshalBinary lays the result out as
// {u64 tokens_sent, u64 tokens_received, u64 tokens_fee,
//  u64 posted_quantity, u128 order_id}.
func (t *TradeResult) MarshalBinary() ([]byte, error) {
	w := &writer{b: make([]byte, 0, TradeResultSize)}
	w.u64(t.TokensSent)
	w.u64(t.TokensReceived)
	w.u64(t.TokensFee)
	w.u64(t.PostedQuantity)
	w.raw(t.OrderID[:])
	return w.b, nil
}

// UnmarshalBinary decodes a trade result record.
func (t *TradeResult) UnmarshalBinary(b []byte) error {
	r := &reader{b: b}
	t.TokensSent = r.u64()
	t.TokensReceived = r.u64()
	t.TokensFee = r.u64()
	t.PostedQuantity = r.u64()
	copy(t.OrderID[:], r.take(16))
	if r.err != nil {
		return fmt.Errorf("trade result: %w", r.err)
	}
	return nil
}

// WithdrawResultSize is the byte-exact length of a WithdrawResult.
const WithdrawResultSize = 16

// MarshalBinary lays the result out as {u64 mkt_tokens, u64 prc_tokens}.
func (t *WithdrawResult) MarshalBinary() ([]byte, error) {
	w := &writer{b: make([]byte, 0, WithdrawResultSize)}
	w.u64(t.MktTokens)
	w.u64(t.PrcTokens)
	return w.b, nil
}

// UnmarshalBinary decodes a withdraw result record.
func (t *WithdrawResult) UnmarshalBinary(b []byte) error {
	r := &reader{b: b}
	t.MktTokens = r.u64()
	t.PrcTokens = r.u64()
	if r.err != nil {
		return fmt.Errorf("withdraw result: %w", r.err)
	}
	return nil
}
