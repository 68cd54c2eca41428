// Package market holds the shared domain types: account keys, sides,
// the immutable market record, the mutable market state, the creation
// envelope and the byte-exact result records.
package market

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key is a 32-byte account or owner identifier. The host hands these
// out; the core only compares and stores them.
type Key [32]byte

// ZeroKey is the absent-account sentinel (chain ends, unset vaults).
var ZeroKey Key

func (k Key) IsZero() bool { return k == ZeroKey }

func (k Key) String() string { return hex.EncodeToString(k[:8]) }

// Hex is the full 64-character form used in store keys and wire
// messages.
func (k Key) Hex() string { return hex.EncodeToString(k[:]) }

// ParseKey decodes a full hex key.
func ParseKey(s string) (Key, error) {
	var k Key
	raw, err := hex.DecodeString(s)
	if err != nil {
		return k, fmt.Errorf("market: bad key %q: %w", s, err)
	}
	if len(raw) != 32 {
		return k, fmt.Errorf("market: bad key length %d", len(raw))
	}
	copy(k[:], raw)
	return k, nil
}

// MarshalJSON renders keys as hex strings.
func (k Key) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.Hex())
}

// UnmarshalJSON accepts the hex form.
func (k *Key) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseKey(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Side tags the two halves of the book.
type Side uint8

const (
	Bid Side = 0
	Ask Side = 1
)

func (s Side) Opposite() Side { return s ^ 1 }

func (s Side) String() string {
	if s == Bid {
		return "bid"
	}
	return "ask"
}

// MintType distinguishes the token programs a vault may front.
type MintType uint8

const (
	MintToken MintType = 0
	// MintSecurityToken marks an AST-1 security token vault; transfers
	// for these require the auth pair the Vault collaborator manages.
	MintSecurityToken MintType = 1
)

// Market is immutable after creation.
type Market struct {
	Active          bool
	ManagerWithdraw bool
	ManagerCancel   bool
	ExpireEnable    bool
	ExpireMin       int64
	MinQuantity     uint64
	TickDecimals    uint8
	TakerFee        uint32 // parts per 10,000,000
	MakerRebate     uint32 // parts per 10,000,000
	LogFee          uint64
	LogRebate       uint64
	LogReimburse    uint64

	MarketID   Key
	StateID    Key
	TradeLogID Key
	OrdersID   Key
	Settle0    Key

	Agent      Key
	AgentNonce uint8
	Manager    Key

	MktMint     Key
	MktVault    Key
	MktNonce    uint8
	MktDecimals uint8
	MktMintType MintType

	PrcMint     Key
	PrcVault    Key
	PrcNonce    uint8
	PrcDecimals uint8
	PrcMintType MintType
}

// State is the mutable half of a market.
type State struct {
	SettleA     Key
	SettleB     Key
	LogRollover bool

	LogDepositBalance uint64
	ActionCounter     uint64
	TradeCounter      uint64
	ActiveBid         uint64
	ActiveAsk         uint64

	MktVaultBalance     uint64
	MktOrderBalance     uint64
	MktUserVaultBalance uint64
	MktLogBalance       uint64

	PrcVaultBalance     uint64
	PrcOrderBalance     uint64
	PrcUserVaultBalance uint64
	PrcLogBalance       uint64
	PrcFeesBalance      uint64

	LastTs    int64
	LastPrice uint64
}

// NextAction advances the action id (strictly monotonic across
// every state-changing call).
func (s *State) NextAction() uint64 {
	s.ActionCounter++
	return s.ActionCounter
}

// UserVault is the per-user parking account vault_deposit fills.
type UserVault struct {
	Initialized bool
	Market      Key
	Owner       Key
	MktTokens   uint64
	PrcTokens   uint64
}

// Config is the market creation envelope. Omitted fields default
// to zero/false.
type Config struct {
	AgentNonce    uint8
	MktVaultNonce uint8
	PrcVaultNonce uint8
	MktDecimals   uint8
	PrcDecimals   uint8
	MktMintType   uint8
	PrcMintType   uint8

	ManagerActions bool
	ExpireEnable   bool
	ExpireMin      int64
	MinQuantity    uint64
	TickDecimals   uint8
	TakerFee       uint32
	MakerRebate    uint32

	LogFee       uint64
	LogRebate    uint64
	LogReimburse uint64

	MktVaultUUID [16]byte
	PrcVaultUUID [16]byte
}

// TradeResult is the per-call result record; byte-exact so
// off-core decoders can read it without further calls.
type TradeResult struct {
	TokensReceived uint64
	TokensSent     uint64
	TokensFee      uint64
	PostedQuantity uint64
	OrderID        [16]byte
}

// WithdrawResult reports tokens moved back to the caller.
type WithdrawResult struct {
	MktTokens uint64
	PrcTokens uint64
}

// LogStatusResult is the read-only settlement log summary.
type LogStatusResult struct {
	Prev  Key
	Next  Key
	Items uint32
}
