// Package vault is the boundary to the external token program. The
// core never inspects token accounts; it asks the collaborator to move
// amounts between opaque 32-byte accounts and surfaces any refusal
// verbatim.
package vault

import (
	"errors"
	"fmt"
	"sync"

	"github.com/atellix/aqua-dex/domain/market"
)

// Mover performs token transfers on behalf of the engine. Balance
// backs preview mode's funds check; it must not mutate anything.
type Mover interface {
	Move(src, dst market.Key, amount uint64) error
	Balance(acct market.Key) (uint64, error)
}

var (
	// ErrInsufficient is returned when src lacks the amount.
	ErrInsufficient = errors.New("vault: insufficient tokens")

	// ErrUnknownAccount is returned for accounts never funded.
	ErrUnknownAccount = errors.New("vault: unknown account")
)

// Ledger is the in-memory Mover used by the daemon and tests.
type Ledger struct {
	mu  sync.Mutex
	bal map[market.Key]uint64
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{bal: make(map[market.Key]uint64)}
}

// Mint credits an account out of thin air (test and bootstrap helper).
func (l *Ledger) Mint(acct market.Key, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.bal[acct] += amount
}

// Move transfers amount from src to dst.
func (l *Ledger) Move(src, dst market.Key, amount uint64) error {
	if amount == 0 {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	have := l.bal[src]
	if have < amount {
		return fmt.Errorf("%w: %s has %d, need %d", ErrInsufficient, src, have, amount)
	}
	l.bal[src] = have - amount
	l.bal[dst] += amount
	return nil
}

// Balance reports an account's balance.
func (l *Ledger) Balance(acct market.Key) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.bal[acct]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAccount, acct)
	}
	return b, nil
}
