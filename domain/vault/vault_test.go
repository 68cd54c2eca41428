package vault

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/atellix/aqua-dex/domain/market"
)

func acct(b byte) market.Key {
	var k market.Key
	k[0] = b
	return k
}

func TestMoveAndBalance(t *testing.T) {
	l := NewLedger()
	l.Mint(acct(1), 100)

	require.NoError(t, l.Move(acct(1), acct(2), 40))
	b, err := l.Balance(acct(1))
	require.NoError(t, err)
	require.Equal(t, uint64(60), b)
	b, err = l.Balance(acct(2))
	require.NoError(t, err)
	require.Equal(t, uint64(40), b)

	err = l.Move(acct(1), acct(2), 100)
	require.ErrorIs(t, err, ErrInsufficient)

	_, err = l.Balance(acct(9))
	require.ErrorIs(t, err, ErrUnknownAccount)
}

func TestZeroMoveIsFree(t *testing.T) {
	l := NewLedger()
	require.NoError(t, l.Move(acct(1), acct(2), 0))
}
