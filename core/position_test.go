package core

import (
	"testing"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPosition(t *testing.T) {
	clk := clock.NewMock()

	p, err := NewPosition(clk, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Owner)
	assert.True(t, p.Active)
	assert.True(t, p.IsEmpty())
	assert.Empty(t, p.Assets())

	_, err = NewPosition(clk, "")
	assert.True(t, errors.Is(err, ErrInvalidOwner))
}

func TestPositionStateMachine(t *testing.T) {
	p := newTestPosition(clock.NewMock(), "alice")
	assert.Equal(t, PositionStateNone, p.State("BTC"))

	require.NoError(t, p.ChangeDepositShares("BTC", d("10")))
	assert.Equal(t, PositionStateDeposited, p.State("BTC"))

	require.NoError(t, p.ChangeBorrowShares("BTC", d("5")))
	assert.Equal(t, PositionStateBorrowed, p.State("BTC"))
	assert.True(t, p.HasBorrows())

	require.NoError(t, p.ChangeBorrowShares("BTC", d("-5")))
	assert.Equal(t, PositionStateDeposited, p.State("BTC"))

	require.NoError(t, p.ChangeDepositShares("BTC", d("-10")))
	assert.Equal(t, PositionStateClosed, p.State("BTC"))
	assert.False(t, p.Active)

	require.NoError(t, p.ChangeDepositShares("BTC", d("1")))
	assert.True(t, p.Active)
}

func TestPositionChangeSharesRejectsNegative(t *testing.T) {
	p := newTestPosition(clock.NewMock(), "alice")

	err := p.ChangeDepositShares("BTC", d("-1"))
	assert.True(t, errors.Is(err, ErrInsufficientBalance))
	err = p.ChangeBorrowShares("BTC", d("-1"))
	assert.True(t, errors.Is(err, ErrExceedsDebt))
	assert.Equal(t, PositionStateNone, p.State("BTC"))
}

func TestPositionClone(t *testing.T) {
	p := newTestPosition(clock.NewMock(), "alice")
	require.NoError(t, p.ChangeDepositShares("BTC", d("10")))

	c := p.Clone()
	require.NoError(t, c.ChangeDepositShares("BTC", d("5")))
	require.NoError(t, c.ChangeBorrowShares("ETH", d("1")))

	assert.True(t, p.DepositShares("BTC").Equal(d("10")))
	assert.Equal(t, []string{"BTC"}, p.Assets())
	assert.Equal(t, []string{"BTC", "ETH"}, c.Assets())
}

func TestPositionAccrue(t *testing.T) {
	p := newTestPosition(clock.NewMock(), "alice")
	p.Accrue(100)
	assert.Equal(t, int64(100), p.LastAccrual)
	p.Accrue(50)
	assert.Equal(t, int64(100), p.LastAccrual)
}
