// Package storetest holds the behaviour every core.LedgerStore must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/DomeLiquid/lending/core"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bankConfig() core.BankConfig {
	return core.BankConfig{
		MaxLTV:               decimal.RequireFromString("0.75"),
		LiquidationThreshold: decimal.RequireFromString("0.8"),
		DepositLimit:         decimal.RequireFromString("1000000"),
		InterestRateConfig: core.InterestRateConfig{
			BaseInterestRate:       decimal.RequireFromString("0.01"),
			OptimalUtilizationRate: decimal.RequireFromString("0.8"),
			PlateauInterestRate:    decimal.RequireFromString("0.1"),
			MaxInterestRate:        decimal.RequireFromString("1"),
			ReserveFactor:          decimal.RequireFromString("0.1"),
		},
	}.WithDefaults()
}

func newBank(t *testing.T, clk clock.Clock, asset string) *core.Bank {
	bank, err := core.NewBank(clk, asset, bankConfig())
	require.NoError(t, err)
	return bank
}

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) core.LedgerStore) {
	t.Run("banks", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		clk := clock.NewMock()

		_, err := store.GetBank(ctx, "BTC")
		assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)

		btc := newBank(t, clk, "BTC")
		require.NoError(t, store.CreateBank(ctx, btc))
		require.NoError(t, store.CreateBank(ctx, newBank(t, clk, "ETH")))

		err = store.CreateBank(ctx, newBank(t, clk, "BTC"))
		assert.True(t, errors.Is(err, core.ErrAlreadyExists), "got %v", err)

		got, err := store.GetBank(ctx, "BTC")
		require.NoError(t, err)
		assert.Equal(t, btc.Id, got.Id)
		assert.True(t, got.MaxLTV.Equal(btc.MaxLTV))
		assert.True(t, got.ReserveFactor.Equal(btc.ReserveFactor))
		assert.True(t, got.BorrowRate.Equal(btc.BorrowRate))
		assert.Equal(t, btc.CompoundingPeriod, got.CompoundingPeriod)

		got.TotalAssetShares = decimal.NewFromInt(5)
		again, err := store.GetBank(ctx, "BTC")
		require.NoError(t, err)
		assert.True(t, again.TotalAssetShares.IsZero(), "returned banks must be detached")

		banks, err := store.ListBanks(ctx)
		require.NoError(t, err)
		require.Len(t, banks, 2)
		assert.Equal(t, "BTC", banks[0].Asset)
		assert.Equal(t, "ETH", banks[1].Asset)
	})

	t.Run("positions", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		clk := clock.NewMock()

		_, err := store.GetPosition(ctx, "alice")
		assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)

		p, err := core.NewPosition(clk, "alice")
		require.NoError(t, err)
		require.NoError(t, store.CreatePosition(ctx, p))
		err = store.CreatePosition(ctx, p)
		assert.True(t, errors.Is(err, core.ErrAlreadyExists), "got %v", err)

		got, err := store.GetPosition(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, p.Id, got.Id)
		assert.True(t, got.Active)
		assert.Empty(t, got.Assets())
	})

	t.Run("commit", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		clk := clock.NewMock()

		bank := newBank(t, clk, "BTC")
		require.NoError(t, store.CreateBank(ctx, bank))
		p, err := core.NewPosition(clk, "alice")
		require.NoError(t, err)
		require.NoError(t, store.CreatePosition(ctx, p))

		ba := core.NewBankAccountWrapper(p, bank, core.WithClock(clk))
		shares, err := ba.Deposit(core.NopLog(), decimal.NewFromInt(100))
		require.NoError(t, err)
		require.NoError(t, store.Commit(ctx, bank, p, core.NewOperate(clk, ba, core.ActionDeposit, decimal.NewFromInt(100), shares)))

		clk.Add(time.Minute)
		_, err = ba.Borrow(core.NopLog(), decimal.NewFromInt(30))
		require.NoError(t, err)
		require.NoError(t, store.Commit(ctx, bank, p, core.NewOperate(clk, ba, core.ActionBorrow, decimal.NewFromInt(30), decimal.NewFromInt(30))))

		gotBank, err := store.GetBank(ctx, "BTC")
		require.NoError(t, err)
		assert.True(t, gotBank.TotalAssetShares.Equal(decimal.NewFromInt(100)))
		assert.True(t, gotBank.TotalLiabilityShares.Equal(decimal.NewFromInt(30)))
		assert.True(t, gotBank.BorrowRate.Equal(bank.BorrowRate))

		gotPosition, err := store.GetPosition(ctx, "alice")
		require.NoError(t, err)
		assert.True(t, gotPosition.DepositShares("BTC").Equal(decimal.NewFromInt(100)))
		assert.True(t, gotPosition.BorrowShares("BTC").Equal(decimal.NewFromInt(30)))
		assert.Equal(t, core.PositionStateBorrowed, gotPosition.State("BTC"))

		ops, err := store.ListOperates(ctx, "alice", 0)
		require.NoError(t, err)
		require.Len(t, ops, 2)
		assert.Equal(t, core.ActionBorrow, ops[0].Action)
		assert.Equal(t, core.ActionDeposit, ops[1].Action)
		assert.True(t, ops[0].Extra.DebtBalance.Equal(decimal.NewFromInt(30)))

		ops, err = store.ListOperates(ctx, "alice", 1)
		require.NoError(t, err)
		assert.Len(t, ops, 1)

		ops, err = store.ListOperates(ctx, "bob", 10)
		require.NoError(t, err)
		assert.Empty(t, ops)
	})

	t.Run("commit requires existing records", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		clk := clock.NewMock()

		bank := newBank(t, clk, "BTC")
		p, err := core.NewPosition(clk, "alice")
		require.NoError(t, err)

		err = store.Commit(ctx, bank, p, nil)
		assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)
	})
}
