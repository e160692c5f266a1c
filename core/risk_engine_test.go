package core

import (
	"context"
	"testing"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRiskEngineCheckAccountHealth(t *testing.T) {
	clk := clock.NewMock()
	banks := map[string]*Bank{
		"BTC": newTestBank(clk, "BTC"),
		"USD": newTestBank(clk, "USD"),
	}
	oracle := fixedOracle{"BTC": d("100"), "USD": ONE}

	tests := []struct {
		name    string
		deposit decimal.Decimal
		borrow  decimal.Decimal
		wantErr error
	}{
		{"no debt", d("1"), decimal.Zero, nil},
		{"below limit", d("1"), d("79.99"), nil},
		{"at limit", d("1"), d("80"), ErrInsufficientCollateral},
		{"above limit", d("1"), d("90"), ErrInsufficientCollateral},
		{"no collateral", decimal.Zero, d("1"), ErrInsufficientCollateral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPosition(clk, "alice")
			if tt.deposit.IsPositive() {
				require.NoError(t, p.ChangeDepositShares("BTC", tt.deposit))
			}
			if tt.borrow.IsPositive() {
				require.NoError(t, p.ChangeBorrowShares("USD", tt.borrow))
			}

			engine, err := NewRiskEngine(context.Background(), p, banks, oracle)
			require.NoError(t, err)

			err = engine.CheckAccountHealth(Initial)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			}
		})
	}
}

func TestRiskEnginePriceUnavailable(t *testing.T) {
	clk := clock.NewMock()
	banks := map[string]*Bank{"BTC": newTestBank(clk, "BTC")}
	p := newTestPosition(clk, "alice")
	require.NoError(t, p.ChangeDepositShares("BTC", d("1")))

	_, err := NewRiskEngine(context.Background(), p, banks, fixedOracle{})
	assert.True(t, errors.Is(err, ErrCollateralCheckFailed))
	assert.True(t, errors.Is(err, ErrPriceUnavailable))
	assert.Equal(t, "CollateralCheckFailed", ErrorKind(err))

	_, err = NewRiskEngine(context.Background(), p, banks, fixedOracle{"BTC": decimal.Zero})
	assert.True(t, errors.Is(err, ErrCollateralCheckFailed))
}

func TestRiskEngineMissingBank(t *testing.T) {
	p := newTestPosition(clock.NewMock(), "alice")
	require.NoError(t, p.ChangeDepositShares("BTC", d("1")))

	_, err := NewRiskEngine(context.Background(), p, map[string]*Bank{}, fixedOracle{"BTC": ONE})
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRiskEngineHealth(t *testing.T) {
	clk := clock.NewMock()
	banks := map[string]*Bank{"BTC": newTestBank(clk, "BTC")}
	p := newTestPosition(clk, "alice")
	require.NoError(t, p.ChangeDepositShares("BTC", d("100")))
	require.NoError(t, p.ChangeBorrowShares("BTC", d("70")))

	engine, err := NewRiskEngine(context.Background(), p, banks, fixedOracle{"BTC": d("2")})
	require.NoError(t, err)

	assets, liabilities, err := engine.GetAccountHealthComponents(Equity)
	require.NoError(t, err)
	assert.True(t, assets.Equal(d("200")))
	assert.True(t, liabilities.Equal(d("140")))

	health, err := engine.GetAccountHealth(Initial)
	require.NoError(t, err)
	assert.True(t, health.Equal(d("20")))

	factor, err := engine.HealthFactor()
	require.NoError(t, err)
	// 170 / 140
	assert.True(t, factor.Equal(d("1.21428571")), factor.String())

	liquidatable, err := engine.IsLiquidatable()
	require.NoError(t, err)
	assert.False(t, liquidatable)

	require.NoError(t, p.ChangeBorrowShares("BTC", d("20")))
	engine, err = NewRiskEngine(context.Background(), p, banks, fixedOracle{"BTC": d("2")})
	require.NoError(t, err)
	liquidatable, err = engine.IsLiquidatable()
	require.NoError(t, err)
	assert.True(t, liquidatable)
}
