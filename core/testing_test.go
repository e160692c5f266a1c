package core

import (
	"context"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type fixedOracle map[string]decimal.Decimal

func (o fixedOracle) GetPrice(_ context.Context, asset string) (decimal.Decimal, error) {
	price, ok := o[asset]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrPriceUnavailable, "asset %s", asset)
	}
	return price, nil
}

func testBankConfig() BankConfig {
	return BankConfig{
		MaxLTV:               decimal.RequireFromString("0.8"),
		LiquidationThreshold: decimal.RequireFromString("0.85"),
		InterestRateConfig: InterestRateConfig{
			OptimalUtilizationRate: decimal.RequireFromString("0.8"),
			PlateauInterestRate:    decimal.RequireFromString("0.1"),
			MaxInterestRate:        decimal.RequireFromString("1"),
		},
	}.WithDefaults()
}

func newTestBank(clk clock.Clock, asset string) *Bank {
	bank, err := NewBank(clk, asset, testBankConfig())
	if err != nil {
		panic(err)
	}
	return bank
}

func newTestPosition(clk clock.Clock, owner string) *Position {
	p, err := NewPosition(clk, owner)
	if err != nil {
		panic(err)
	}
	return p
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
