package core

import (
	"context"

	"github.com/shopspring/decimal"
)

// PriceOracle prices one unit of an asset in a common quote currency.
// Implementations return ErrPriceUnavailable for a missing or stale price.
type PriceOracle interface {
	GetPrice(ctx context.Context, asset string) (decimal.Decimal, error)
}

type OracleSetup uint8

const (
	StaticOracle OracleSetup = iota
	MixinOracle
)

func (os OracleSetup) String() string {
	switch os {
	case StaticOracle:
		return "Static"
	case MixinOracle:
		return "Mixin"
	default:
		return "Unknown"
	}
}

func ParseOracleSetup(s string) (OracleSetup, bool) {
	switch s {
	case "", "static":
		return StaticOracle, true
	case "mixin":
		return MixinOracle, true
	default:
		return 0, false
	}
}
