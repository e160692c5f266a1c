// Package oracle provides core.PriceOracle implementations.
package oracle

import (
	"context"
	"sync"
	"time"

	"github.com/DomeLiquid/lending/core"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type quote struct {
	price     decimal.Decimal
	updatedAt time.Time
}

// Static serves prices pushed with SetPrice. A price older than maxAge is
// reported as unavailable; a zero maxAge never expires.
type Static struct {
	clk    clock.Clock
	maxAge time.Duration

	mu     sync.RWMutex
	prices map[string]quote
}

var _ core.PriceOracle = (*Static)(nil)

func NewStatic(clk clock.Clock, maxAge time.Duration) *Static {
	return &Static{
		clk:    clk,
		maxAge: maxAge,
		prices: map[string]quote{},
	}
}

func (s *Static) SetPrice(asset string, price decimal.Decimal) error {
	if !price.IsPositive() {
		return errors.Wrapf(core.ErrInvalidAmount, "price %s for %s", price, asset)
	}

	s.mu.Lock()
	s.prices[asset] = quote{price: price, updatedAt: s.clk.Now()}
	s.mu.Unlock()
	return nil
}

func (s *Static) GetPrice(_ context.Context, asset string) (decimal.Decimal, error) {
	s.mu.RLock()
	q, ok := s.prices[asset]
	s.mu.RUnlock()

	if !ok {
		return decimal.Zero, errors.Wrapf(core.ErrPriceUnavailable, "no price for %s", asset)
	}
	if s.maxAge > 0 && s.clk.Now().Sub(q.updatedAt) > s.maxAge {
		return decimal.Zero, errors.Wrapf(core.ErrPriceUnavailable, "price for %s is stale since %s", asset, q.updatedAt.Format(time.RFC3339))
	}
	return q.price, nil
}

// Prices returns a snapshot of every stored price.
func (s *Static) Prices() map[string]decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]decimal.Decimal, len(s.prices))
	for asset, q := range s.prices {
		prices[asset] = q.price
	}
	return prices
}
