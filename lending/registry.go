package lending

import (
	"context"
	"strings"

	"github.com/DomeLiquid/lending/core"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
)

// Registry owns the per-asset bank records.
type Registry struct {
	store core.BankStore
	clk   clock.Clock
	log   core.Log
}

func NewRegistry(store core.BankStore, clk clock.Clock, log core.Log) *Registry {
	return &Registry{store: store, clk: clk, log: log}
}

// InitializeBank registers asset with a zeroed bank. A second call for the
// same asset fails with core.ErrAlreadyExists and changes nothing.
func (r *Registry) InitializeBank(ctx context.Context, asset string, cfg core.BankConfig) (*core.Bank, error) {
	if strings.TrimSpace(asset) == "" {
		return nil, errors.Wrap(core.ErrInvalidConfig, "asset is empty")
	}
	cfg = cfg.WithDefaults()
	bank, err := core.NewBank(r.clk, asset, cfg)
	if err != nil {
		return nil, err
	}
	if err := r.store.CreateBank(ctx, bank); err != nil {
		return nil, err
	}

	r.log.Info().
		Str("asset", asset).
		Str("bankId", bank.Id.String()).
		Str("maxLtv", cfg.MaxLTV.String()).
		Str("liquidationThreshold", cfg.LiquidationThreshold.String()).
		Msg("bank initialized")
	return bank, nil
}

func (r *Registry) GetBank(ctx context.Context, asset string) (*core.Bank, error) {
	return r.store.GetBank(ctx, asset)
}

func (r *Registry) ListBanks(ctx context.Context) ([]*core.Bank, error) {
	return r.store.ListBanks(ctx)
}
