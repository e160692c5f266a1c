package lending

import (
	"context"

	"github.com/DomeLiquid/lending/core"
	"github.com/facebookgo/clock"
)

// Ledger owns the per-owner positions.
type Ledger struct {
	store core.PositionStore
	clk   clock.Clock
	log   core.Log
}

func NewLedger(store core.PositionStore, clk clock.Clock, log core.Log) *Ledger {
	return &Ledger{store: store, clk: clk, log: log}
}

func (l *Ledger) InitializeUser(ctx context.Context, owner string) (*core.Position, error) {
	position, err := core.NewPosition(l.clk, owner)
	if err != nil {
		return nil, err
	}
	if err := l.store.CreatePosition(ctx, position); err != nil {
		return nil, err
	}

	l.log.Info().Str("owner", owner).Str("positionId", position.Id.String()).Msg("user initialized")
	return position, nil
}

func (l *Ledger) GetPosition(ctx context.Context, owner string) (*core.Position, error) {
	return l.store.GetPosition(ctx, owner)
}
