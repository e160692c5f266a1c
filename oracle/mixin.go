package oracle

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/DomeLiquid/lending/core"
	"github.com/facebookgo/clock"
	"github.com/fox-one/mixin-sdk-go/v2"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// AssetReader is the slice of the Mixin API the oracle needs. *mixin.Client
// satisfies it.
type AssetReader interface {
	SafeReadAsset(ctx context.Context, assetID string) (*mixin.SafeAsset, error)
}

var _ AssetReader = (*mixin.Client)(nil)

// Mixin polls USD prices of Mixin safe assets and serves the last good quote.
type Mixin struct {
	*Static

	reader AssetReader
	log    core.Log
	// lending asset -> mixin asset id
	assets map[string]string

	mu       sync.RWMutex
	metadata map[string]*MixinSafeAsset
}

var _ core.PriceOracle = (*Mixin)(nil)

func NewMixin(clk clock.Clock, log core.Log, reader AssetReader, assets map[string]string, maxAge time.Duration) *Mixin {
	return &Mixin{
		Static:   NewStatic(clk, maxAge),
		reader:   reader,
		log:      log,
		assets:   assets,
		metadata: map[string]*MixinSafeAsset{},
	}
}

// NewMixinFromAccessToken builds an oracle backed by the Mixin API.
func NewMixinFromAccessToken(clk clock.Clock, log core.Log, accessToken string, assets map[string]string, maxAge time.Duration) *Mixin {
	return NewMixin(clk, log, mixin.NewFromAccessToken(accessToken), assets, maxAge)
}

// Asset returns the last fetched metadata for a lending asset.
func (m *Mixin) Asset(asset string) (*MixinSafeAsset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.metadata[asset]
	return a, ok
}

// Refresh fetches every mapped asset. Prices that load are stored even when
// others fail; the first failure is returned.
func (m *Mixin) Refresh(ctx context.Context) error {
	names := make([]string, 0, len(m.assets))
	for name := range m.assets {
		names = append(names, name)
	}
	sort.Strings(names)

	var g errgroup.Group
	g.SetLimit(4)
	for _, name := range names {
		name, assetID := name, m.assets[name]
		g.Go(func() error {
			asset, err := m.reader.SafeReadAsset(ctx, assetID)
			if err != nil {
				m.log.Warn().Err(err).Str("asset", name).Str("mixinAssetId", assetID).Msg("read mixin asset")
				return errors.Wrapf(err, "read mixin asset %s", assetID)
			}

			a := NewMixinSafeAssetFromMixin(asset)
			m.mu.Lock()
			m.metadata[name] = a
			m.mu.Unlock()

			if err := m.SetPrice(name, a.PriceUSD); err != nil {
				m.log.Warn().Err(err).Str("asset", name).Msg("mixin asset has no usd price")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// Run refreshes prices every interval until ctx is done.
func (m *Mixin) Run(ctx context.Context, interval time.Duration) error {
	if err := m.Refresh(ctx); err != nil {
		m.log.Error().Err(err).Msg("refresh prices")
	}

	ticker := m.clk.Ticker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.Refresh(ctx); err != nil {
				m.log.Error().Err(err).Msg("refresh prices")
			}
		}
	}
}
