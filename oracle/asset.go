package oracle

import (
	"github.com/fox-one/mixin-sdk-go/v2"
	"github.com/shopspring/decimal"
)

// MixinSafeAsset is the part of a Mixin safe asset the oracle keeps.
type MixinSafeAsset struct {
	AssetID   string          `json:"assetId,omitempty"`
	ChainID   string          `json:"chainId,omitempty"`
	Symbol    string          `json:"symbol,omitempty"`
	Name      string          `json:"name,omitempty"`
	Precision int32           `json:"precision,omitempty"`
	PriceUSD  decimal.Decimal `json:"priceUsd"`
}

func NewMixinSafeAssetFromMixin(asset *mixin.SafeAsset) *MixinSafeAsset {
	return &MixinSafeAsset{
		AssetID:   asset.AssetID,
		ChainID:   asset.ChainID,
		Symbol:    asset.Symbol,
		Name:      asset.Name,
		Precision: asset.Precision,
		PriceUSD:  asset.PriceUSD,
	}
}
