package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DomeLiquid/lending/core"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
logging:
  level: debug
server:
  address: 127.0.0.1:9000
storage:
  driver: sqlite
  dsn: lending.db
oracle:
  kind: static
  maxAge: 2m
  prices:
    BTC: "60000"
    USDC: "1"
banks:
  - asset: BTC
    maxLtv: "0.7"
    liquidationThreshold: "0.8"
    optimalUtilizationRate: "0.8"
    plateauInterestRate: "0.1"
    maxInterestRate: "1"
    reserveFactor: "0.1"
  - asset: USDC
    maxLtv: "0.8"
    precision: 6
    depositLimit: "1000000"
    optimalUtilizationRate: "0.9"
    plateauInterestRate: "0.05"
    maxInterestRate: "0.5"
    state: reduce_only
`

func writeConfig(t *testing.T, body string) string {
	path := filepath.Join(t.TempDir(), "lending.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.ListenAddress)
	assert.Equal(t, "/metrics", cfg.Server.MetricsPath)
	assert.Equal(t, StorageSqlite, cfg.Storage.Driver)
	assert.Equal(t, 2*time.Minute, cfg.Oracle.MaxAge)
	assert.Equal(t, core.StaticOracle, cfg.OracleSetup())
	require.Len(t, cfg.Banks, 2)

	prices, err := cfg.StaticPrices()
	require.NoError(t, err)
	assert.Equal(t, "60000", prices["BTC"].String())

	btc, err := cfg.Banks[0].ToBankConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.7", btc.MaxLTV.String())
	assert.Equal(t, int32(core.DEFAULT_ASSET_PRECISION), btc.AssetPrecision())
	assert.Equal(t, int64(core.DEFAULT_COMPOUNDING_PERIOD), btc.CompoundingPeriod)
	assert.False(t, btc.IsDepositLimitActive())

	usdc, err := cfg.Banks[1].ToBankConfig()
	require.NoError(t, err)
	assert.Equal(t, "0.8", usdc.LiquidationThreshold.String())
	assert.Equal(t, int32(6), usdc.AssetPrecision())
	assert.True(t, usdc.IsDepositLimitActive())
	assert.Equal(t, core.BankOperationalStateReduceOnly, usdc.OperationalState)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, ":8080", cfg.Server.ListenAddress)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadEnvironment(t *testing.T) {
	t.Setenv("LENDING_LOGGING_LEVEL", "warn")
	t.Setenv("LENDING_SERVER_ADDRESS", ":9100")
	t.Setenv("LENDING_STORAGE_DRIVER", "badger")
	t.Setenv("LENDING_STORAGE_DSN", "/tmp/lending")
	t.Setenv("LENDING_ORACLE_MAX_AGE", "90s")
	t.Setenv("LENDING_ORACLE_ACCESS_TOKEN", "token")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, ":9100", cfg.Server.ListenAddress)
	assert.Equal(t, StorageBadger, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/lending", cfg.Storage.DSN)
	assert.Equal(t, 90*time.Second, cfg.Oracle.MaxAge)
	assert.Equal(t, "token", cfg.Oracle.AccessToken)
	assert.Equal(t, "/metrics", cfg.Server.MetricsPath)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"unknown storage", func(cfg *Config) { cfg.Storage.Driver = "postgres" }},
		{"sqlite without dsn", func(cfg *Config) { cfg.Storage.Driver = StorageSqlite }},
		{"unknown oracle", func(cfg *Config) { cfg.Oracle.Kind = "chainlink" }},
		{"bad static price", func(cfg *Config) { cfg.Oracle.Prices = map[string]string{"BTC": "abc"} }},
		{"mixin without assets", func(cfg *Config) { cfg.Oracle.Kind = "mixin" }},
		{"duplicate bank", func(cfg *Config) {
			b := BankConfig{Asset: "BTC", MaxLTV: "0.5", OptimalUtilizationRate: "0.8", PlateauInterestRate: "0.1", MaxInterestRate: "1"}
			cfg.Banks = []BankConfig{b, b}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestToBankConfig(t *testing.T) {
	valid := BankConfig{Asset: "BTC", MaxLTV: "0.5", OptimalUtilizationRate: "0.8", PlateauInterestRate: "0.1", MaxInterestRate: "1"}

	tests := []struct {
		name   string
		mutate func(b *BankConfig)
	}{
		{"empty asset", func(b *BankConfig) { b.Asset = "" }},
		{"bad decimal", func(b *BankConfig) { b.MaxLTV = "0.5x" }},
		{"ltv above one", func(b *BankConfig) { b.MaxLTV = "1.2" }},
		{"unknown state", func(b *BankConfig) { b.State = "frozen" }},
		{"threshold below ltv", func(b *BankConfig) { b.LiquidationThreshold = "0.4" }},
	}

	_, err := valid.ToBankConfig()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := valid
			tt.mutate(&b)
			_, err := b.ToBankConfig()
			assert.Error(t, err)
		})
	}
}

func TestToBankConfigWholeUnits(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
banks:
  - asset: NFT
    maxLtv: "0.3"
    precision: 0
    optimalUtilizationRate: "0.8"
    plateauInterestRate: "0.1"
    maxInterestRate: "1"
`))
	require.NoError(t, err)
	require.Len(t, cfg.Banks, 1)

	nft, err := cfg.Banks[0].ToBankConfig()
	require.NoError(t, err)
	assert.Equal(t, int32(0), nft.AssetPrecision())
}

func TestToBankConfigInvalidCurve(t *testing.T) {
	b := BankConfig{Asset: "BTC", MaxLTV: "0.5", OptimalUtilizationRate: "1", PlateauInterestRate: "0.1", MaxInterestRate: "1"}
	_, err := b.ToBankConfig()
	assert.True(t, errors.Is(err, core.ErrOptimalUr), "got %v", err)
}
