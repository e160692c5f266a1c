package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/DomeLiquid/lending/config"
	"github.com/DomeLiquid/lending/core"
	"github.com/DomeLiquid/lending/lending"
	"github.com/DomeLiquid/lending/oracle"
	"github.com/facebookgo/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootstrapBanks(t *testing.T) {
	ctx := context.Background()
	store, closeStore, err := openStore(config.StorageConfig{Driver: config.StorageMemory})
	require.NoError(t, err)
	defer closeStore()

	clk := clock.NewMock()
	controller := lending.NewController(store, oracle.NewStatic(clk, 0), lending.WithClock(clk))
	banks := []config.BankConfig{
		{Asset: "BTC", MaxLTV: "0.7", OptimalUtilizationRate: "0.8", PlateauInterestRate: "0.1", MaxInterestRate: "1"},
		{Asset: "USDC", MaxLTV: "0.8", OptimalUtilizationRate: "0.9", PlateauInterestRate: "0.05", MaxInterestRate: "0.5"},
	}

	require.NoError(t, bootstrapBanks(ctx, controller, banks, core.NopLog()))
	// a restart finds the banks already there
	require.NoError(t, bootstrapBanks(ctx, controller, banks, core.NopLog()))

	got, err := controller.ListBanks(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "0.7", got[0].MaxLTV.String())

	banks[0].MaxLTV = "2"
	assert.Error(t, bootstrapBanks(ctx, controller, banks, core.NopLog()))
}

func TestOpenStore(t *testing.T) {
	tests := []config.StorageConfig{
		{Driver: config.StorageMemory},
		{Driver: config.StorageSqlite, DSN: filepath.Join(t.TempDir(), "lending.db")},
		{Driver: config.StorageBadger, DSN: t.TempDir()},
	}
	for _, cfg := range tests {
		t.Run(cfg.Driver, func(t *testing.T) {
			store, closeStore, err := openStore(cfg)
			require.NoError(t, err)
			banks, err := store.ListBanks(context.Background())
			require.NoError(t, err)
			assert.Empty(t, banks)
			assert.NoError(t, closeStore())
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	root := rootCommand()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Equal(t, "lendingd dev\n", out.String())
}
