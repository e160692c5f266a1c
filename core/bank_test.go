package core

import (
	"testing"
	"time"

	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(bc *BankConfig)
		wantErr error
	}{
		{"valid", func(bc *BankConfig) {}, nil},
		{"zero ltv", func(bc *BankConfig) { bc.MaxLTV = decimal.Zero }, ErrInvalidConfig},
		{"ltv of one", func(bc *BankConfig) { bc.MaxLTV = ONE }, ErrInvalidConfig},
		{"threshold below ltv", func(bc *BankConfig) { bc.LiquidationThreshold = d("0.5") }, ErrInvalidConfig},
		{"negative limit", func(bc *BankConfig) { bc.DepositLimit = d("-1") }, ErrInvalidConfig},
		{"zero period", func(bc *BankConfig) { bc.CompoundingPeriod = 0 }, ErrInvalidConfig},
		{"unknown state", func(bc *BankConfig) { bc.OperationalState = 9 }, ErrInvalidConfig},
		{"optimal ur", func(bc *BankConfig) { bc.OptimalUtilizationRate = ONE }, ErrOptimalUr},
		{"plateau", func(bc *BankConfig) { bc.PlateauInterestRate = decimal.Zero }, ErrPlateauIr},
		{"plateau above max", func(bc *BankConfig) { bc.PlateauInterestRate = d("2") }, ErrPlateauGreaterThanMax},
		{"reserve factor", func(bc *BankConfig) { bc.ReserveFactor = ONE }, ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := testBankConfig()
			tt.mutate(&bc)
			err := bc.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			assert.Equal(t, "InvalidConfig", ErrorKind(err))
		})
	}
}

func TestBankConfigWithDefaults(t *testing.T) {
	bc := BankConfig{MaxLTV: d("0.7")}.WithDefaults()
	assert.True(t, bc.LiquidationThreshold.Equal(d("0.7")))
	assert.Equal(t, DEFAULT_ASSET_PRECISION, bc.AssetPrecision())

	whole := int32(0)
	bc = testBankConfig()
	bc.Precision = &whole
	bc = bc.WithDefaults()
	assert.Equal(t, int32(0), bc.AssetPrecision())
	assert.NoError(t, bc.Validate())
	assert.Equal(t, int64(DEFAULT_COMPOUNDING_PERIOD), bc.CompoundingPeriod)
}

func TestInterestRateCurve(t *testing.T) {
	irc := testBankConfig().InterestRateConfig
	tests := []struct {
		ur       string
		expected string
	}{
		{"0", "0"},
		{"0.4", "0.05"},
		{"0.8", "0.1"},
		{"0.9", "0.55"},
		{"1", "1"},
	}
	for _, tt := range tests {
		t.Run(tt.ur, func(t *testing.T) {
			got := irc.InterestRateCurve(d(tt.ur))
			assert.True(t, got.Equal(d(tt.expected)), "expected %s, got %s", tt.expected, got)
		})
	}
}

func TestCalcInterestRate(t *testing.T) {
	irc := testBankConfig().InterestRateConfig
	irc.BaseInterestRate = d("0.01")
	irc.ReserveFactor = d("0.1")

	deposit, borrow, err := irc.CalcInterestRate(d("0.4"))
	require.NoError(t, err)
	// borrow = 0.01 + 0.05, deposit = 0.06 * 0.4 * 0.9
	assert.True(t, borrow.Equal(d("0.06")), borrow.String())
	assert.True(t, deposit.Equal(d("0.0216")), deposit.String())
}

func TestNewBank(t *testing.T) {
	clk := clock.NewMock()
	bank := newTestBank(clk, "BTC")

	assert.Equal(t, "BTC", bank.Asset)
	assert.Equal(t, bank.Id, newTestBank(clk, "BTC").Id)
	assert.NotEqual(t, bank.Id, newTestBank(clk, "ETH").Id)
	assert.True(t, bank.AssetShareValue.Equal(ONE))
	assert.True(t, bank.LiabilityShareValue.Equal(ONE))
	assert.True(t, bank.GetTotalDeposits().IsZero())
	assert.True(t, bank.GetTotalBorrows().IsZero())
	assert.Equal(t, clk.Now().Unix(), bank.LastUpdate)

	cfg := testBankConfig()
	cfg.BaseInterestRate = d("-0.01")
	_, err := NewBank(clk, "BTC", cfg)
	assert.True(t, errors.Is(err, ErrNegativeInterestRate), "got %v", err)

	cfg = testBankConfig()
	cfg.MaxLTV = ONE
	_, err = NewBank(clk, "BTC", cfg)
	assert.True(t, errors.Is(err, ErrInvalidConfig), "got %v", err)
}

func TestBankClone(t *testing.T) {
	bank := newTestBank(clock.NewMock(), "BTC")
	c := bank.Clone()
	c.TotalAssetShares = d("10")
	assert.True(t, bank.TotalAssetShares.IsZero())
}

func TestBankShareConversion(t *testing.T) {
	bank := newTestBank(clock.NewMock(), "BTC")
	bank.AssetShareValue = d("1.5")
	bank.LiabilityShareValue = d("1.5")

	assert.True(t, bank.GetAssetShares(d("1"), RoundDown).Equal(d("0.666666666666666666")))
	assert.True(t, bank.GetLiabilityShares(d("1"), RoundUp).Equal(d("0.666666666666666667")))
	assert.True(t, bank.GetAssetAmount(d("2"), RoundDown).Equal(d("3")))
}

func TestBankChangeShares(t *testing.T) {
	bank := newTestBank(clock.NewMock(), "BTC")
	bank.DepositLimit = d("100")
	bank.BorrowLimit = d("50")

	require.NoError(t, bank.ChangeAssetShares(d("100"), false))
	err := bank.ChangeAssetShares(d("1"), false)
	assert.True(t, errors.Is(err, ErrDepositLimitExceeded))
	assert.True(t, bank.TotalAssetShares.Equal(d("100")), "failed change must not apply")
	assert.NoError(t, bank.ChangeAssetShares(d("1"), true))

	require.NoError(t, bank.ChangeLiabilityShares(d("50"), false))
	assert.True(t, errors.Is(bank.ChangeLiabilityShares(d("1"), false), ErrBorrowLimitExceeded))
	assert.True(t, errors.Is(bank.ChangeLiabilityShares(d("-51"), false), ErrExceedsDebt))
	assert.True(t, errors.Is(bank.ChangeAssetShares(d("-102"), false), ErrInsufficientBalance))
}

func TestBankLiquidity(t *testing.T) {
	bank := newTestBank(clock.NewMock(), "BTC")
	bank.TotalAssetShares = d("100")
	bank.TotalLiabilityShares = d("70")

	assert.True(t, bank.AvailableLiquidity().Equal(d("30")))
	assert.NoError(t, bank.CheckLiquidity(d("30")))
	assert.True(t, errors.Is(bank.CheckLiquidity(d("30.1")), ErrInsufficientLiquidity))
	assert.True(t, bank.ComputeUtilizationRate().Equal(d("0.7")))
}

func TestBankAssertOperationalMode(t *testing.T) {
	bank := newTestBank(clock.NewMock(), "BTC")
	assert.NoError(t, bank.AssertOperationalMode(true))

	bank.OperationalState = BankOperationalStateReduceOnly
	assert.True(t, errors.Is(bank.AssertOperationalMode(true), ErrBankReduceOnly))
	assert.NoError(t, bank.AssertOperationalMode(false))

	bank.OperationalState = BankOperationalStatePaused
	assert.True(t, errors.Is(bank.AssertOperationalMode(false), ErrBankPaused))
}

func utilizedBank(clk clock.Clock) *Bank {
	bank := newTestBank(clk, "BTC")
	bank.TotalAssetShares = d("100")
	bank.TotalLiabilityShares = d("50")
	if err := bank.UpdateRates(); err != nil {
		panic(err)
	}
	return bank
}

func TestBankApy(t *testing.T) {
	bank := newTestBank(clock.NewMock(), "BTC")
	depositApy, borrowApy := bank.Apy()
	assert.True(t, depositApy.IsZero())
	assert.True(t, borrowApy.IsZero())

	// borrow apr 0.0625, deposit apr 0.03125, compounded hourly
	bank = utilizedBank(clock.NewMock())
	depositApy, borrowApy = bank.Apy()
	assert.True(t, borrowApy.GreaterThan(d("0.0644")) && borrowApy.LessThan(d("0.0646")), "borrow apy %s", borrowApy)
	assert.True(t, depositApy.GreaterThan(bank.DepositRate) && depositApy.LessThan(d("0.0318")), "deposit apy %s", depositApy)
}

func TestAccrueInterest(t *testing.T) {
	log := NopLog()

	t.Run("partial period is pending", func(t *testing.T) {
		clk := clock.NewMock()
		bank := utilizedBank(clk)
		start := bank.LastUpdate

		require.NoError(t, bank.AccrueInterest(log, start+1800))
		assert.True(t, bank.LiabilityShareValue.Equal(ONE))
		assert.Equal(t, start, bank.LastUpdate)
	})

	t.Run("one period", func(t *testing.T) {
		clk := clock.NewMock()
		bank := utilizedBank(clk)
		start := bank.LastUpdate
		borrowRate := bank.BorrowRate
		depositRate := bank.DepositRate
		assert.True(t, borrowRate.Equal(d("0.0625")), borrowRate.String())
		assert.True(t, depositRate.Equal(d("0.03125")), depositRate.String())

		require.NoError(t, bank.AccrueInterest(log, start+5400))
		assert.Equal(t, start+3600, bank.LastUpdate, "remainder carries over")
		assert.True(t, bank.LiabilityShareValue.Equal(ONE.Add(RatePerPeriod(borrowRate, 3600, RoundUp))))
		assert.True(t, bank.AssetShareValue.Equal(ONE.Add(RatePerPeriod(depositRate, 3600, RoundDown))))
	})

	t.Run("one year stays solvent", func(t *testing.T) {
		clk := clock.NewMock()
		bank := utilizedBank(clk)
		bank.ReserveFactor = d("0.2")
		require.NoError(t, bank.UpdateRates())
		start := bank.LastUpdate

		require.NoError(t, bank.AccrueInterest(log, start+int64((365*24*time.Hour).Seconds())))
		assert.True(t, bank.LiabilityShareValue.GreaterThan(bank.AssetShareValue))
		assert.True(t, bank.AssetShareValue.GreaterThan(ONE))
		assert.True(t, bank.ReserveShares.IsPositive())
		assert.True(t, bank.GetTotalBorrows().LessThanOrEqual(bank.GetTotalDeposits()))

		// lenders plus reserves never gain more than borrowers owe
		borrowInterest := bank.GetTotalBorrows().Sub(d("50"))
		depositInterest := bank.GetTotalDeposits().Sub(d("100"))
		assert.True(t, depositInterest.LessThanOrEqual(borrowInterest), "%s > %s", depositInterest, borrowInterest)
	})

	t.Run("no borrows only advances time", func(t *testing.T) {
		clk := clock.NewMock()
		bank := newTestBank(clk, "BTC")
		bank.TotalAssetShares = d("100")
		start := bank.LastUpdate

		require.NoError(t, bank.AccrueInterest(log, start+7200))
		assert.True(t, bank.AssetShareValue.Equal(ONE))
		assert.Equal(t, start+7200, bank.LastUpdate)
	})

	t.Run("projection leaves the bank untouched", func(t *testing.T) {
		clk := clock.NewMock()
		bank := utilizedBank(clk)
		projected, err := bank.ProjectedTo(bank.LastUpdate + 36000)
		require.NoError(t, err)
		assert.True(t, projected.LiabilityShareValue.GreaterThan(ONE))
		assert.True(t, bank.LiabilityShareValue.Equal(ONE))
	})
}
