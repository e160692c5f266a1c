package core

import (
	"context"

	"github.com/DomeLiquid/lending/utils"
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type (
	BankStore interface {
		// CreateBank fails with ErrAlreadyExists when the asset is registered.
		CreateBank(ctx context.Context, bank *Bank) error
		// GetBank returns a detached copy or ErrNotFound.
		GetBank(ctx context.Context, asset string) (*Bank, error)
		ListBanks(ctx context.Context) ([]*Bank, error)
	}

	Bank struct {
		Id    uuid.UUID `json:"id"`
		Asset string    `json:"asset"`

		AssetShareValue     decimal.Decimal `json:"assetShareValue"`
		LiabilityShareValue decimal.Decimal `json:"liabilityShareValue"`

		TotalAssetShares     decimal.Decimal `json:"totalAssetShares"`
		TotalLiabilityShares decimal.Decimal `json:"totalLiabilityShares"`
		ReserveShares        decimal.Decimal `json:"reserveShares"`

		DepositRate decimal.Decimal `json:"depositRate"`
		BorrowRate  decimal.Decimal `json:"borrowRate"`

		BankConfig `json:"bankConfig"`

		CreatedAt  int64 `json:"createdAt"`
		LastUpdate int64 `json:"lastUpdate"`
	}

	BankConfig struct {
		MaxLTV               decimal.Decimal `json:"maxLtv"`
		LiquidationThreshold decimal.Decimal `json:"liquidationThreshold"`

		// zero means unlimited
		DepositLimit decimal.Decimal `json:"depositLimit"`
		BorrowLimit  decimal.Decimal `json:"borrowLimit"`

		// decimals accepted for amounts of this asset; nil means
		// DEFAULT_ASSET_PRECISION, zero means whole units
		Precision *int32 `json:"precision,omitempty"`

		CompoundingPeriod int64 `json:"compoundingPeriod"`

		InterestRateConfig `json:"interestRateConfig"`

		OperationalState BankOperationalState `json:"operationalState"`
	}
)

type BankOperationalState uint8

const (
	BankOperationalStateOperational BankOperationalState = iota
	BankOperationalStatePaused
	BankOperationalStateReduceOnly
)

func (bos BankOperationalState) String() string {
	switch bos {
	case BankOperationalStateOperational:
		return "Operational"
	case BankOperationalStatePaused:
		return "Paused"
	case BankOperationalStateReduceOnly:
		return "Reduce Only"
	default:
		return "Unknown"
	}
}

func (bc *BankConfig) Validate() error {
	if !bc.MaxLTV.IsPositive() || bc.MaxLTV.GreaterThanOrEqual(ONE) {
		return errors.Wrapf(ErrInvalidConfig, "max ltv %s must be in (0, 1)", bc.MaxLTV)
	}
	if bc.LiquidationThreshold.LessThan(bc.MaxLTV) || bc.LiquidationThreshold.GreaterThan(ONE) {
		return errors.Wrapf(ErrInvalidConfig, "liquidation threshold %s must be in [max ltv, 1]", bc.LiquidationThreshold)
	}
	if bc.DepositLimit.IsNegative() || bc.BorrowLimit.IsNegative() {
		return errors.Wrap(ErrInvalidConfig, "limits must not be negative")
	}
	if precision := bc.AssetPrecision(); precision < 0 || precision > SHARE_PRECISION {
		return errors.Wrapf(ErrInvalidConfig, "precision %d out of range", precision)
	}
	if bc.CompoundingPeriod <= 0 || bc.CompoundingPeriod > SECONDS_PER_YEAR {
		return errors.Wrapf(ErrInvalidConfig, "compounding period %d out of range", bc.CompoundingPeriod)
	}
	if bc.OperationalState > BankOperationalStateReduceOnly {
		return errors.Wrapf(ErrInvalidConfig, "operational state %d", bc.OperationalState)
	}
	return bc.InterestRateConfig.Validate()
}

// WithDefaults fills the fields a caller may leave unset.
func (bc BankConfig) WithDefaults() BankConfig {
	if bc.LiquidationThreshold.IsZero() {
		bc.LiquidationThreshold = bc.MaxLTV
	}
	if bc.Precision == nil {
		precision := DEFAULT_ASSET_PRECISION
		bc.Precision = &precision
	}
	if bc.CompoundingPeriod == 0 {
		bc.CompoundingPeriod = DEFAULT_COMPOUNDING_PERIOD
	}
	return bc
}

func (bc *BankConfig) AssetPrecision() int32 {
	if bc.Precision == nil {
		return DEFAULT_ASSET_PRECISION
	}
	return *bc.Precision
}

func (bc *BankConfig) IsDepositLimitActive() bool {
	return bc.DepositLimit.IsPositive()
}

func (bc *BankConfig) IsBorrowLimitActive() bool {
	return bc.BorrowLimit.IsPositive()
}

func (bc *BankConfig) GetAssetWeight(requirementType RequirementType) decimal.Decimal {
	switch requirementType {
	case Initial:
		return bc.MaxLTV
	case Maintenance:
		return bc.LiquidationThreshold
	case Equity:
		return ONE
	default:
		return decimal.Zero
	}
}

// NewBank returns a zeroed bank for asset. bankConfig is validated as given;
// callers apply WithDefaults first.
func NewBank(clk clock.Clock, asset string, bankConfig BankConfig) (*Bank, error) {
	if err := bankConfig.Validate(); err != nil {
		return nil, err
	}
	now := clk.Now().Unix()
	bank := &Bank{
		Id:                   utils.NamespacedUuid("bank", asset),
		Asset:                asset,
		AssetShareValue:      ONE,
		LiabilityShareValue:  ONE,
		TotalAssetShares:     decimal.Zero,
		TotalLiabilityShares: decimal.Zero,
		ReserveShares:        decimal.Zero,
		BankConfig:           bankConfig,
		CreatedAt:            now,
		LastUpdate:           now,
	}
	if err := bank.UpdateRates(); err != nil {
		return nil, err
	}
	return bank, nil
}

func (b *Bank) Clone() *Bank {
	c := *b
	return &c
}

func (b *Bank) GetAssetAmount(shares decimal.Decimal, rounding Rounding) decimal.Decimal {
	return Round(shares.Mul(b.AssetShareValue), SHARE_PRECISION, rounding)
}

func (b *Bank) GetLiabilityAmount(shares decimal.Decimal, rounding Rounding) decimal.Decimal {
	return Round(shares.Mul(b.LiabilityShareValue), SHARE_PRECISION, rounding)
}

func (b *Bank) GetAssetShares(amount decimal.Decimal, rounding Rounding) decimal.Decimal {
	return Quo(amount, b.AssetShareValue, SHARE_PRECISION, rounding)
}

func (b *Bank) GetLiabilityShares(amount decimal.Decimal, rounding Rounding) decimal.Decimal {
	return Quo(amount, b.LiabilityShareValue, SHARE_PRECISION, rounding)
}

func (b *Bank) GetTotalDeposits() decimal.Decimal {
	return b.GetAssetAmount(b.TotalAssetShares, RoundDown)
}

func (b *Bank) GetTotalBorrows() decimal.Decimal {
	return b.GetLiabilityAmount(b.TotalLiabilityShares, RoundUp)
}

func (b *Bank) GetReserves() decimal.Decimal {
	return b.GetAssetAmount(b.ReserveShares, RoundDown)
}

// AvailableLiquidity is total deposits minus total borrows, never negative.
func (b *Bank) AvailableLiquidity() decimal.Decimal {
	return decimal.Max(decimal.Zero, b.GetTotalDeposits().Sub(b.GetTotalBorrows()))
}

func (b *Bank) ComputeUtilizationRate() decimal.Decimal {
	deposits := b.GetTotalDeposits()
	if !deposits.IsPositive() {
		return decimal.Zero
	}
	return decimal.Min(ONE, Quo(b.GetTotalBorrows(), deposits, RATE_PRECISION, RoundDown))
}

// UpdateRates recomputes the annual rates from the current utilization.
func (b *Bank) UpdateRates() error {
	depositRate, borrowRate, err := b.InterestRateConfig.CalcInterestRate(b.ComputeUtilizationRate())
	if err != nil {
		return err
	}
	b.DepositRate = depositRate
	b.BorrowRate = borrowRate
	return nil
}

// Apy compounds the current rates over the compounding periods of a year.
func (b *Bank) Apy() (depositApy, borrowApy decimal.Decimal) {
	return AprToApy(b.DepositRate, b.CompoundingPeriod), AprToApy(b.BorrowRate, b.CompoundingPeriod)
}

func (b *Bank) ChangeAssetShares(shares decimal.Decimal, bypassDepositLimit bool) error {
	total := b.TotalAssetShares.Add(shares)
	if total.IsNegative() {
		return errors.Wrapf(ErrInsufficientBalance, "bank %s asset shares would be %s", b.Asset, total)
	}
	if shares.IsPositive() && b.IsDepositLimitActive() && !bypassDepositLimit {
		if b.GetAssetAmount(total, RoundDown).GreaterThan(b.DepositLimit) {
			return errors.Wrapf(ErrDepositLimitExceeded, "bank %s limit %s", b.Asset, b.DepositLimit)
		}
	}
	b.TotalAssetShares = total
	return nil
}

func (b *Bank) ChangeLiabilityShares(shares decimal.Decimal, bypassBorrowLimit bool) error {
	total := b.TotalLiabilityShares.Add(shares)
	if total.IsNegative() {
		return errors.Wrapf(ErrExceedsDebt, "bank %s liability shares would be %s", b.Asset, total)
	}
	if shares.IsPositive() && b.IsBorrowLimitActive() && !bypassBorrowLimit {
		if b.GetLiabilityAmount(total, RoundUp).GreaterThan(b.BorrowLimit) {
			return errors.Wrapf(ErrBorrowLimitExceeded, "bank %s limit %s", b.Asset, b.BorrowLimit)
		}
	}
	b.TotalLiabilityShares = total
	return nil
}

// CheckLiquidity fails when amount cannot be paid out of the pool.
func (b *Bank) CheckLiquidity(amount decimal.Decimal) error {
	available := b.AvailableLiquidity()
	if amount.GreaterThan(available) {
		return errors.Wrapf(ErrInsufficientLiquidity, "bank %s has %s available, need %s", b.Asset, available, amount)
	}
	return nil
}

// AssertOperationalMode rejects operations the bank's state does not allow.
// Risk-reducing operations (withdraw, repay) pass in reduce-only mode.
func (b *Bank) AssertOperationalMode(riskIncreasing bool) error {
	switch b.OperationalState {
	case BankOperationalStatePaused:
		return errors.Wrapf(ErrBankPaused, "bank %s", b.Asset)
	case BankOperationalStateReduceOnly:
		if riskIncreasing {
			return errors.Wrapf(ErrBankReduceOnly, "bank %s", b.Asset)
		}
	}
	return nil
}
