package core

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// InterestRateConfig describes a kinked borrow curve. Rates are annual.
type InterestRateConfig struct {
	BaseInterestRate       decimal.Decimal `json:"baseInterestRate"`
	OptimalUtilizationRate decimal.Decimal `json:"optimalUtilizationRate"`
	PlateauInterestRate    decimal.Decimal `json:"plateauInterestRate"`
	MaxInterestRate        decimal.Decimal `json:"maxInterestRate"`

	// share of borrow interest kept by the protocol
	ReserveFactor decimal.Decimal `json:"reserveFactor"`
}

// CalcInterestRate returns the deposit and borrow rates at a utilization ratio.
func (i *InterestRateConfig) CalcInterestRate(utilizationRatio decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	borrowingRate := i.BaseInterestRate.Add(i.InterestRateCurve(utilizationRatio))
	lendingRate := Round(borrowingRate.Mul(utilizationRatio).Mul(ONE.Sub(i.ReserveFactor)), RATE_PRECISION, RoundDown)

	if lendingRate.IsNegative() || borrowingRate.IsNegative() {
		return decimal.Zero, decimal.Zero, ErrNegativeInterestRate
	}
	return lendingRate, borrowingRate, nil
}

func (i *InterestRateConfig) InterestRateCurve(utilizationRatio decimal.Decimal) decimal.Decimal {
	optimalUr := i.OptimalUtilizationRate
	plateauIr := i.PlateauInterestRate
	maxIr := i.MaxInterestRate

	if !optimalUr.IsPositive() || optimalUr.GreaterThanOrEqual(ONE) {
		return decimal.Zero
	}

	if utilizationRatio.LessThanOrEqual(optimalUr) {
		// ur / optimal_ur * plateau_ir
		return Quo(utilizationRatio.Mul(plateauIr), optimalUr, RATE_PRECISION, RoundUp)
	}
	// (ur - optimal_ur) / (1 - optimal_ur) * (max_ir - plateau_ir) + plateau_ir
	excess := utilizationRatio.Sub(optimalUr).Mul(maxIr.Sub(plateauIr))
	return Quo(excess, ONE.Sub(optimalUr), RATE_PRECISION, RoundUp).Add(plateauIr)
}

func (i *InterestRateConfig) Validate() error {
	if i.BaseInterestRate.IsNegative() {
		return ErrNegativeInterestRate
	}
	if !i.OptimalUtilizationRate.IsPositive() || i.OptimalUtilizationRate.GreaterThanOrEqual(ONE) {
		return ErrOptimalUr
	}
	if !i.PlateauInterestRate.IsPositive() {
		return ErrPlateauIr
	}
	if !i.MaxInterestRate.IsPositive() {
		return ErrMaxIr
	}
	if i.PlateauInterestRate.GreaterThanOrEqual(i.MaxInterestRate) {
		return ErrPlateauGreaterThanMax
	}
	if i.ReserveFactor.IsNegative() || i.ReserveFactor.GreaterThanOrEqual(ONE) {
		return errors.Wrapf(ErrInvalidConfig, "reserve factor %s must be in [0, 1)", i.ReserveFactor)
	}
	return nil
}

// AccrueInterest compounds both share values over the whole compounding
// periods elapsed since LastUpdate. Deposit growth rounds down and borrow
// growth rounds up; interest not passed to lenders is minted as reserve
// shares. A partial period stays pending until it completes.
func (b *Bank) AccrueInterest(log Log, currentTimestamp int64) error {
	period := b.CompoundingPeriod
	if period <= 0 {
		period = DEFAULT_COMPOUNDING_PERIOD
	}

	elapsed := currentTimestamp - b.LastUpdate
	if elapsed < period {
		return nil
	}
	periods := elapsed / period
	b.LastUpdate += periods * period

	if b.TotalLiabilityShares.IsZero() {
		return b.UpdateRates()
	}

	borrowFactor := CompoundFactor(RatePerPeriod(b.BorrowRate, period, RoundUp), periods, RoundUp)
	depositFactor := CompoundFactor(RatePerPeriod(b.DepositRate, period, RoundDown), periods, RoundDown)

	oldLiabilityShareValue := b.LiabilityShareValue
	oldAssetShareValue := b.AssetShareValue
	oldBorrows := b.GetTotalBorrows()
	oldDeposits := b.GetTotalDeposits()

	b.LiabilityShareValue = Round(oldLiabilityShareValue.Mul(borrowFactor), RATE_PRECISION, RoundUp)
	b.AssetShareValue = Round(oldAssetShareValue.Mul(depositFactor), RATE_PRECISION, RoundDown)

	borrowInterest := b.GetTotalBorrows().Sub(oldBorrows)
	lenderInterest := b.GetTotalDeposits().Sub(oldDeposits)

	reserveInterest := borrowInterest.Sub(lenderInterest)
	if reserveInterest.IsPositive() {
		minted := b.GetAssetShares(reserveInterest, RoundDown)
		b.TotalAssetShares = b.TotalAssetShares.Add(minted)
		b.ReserveShares = b.ReserveShares.Add(minted)
	}

	log.Debug().
		Str("asset", b.Asset).
		Int64("periods", periods).
		Str("assetShareValue", b.AssetShareValue.String()).
		Str("liabilityShareValue", b.LiabilityShareValue.String()).
		Str("borrowInterest", borrowInterest.String()).
		Str("reserveInterest", reserveInterest.String()).
		Msg("accrued interest")

	return b.UpdateRates()
}

// ProjectedTo returns a copy of the bank accrued up to currentTimestamp.
func (b *Bank) ProjectedTo(currentTimestamp int64) (*Bank, error) {
	c := b.Clone()
	if err := c.AccrueInterest(NopLog(), currentTimestamp); err != nil {
		return nil, err
	}
	return c, nil
}
