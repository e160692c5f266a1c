package core

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type Rounding uint8

const (
	RoundDown Rounding = iota
	RoundUp
)

func (r Rounding) String() string {
	switch r {
	case RoundDown:
		return "Down"
	case RoundUp:
		return "Up"
	default:
		return "Unknown"
	}
}

// Round rounds toward negative (RoundDown) or positive (RoundUp) infinity.
func Round(value decimal.Decimal, places int32, rounding Rounding) decimal.Decimal {
	if rounding == RoundUp {
		return value.RoundCeil(places)
	}
	return value.RoundFloor(places)
}

// Quo divides exactly and rounds the quotient in the given direction.
// divisor must be positive.
func Quo(dividend, divisor decimal.Decimal, places int32, rounding Rounding) decimal.Decimal {
	q, r := dividend.QuoRem(divisor, places)
	ulp := decimal.New(1, -places)
	switch {
	case rounding == RoundUp && r.IsPositive():
		q = q.Add(ulp)
	case rounding == RoundDown && r.IsNegative():
		q = q.Sub(ulp)
	}
	return q
}

// CompoundFactor returns (1 + rate)^periods using exponentiation by squaring,
// rounding every product at RATE_PRECISION in the given direction.
func CompoundFactor(rate decimal.Decimal, periods int64, rounding Rounding) decimal.Decimal {
	result := ONE
	base := ONE.Add(rate)
	for n := periods; n > 0; n >>= 1 {
		if n&1 == 1 {
			result = Round(result.Mul(base), RATE_PRECISION, rounding)
		}
		if n > 1 {
			base = Round(base.Mul(base), RATE_PRECISION, rounding)
		}
	}
	return result
}

// RatePerPeriod converts an annual rate into the rate of one compounding period.
func RatePerPeriod(apr decimal.Decimal, periodSeconds int64, rounding Rounding) decimal.Decimal {
	if apr.IsZero() || periodSeconds <= 0 {
		return decimal.Zero
	}
	return Quo(apr.Mul(decimal.NewFromInt(periodSeconds)), decimal.NewFromInt(SECONDS_PER_YEAR), RATE_PRECISION, rounding)
}

func CalcValue(amount decimal.Decimal, price decimal.Decimal, weight *decimal.Decimal) (decimal.Decimal, error) {
	if amount.IsZero() {
		return decimal.Zero, nil
	}
	if price.IsNegative() {
		return decimal.Zero, errors.New("price is negative")
	}

	weighted := amount
	if weight != nil {
		weighted = amount.Mul(*weight)
	}
	return weighted.Mul(price), nil
}

// AprToApy compounds an annual rate over the number of periods a year holds.
func AprToApy(apr decimal.Decimal, periodSeconds int64) decimal.Decimal {
	if periodSeconds <= 0 {
		return apr
	}
	periods := int64(SECONDS_PER_YEAR) / periodSeconds
	rate := RatePerPeriod(apr, periodSeconds, RoundDown)
	return CompoundFactor(rate, periods, RoundDown).Sub(ONE).Round(8)
}

// ValidateAmount rejects non-positive amounts and amounts finer than precision.
func ValidateAmount(amount decimal.Decimal, precision int32) error {
	if !amount.GreaterThan(ZERO_AMOUNT_THRESHOLD) {
		return errors.Wrapf(ErrInvalidAmount, "amount %s must be positive", amount)
	}
	if !amount.Equal(amount.Truncate(precision)) {
		return errors.Wrapf(ErrInvalidAmount, "amount %s exceeds %d decimals", amount, precision)
	}
	return nil
}
