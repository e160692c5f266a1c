package core

import "github.com/shopspring/decimal"

const (
	SECONDS_PER_YEAR = 31_536_000

	DEFAULT_COMPOUNDING_PERIOD = 3_600

	// shares and underlying amounts
	SHARE_PRECISION int32 = 18
	// share values and per-period rates
	RATE_PRECISION int32 = 27

	DEFAULT_ASSET_PRECISION int32 = 8
)

var (
	ONE = decimal.NewFromInt(1)

	ZERO_AMOUNT_THRESHOLD   = decimal.Zero
	EMPTY_BALANCE_THRESHOLD = decimal.New(1, -SHARE_PRECISION)
)
