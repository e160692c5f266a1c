package core

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrAlreadyExists          = errors.New("already exists")
	ErrNotFound               = errors.New("not found")
	ErrInvalidAmount          = errors.New("invalid amount")
	ErrInsufficientBalance    = errors.New("insufficient balance")
	ErrInsufficientLiquidity  = errors.New("insufficient liquidity")
	ErrInsufficientCollateral = errors.New("insufficient collateral")
	ErrExceedsDebt            = errors.New("repay amount exceeds outstanding debt")
	ErrPriceUnavailable       = errors.New("price unavailable")
	ErrCollateralCheckFailed  = errors.New("collateral check failed")

	ErrInvalidOwner          = errors.New("invalid owner")
	ErrInvalidConfig         = errors.New("invalid bank config")
	ErrBankPaused            = errors.New("bank paused")
	ErrBankReduceOnly        = errors.New("bank is reduce only")
	ErrDepositLimitExceeded  = errors.New("bank deposit capacity exceeded")
	ErrBorrowLimitExceeded   = errors.New("bank borrow capacity exceeded")
	ErrOptimalUr             = errors.New("optimal utilization rate must be in (0, 1)")
	ErrPlateauIr             = errors.New("plateau interest rate must be positive")
	ErrMaxIr                 = errors.New("max interest rate must be positive")
	ErrPlateauGreaterThanMax = errors.New("plateau interest rate must be below max interest rate")
	ErrNegativeInterestRate  = errors.New("negative interest rate")
)

// CollateralCheckError reports a valuation that could not complete. It matches
// both ErrCollateralCheckFailed and the underlying cause.
type CollateralCheckError struct {
	Asset string
	Err   error
}

func (e *CollateralCheckError) Error() string {
	return fmt.Sprintf("collateral check failed: %s: %v", e.Asset, e.Err)
}

func (e *CollateralCheckError) Unwrap() error {
	return e.Err
}

func (e *CollateralCheckError) Is(target error) bool {
	return target == ErrCollateralCheckFailed
}

var errorKinds = []struct {
	err  error
	kind string
}{
	{ErrCollateralCheckFailed, "CollateralCheckFailed"},
	{ErrPriceUnavailable, "PriceUnavailable"},
	{ErrAlreadyExists, "AlreadyExists"},
	{ErrNotFound, "NotFound"},
	{ErrInvalidAmount, "InvalidAmount"},
	{ErrInsufficientBalance, "InsufficientBalance"},
	{ErrInsufficientLiquidity, "InsufficientLiquidity"},
	{ErrInsufficientCollateral, "InsufficientCollateral"},
	{ErrExceedsDebt, "ExceedsDebt"},
	{ErrInvalidOwner, "InvalidOwner"},
	{ErrBankPaused, "BankPaused"},
	{ErrBankReduceOnly, "BankReduceOnly"},
	{ErrDepositLimitExceeded, "DepositLimitExceeded"},
	{ErrBorrowLimitExceeded, "BorrowLimitExceeded"},
	{ErrInvalidConfig, "InvalidConfig"},
	{ErrOptimalUr, "InvalidConfig"},
	{ErrPlateauIr, "InvalidConfig"},
	{ErrMaxIr, "InvalidConfig"},
	{ErrPlateauGreaterThanMax, "InvalidConfig"},
	{ErrNegativeInterestRate, "InvalidConfig"},
}

// ErrorKind names the kind of a lending error, "Internal" for anything else.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "Internal"
}
