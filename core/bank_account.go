package core

import (
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BankAccountWrapper applies one position's operations against one bank.
// Both records are mutated in place; callers hand it clones and persist them
// only when the whole operation succeeds.
type BankAccountWrapper struct {
	clk clock.Clock

	Position *Position `json:"position"`
	Bank     *Bank     `json:"bank"`
}

type OptionFunc func(ba *BankAccountWrapper)

func WithClock(clk clock.Clock) OptionFunc {
	return func(ba *BankAccountWrapper) {
		ba.clk = clk
	}
}

func NewBankAccountWrapper(position *Position, bank *Bank, opts ...OptionFunc) *BankAccountWrapper {
	ba := &BankAccountWrapper{
		Position: position,
		Bank:     bank,
		clk:      clock.New(),
	}
	for _, opt := range opts {
		opt(ba)
	}
	return ba
}

func (ba *BankAccountWrapper) asset() string {
	return ba.Bank.Asset
}

// Accrue brings the bank and the position up to the current time.
func (ba *BankAccountWrapper) Accrue(log Log) error {
	now := ba.clk.Now().Unix()
	if err := ba.Bank.AccrueInterest(log, now); err != nil {
		return err
	}
	ba.Position.Accrue(now)
	return nil
}

func (ba *BankAccountWrapper) DepositBalance() decimal.Decimal {
	return ba.Bank.GetAssetAmount(ba.Position.DepositShares(ba.asset()), RoundDown)
}

func (ba *BankAccountWrapper) DebtBalance() decimal.Decimal {
	return ba.Bank.GetLiabilityAmount(ba.Position.BorrowShares(ba.asset()), RoundUp)
}

// Deposit returns the deposit shares minted for amount.
func (ba *BankAccountWrapper) Deposit(log Log, amount decimal.Decimal) (decimal.Decimal, error) {
	bank := ba.Bank
	if err := ValidateAmount(amount, bank.AssetPrecision()); err != nil {
		return decimal.Zero, err
	}
	if err := bank.AssertOperationalMode(true); err != nil {
		return decimal.Zero, err
	}

	shares := bank.GetAssetShares(amount, RoundDown)
	if !shares.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrInvalidAmount, "amount %s mints no shares", amount)
	}
	if err := bank.ChangeAssetShares(shares, false); err != nil {
		return decimal.Zero, err
	}
	if err := ba.Position.ChangeDepositShares(ba.asset(), shares); err != nil {
		return decimal.Zero, err
	}

	log.Debug().Str("asset", ba.asset()).Str("amount", amount.String()).Str("shares", shares.String()).Msg("deposit")
	return shares, ba.finish()
}

// Withdraw returns the deposit shares burned for amount.
func (ba *BankAccountWrapper) Withdraw(log Log, amount decimal.Decimal) (decimal.Decimal, error) {
	bank := ba.Bank
	if err := ValidateAmount(amount, bank.AssetPrecision()); err != nil {
		return decimal.Zero, err
	}
	if err := bank.AssertOperationalMode(false); err != nil {
		return decimal.Zero, err
	}

	held := ba.Position.DepositShares(ba.asset())
	balance := bank.GetAssetAmount(held, RoundDown)
	if amount.GreaterThan(balance) {
		return decimal.Zero, errors.Wrapf(ErrInsufficientBalance, "withdraw %s, deposited %s", amount, balance)
	}
	if err := bank.CheckLiquidity(amount); err != nil {
		return decimal.Zero, err
	}

	shares := decimal.Min(held, bank.GetAssetShares(amount, RoundUp))
	// a remainder too small to withdraw at the asset precision closes with it
	rest := bank.GetAssetAmount(held.Sub(shares), RoundDown).Truncate(bank.AssetPrecision())
	if rest.LessThan(EMPTY_BALANCE_THRESHOLD) {
		shares = held
	}
	if err := ba.burnDeposit(shares); err != nil {
		return decimal.Zero, err
	}

	log.Debug().Str("asset", ba.asset()).Str("amount", amount.String()).Str("shares", shares.String()).Msg("withdraw")
	return shares, ba.finish()
}

// WithdrawAll burns every deposit share and returns the amount paid out.
func (ba *BankAccountWrapper) WithdrawAll(log Log) (decimal.Decimal, decimal.Decimal, error) {
	bank := ba.Bank
	if err := bank.AssertOperationalMode(false); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	held := ba.Position.DepositShares(ba.asset())
	amount := bank.GetAssetAmount(held, RoundDown).Truncate(bank.AssetPrecision())
	if !amount.GreaterThan(ZERO_AMOUNT_THRESHOLD) {
		return decimal.Zero, decimal.Zero, errors.Wrapf(ErrInsufficientBalance, "no %s deposit", ba.asset())
	}
	if err := bank.CheckLiquidity(amount); err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	if err := ba.burnDeposit(held); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	log.Debug().Str("asset", ba.asset()).Str("amount", amount.String()).Msg("withdraw all")
	return amount, held, ba.finish()
}

func (ba *BankAccountWrapper) burnDeposit(shares decimal.Decimal) error {
	if err := ba.Position.ChangeDepositShares(ba.asset(), shares.Neg()); err != nil {
		return err
	}
	return ba.Bank.ChangeAssetShares(shares.Neg(), false)
}

// Borrow returns the borrow shares minted for amount. Collateral is checked
// by the caller through the RiskEngine once the wrapper has been applied.
func (ba *BankAccountWrapper) Borrow(log Log, amount decimal.Decimal) (decimal.Decimal, error) {
	bank := ba.Bank
	if err := ValidateAmount(amount, bank.AssetPrecision()); err != nil {
		return decimal.Zero, err
	}
	if err := bank.AssertOperationalMode(true); err != nil {
		return decimal.Zero, err
	}
	if err := bank.CheckLiquidity(amount); err != nil {
		return decimal.Zero, err
	}

	shares := bank.GetLiabilityShares(amount, RoundUp)
	if err := bank.ChangeLiabilityShares(shares, false); err != nil {
		return decimal.Zero, err
	}
	if err := ba.Position.ChangeBorrowShares(ba.asset(), shares); err != nil {
		return decimal.Zero, err
	}

	log.Debug().Str("asset", ba.asset()).Str("amount", amount.String()).Str("shares", shares.String()).Msg("borrow")
	return shares, ba.finish()
}

// Repay returns the borrow shares burned for amount. Amounts above the
// outstanding debt are rejected rather than capped.
func (ba *BankAccountWrapper) Repay(log Log, amount decimal.Decimal) (decimal.Decimal, error) {
	bank := ba.Bank
	if err := ValidateAmount(amount, bank.AssetPrecision()); err != nil {
		return decimal.Zero, err
	}
	if err := bank.AssertOperationalMode(false); err != nil {
		return decimal.Zero, err
	}

	held := ba.Position.BorrowShares(ba.asset())
	// debt as the owner can pay it, in the asset's own precision
	debt := bank.GetLiabilityAmount(held, RoundUp).RoundCeil(bank.AssetPrecision())
	if !held.IsPositive() {
		return decimal.Zero, errors.Wrapf(ErrExceedsDebt, "no %s debt", ba.asset())
	}
	if amount.GreaterThan(debt) {
		return decimal.Zero, errors.Wrapf(ErrExceedsDebt, "repay %s, owed %s", amount, debt)
	}

	shares := held
	if amount.LessThan(debt) {
		shares = decimal.Min(held, bank.GetLiabilityShares(amount, RoundDown))
	}
	if err := ba.burnDebt(shares); err != nil {
		return decimal.Zero, err
	}

	log.Debug().Str("asset", ba.asset()).Str("amount", amount.String()).Str("shares", shares.String()).Msg("repay")
	return shares, ba.finish()
}

// RepayAll burns every borrow share and returns the amount owed, rounded up
// to the asset precision.
func (ba *BankAccountWrapper) RepayAll(log Log) (decimal.Decimal, decimal.Decimal, error) {
	bank := ba.Bank
	if err := bank.AssertOperationalMode(false); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	held := ba.Position.BorrowShares(ba.asset())
	if !held.IsPositive() {
		return decimal.Zero, decimal.Zero, errors.Wrapf(ErrExceedsDebt, "no %s debt", ba.asset())
	}
	amount := bank.GetLiabilityAmount(held, RoundUp).RoundCeil(bank.AssetPrecision())
	if err := ba.burnDebt(held); err != nil {
		return decimal.Zero, decimal.Zero, err
	}

	log.Debug().Str("asset", ba.asset()).Str("amount", amount.String()).Msg("repay all")
	return amount, held, ba.finish()
}

func (ba *BankAccountWrapper) burnDebt(shares decimal.Decimal) error {
	if err := ba.Position.ChangeBorrowShares(ba.asset(), shares.Neg()); err != nil {
		return err
	}
	return ba.Bank.ChangeLiabilityShares(shares.Neg(), true)
}

func (ba *BankAccountWrapper) finish() error {
	ba.Position.UpdatedAt = ba.clk.Now().Unix()
	return ba.Bank.UpdateRates()
}
