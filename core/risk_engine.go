package core

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// BankAccountWithPrice is one asset of a position valued at an oracle price.
type BankAccountWithPrice struct {
	Bank  *Bank
	Price decimal.Decimal

	DepositAmount decimal.Decimal
	DebtAmount    decimal.Decimal
}

func (b *BankAccountWithPrice) CalcWeightedAssetsAndLiabsValues(requirementType RequirementType) (decimal.Decimal, decimal.Decimal, error) {
	weight := b.Bank.GetAssetWeight(requirementType)
	assets, err := CalcValue(b.DepositAmount, b.Price, &weight)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	liabilities, err := CalcValue(b.DebtAmount, b.Price, nil)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return assets, liabilities, nil
}

type RiskEngine struct {
	Position              *Position
	BankAccountsWithPrice []*BankAccountWithPrice
}

// NewRiskEngine prices every non-empty asset of the position. banks must hold
// an up to date bank for each of those assets. A price failure is reported as
// a CollateralCheckError.
func NewRiskEngine(ctx context.Context, position *Position, banks map[string]*Bank, oracle PriceOracle) (*RiskEngine, error) {
	accounts := make([]*BankAccountWithPrice, 0, len(banks))
	for _, asset := range position.Assets() {
		depositShares := position.DepositShares(asset)
		borrowShares := position.BorrowShares(asset)
		if !depositShares.IsPositive() && !borrowShares.IsPositive() {
			continue
		}

		bank, ok := banks[asset]
		if !ok {
			return nil, errors.Wrapf(ErrNotFound, "bank %s", asset)
		}

		price, err := oracle.GetPrice(ctx, asset)
		if err == nil && !price.IsPositive() {
			err = errors.Wrapf(ErrPriceUnavailable, "price %s", price)
		}
		if err != nil {
			return nil, &CollateralCheckError{Asset: asset, Err: err}
		}

		accounts = append(accounts, &BankAccountWithPrice{
			Bank:          bank,
			Price:         price,
			DepositAmount: bank.GetAssetAmount(depositShares, RoundDown),
			DebtAmount:    bank.GetLiabilityAmount(borrowShares, RoundUp),
		})
	}

	return &RiskEngine{
		Position:              position,
		BankAccountsWithPrice: accounts,
	}, nil
}

// GetAccountHealthComponents returns the weighted collateral value and the
// borrowed value.
func (r *RiskEngine) GetAccountHealthComponents(requirementType RequirementType) (decimal.Decimal, decimal.Decimal, error) {
	totalAssets := decimal.Zero
	totalLiabilities := decimal.Zero
	for _, a := range r.BankAccountsWithPrice {
		assets, liabilities, err := a.CalcWeightedAssetsAndLiabsValues(requirementType)
		if err != nil {
			return decimal.Zero, decimal.Zero, err
		}
		totalAssets = totalAssets.Add(assets)
		totalLiabilities = totalLiabilities.Add(liabilities)
	}
	return totalAssets, totalLiabilities, nil
}

func (r *RiskEngine) GetAccountHealth(requirementType RequirementType) (decimal.Decimal, error) {
	totalAssets, totalLiabilities, err := r.GetAccountHealthComponents(requirementType)
	if err != nil {
		return decimal.Zero, err
	}
	return totalAssets.Sub(totalLiabilities), nil
}

// CheckAccountHealth requires the borrowed value to stay strictly below the
// weighted collateral value whenever the position holds debt.
func (r *RiskEngine) CheckAccountHealth(requirementType RequirementType) error {
	totalAssets, totalLiabilities, err := r.GetAccountHealthComponents(requirementType)
	if err != nil {
		return err
	}
	if !totalLiabilities.IsPositive() {
		return nil
	}
	if !totalLiabilities.LessThan(totalAssets) {
		return errors.Wrapf(ErrInsufficientCollateral, "borrowed %s, allowed below %s", totalLiabilities, totalAssets)
	}
	return nil
}

// IsLiquidatable reports whether debt has reached the liquidation value.
func (r *RiskEngine) IsLiquidatable() (bool, error) {
	totalAssets, totalLiabilities, err := r.GetAccountHealthComponents(Maintenance)
	if err != nil {
		return false, err
	}
	return totalLiabilities.IsPositive() && totalLiabilities.GreaterThanOrEqual(totalAssets), nil
}

// HealthFactor is the liquidation value divided by the borrowed value, zero
// when nothing is borrowed.
func (r *RiskEngine) HealthFactor() (decimal.Decimal, error) {
	totalAssets, totalLiabilities, err := r.GetAccountHealthComponents(Maintenance)
	if err != nil {
		return decimal.Zero, err
	}
	if !totalLiabilities.IsPositive() {
		return decimal.Zero, nil
	}
	return Quo(totalAssets, totalLiabilities, 8, RoundDown), nil
}
