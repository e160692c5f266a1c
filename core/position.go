package core

import (
	"context"
	"sort"

	"github.com/DomeLiquid/lending/utils"
	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type (
	PositionStore interface {
		// CreatePosition fails with ErrAlreadyExists when the owner has one.
		CreatePosition(ctx context.Context, position *Position) error
		// GetPosition returns a detached copy or ErrNotFound.
		GetPosition(ctx context.Context, owner string) (*Position, error)
	}

	// Position holds one owner's deposit and borrow shares, keyed by asset.
	Position struct {
		Id    uuid.UUID `json:"id"`
		Owner string    `json:"owner"`

		Active   bool                       `json:"active"`
		Deposits map[string]decimal.Decimal `json:"deposits"`
		Borrows  map[string]decimal.Decimal `json:"borrows"`

		LastAccrual int64 `json:"lastAccrual"`
		CreatedAt   int64 `json:"createdAt"`
		UpdatedAt   int64 `json:"updatedAt"`
	}
)

type PositionState uint8

const (
	PositionStateNone PositionState = iota
	PositionStateDeposited
	PositionStateBorrowed
	PositionStateClosed
)

func (ps PositionState) String() string {
	switch ps {
	case PositionStateNone:
		return "No Position"
	case PositionStateDeposited:
		return "Deposited"
	case PositionStateBorrowed:
		return "Borrowed"
	case PositionStateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

func NewPosition(clk clock.Clock, owner string) (*Position, error) {
	if owner == "" {
		return nil, errors.Wrap(ErrInvalidOwner, "owner is empty")
	}
	now := clk.Now().Unix()
	return &Position{
		Id:          utils.NamespacedUuid("position", owner),
		Owner:       owner,
		Active:      true,
		Deposits:    map[string]decimal.Decimal{},
		Borrows:     map[string]decimal.Decimal{},
		LastAccrual: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (p *Position) Clone() *Position {
	c := *p
	c.Deposits = make(map[string]decimal.Decimal, len(p.Deposits))
	for asset, shares := range p.Deposits {
		c.Deposits[asset] = shares
	}
	c.Borrows = make(map[string]decimal.Decimal, len(p.Borrows))
	for asset, shares := range p.Borrows {
		c.Borrows[asset] = shares
	}
	return &c
}

func (p *Position) DepositShares(asset string) decimal.Decimal {
	return p.Deposits[asset]
}

func (p *Position) BorrowShares(asset string) decimal.Decimal {
	return p.Borrows[asset]
}

func (p *Position) ChangeDepositShares(asset string, delta decimal.Decimal) error {
	shares := p.DepositShares(asset).Add(delta)
	if shares.IsNegative() {
		return errors.Wrapf(ErrInsufficientBalance, "%s deposit shares would be %s", asset, shares)
	}
	if p.Deposits == nil {
		p.Deposits = map[string]decimal.Decimal{}
	}
	p.Deposits[asset] = shares
	p.touch(asset)
	return nil
}

func (p *Position) ChangeBorrowShares(asset string, delta decimal.Decimal) error {
	shares := p.BorrowShares(asset).Add(delta)
	if shares.IsNegative() {
		return errors.Wrapf(ErrExceedsDebt, "%s borrow shares would be %s", asset, shares)
	}
	if p.Borrows == nil {
		p.Borrows = map[string]decimal.Decimal{}
	}
	p.Borrows[asset] = shares
	p.touch(asset)
	return nil
}

// touch keeps both maps keyed for every asset the position has used, so a
// fully repaid asset reads as closed instead of untouched.
func (p *Position) touch(asset string) {
	if p.Deposits == nil {
		p.Deposits = map[string]decimal.Decimal{}
	}
	if _, ok := p.Deposits[asset]; !ok {
		p.Deposits[asset] = decimal.Zero
	}
	if p.Borrows == nil {
		p.Borrows = map[string]decimal.Decimal{}
	}
	if _, ok := p.Borrows[asset]; !ok {
		p.Borrows[asset] = decimal.Zero
	}
	p.Active = !p.IsEmpty()
}

func (p *Position) State(asset string) PositionState {
	deposit, seenDeposit := p.Deposits[asset]
	borrow, seenBorrow := p.Borrows[asset]
	switch {
	case !seenDeposit && !seenBorrow:
		return PositionStateNone
	case borrow.IsPositive():
		return PositionStateBorrowed
	case deposit.IsPositive():
		return PositionStateDeposited
	default:
		return PositionStateClosed
	}
}

// Assets lists every asset the position has touched, sorted.
func (p *Position) Assets() []string {
	seen := make(map[string]struct{}, len(p.Deposits)+len(p.Borrows))
	for asset := range p.Deposits {
		seen[asset] = struct{}{}
	}
	for asset := range p.Borrows {
		seen[asset] = struct{}{}
	}
	assets := make([]string, 0, len(seen))
	for asset := range seen {
		assets = append(assets, asset)
	}
	sort.Strings(assets)
	return assets
}

func (p *Position) HasBorrows() bool {
	for _, shares := range p.Borrows {
		if shares.IsPositive() {
			return true
		}
	}
	return false
}

func (p *Position) IsEmpty() bool {
	for _, shares := range p.Deposits {
		if shares.IsPositive() {
			return false
		}
	}
	return !p.HasBorrows()
}

// Accrue stamps the position as current at the given time. Balances are held
// in shares, so the bank's share values carry the interest.
func (p *Position) Accrue(currentTimestamp int64) {
	if currentTimestamp > p.LastAccrual {
		p.LastAccrual = currentTimestamp
	}
}
