package core

import (
	"context"
	"database/sql/driver"
	"encoding/json"

	"github.com/facebookgo/clock"
	"github.com/gofrs/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

type (
	OperateStore interface {
		// ListOperates returns the owner's operations, newest first.
		ListOperates(ctx context.Context, owner string, limit int) ([]*Operate, error)
	}

	// LedgerStore persists banks, positions and the operation journal.
	LedgerStore interface {
		BankStore
		PositionStore
		OperateStore

		// Commit stores bank, position and op in one transaction.
		Commit(ctx context.Context, bank *Bank, position *Position, op *Operate) error
	}

	Operate struct {
		Id     uuid.UUID       `json:"id"`
		Owner  string          `json:"owner"`
		Asset  string          `json:"asset"`
		Action ActionType      `json:"action"`
		Amount decimal.Decimal `json:"amount"`
		Shares decimal.Decimal `json:"shares"`
		Extra  OperateDetail   `json:"extra"`

		CreatedAt int64 `json:"createdAt"`
	}

	// OperateDetail snapshots the balances an operation left behind.
	OperateDetail struct {
		DepositBalance      decimal.Decimal `json:"depositBalance"`
		DebtBalance         decimal.Decimal `json:"debtBalance"`
		AssetShareValue     decimal.Decimal `json:"assetShareValue"`
		LiabilityShareValue decimal.Decimal `json:"liabilityShareValue"`
	}
)

type ActionType uint8

const (
	ActionDeposit ActionType = iota + 1
	ActionWithdraw
	ActionBorrow
	ActionRepay
	ActionWithdrawAll
	ActionRepayAll
)

func (a ActionType) String() string {
	switch a {
	case ActionDeposit:
		return "deposit"
	case ActionWithdraw:
		return "withdraw"
	case ActionBorrow:
		return "borrow"
	case ActionRepay:
		return "repay"
	case ActionWithdrawAll:
		return "withdraw_all"
	case ActionRepayAll:
		return "repay_all"
	default:
		return "unknown"
	}
}

func ParseActionType(s string) (ActionType, bool) {
	for a := ActionDeposit; a <= ActionRepayAll; a++ {
		if a.String() == s {
			return a, true
		}
	}
	return 0, false
}

func (a ActionType) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *ActionType) UnmarshalText(text []byte) error {
	parsed, ok := ParseActionType(string(text))
	if !ok {
		return errors.Errorf("unknown action %q", text)
	}
	*a = parsed
	return nil
}

func NewOperate(clk clock.Clock, ba *BankAccountWrapper, action ActionType, amount, shares decimal.Decimal) *Operate {
	return &Operate{
		Id:     uuid.Must(uuid.NewV4()),
		Owner:  ba.Position.Owner,
		Asset:  ba.Bank.Asset,
		Action: action,
		Amount: amount,
		Shares: shares,
		Extra: OperateDetail{
			DepositBalance:      ba.DepositBalance(),
			DebtBalance:         ba.DebtBalance(),
			AssetShareValue:     ba.Bank.AssetShareValue,
			LiabilityShareValue: ba.Bank.LiabilityShareValue,
		},
		CreatedAt: clk.Now().Unix(),
	}
}

func (j OperateDetail) Value() (driver.Value, error) {
	valueString, err := json.Marshal(j)
	return string(valueString), err
}

func (j *OperateDetail) Scan(value any) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return errors.Errorf("cannot scan %T into OperateDetail", value)
	}
}
