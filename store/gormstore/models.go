package gormstore

import (
	"github.com/DomeLiquid/lending/core"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type bankModel struct {
	Asset string `gorm:"primaryKey;size:128"`
	Id    string `gorm:"size:36;uniqueIndex"`

	AssetShareValue      decimal.Decimal `gorm:"type:text"`
	LiabilityShareValue  decimal.Decimal `gorm:"type:text"`
	TotalAssetShares     decimal.Decimal `gorm:"type:text"`
	TotalLiabilityShares decimal.Decimal `gorm:"type:text"`
	ReserveShares        decimal.Decimal `gorm:"type:text"`
	DepositRate          decimal.Decimal `gorm:"type:text"`
	BorrowRate           decimal.Decimal `gorm:"type:text"`

	Config core.BankConfig `gorm:"type:text;serializer:json"`

	CreatedAt  int64 `gorm:"autoCreateTime:false"`
	LastUpdate int64
}

func (bankModel) TableName() string { return "banks" }

func newBankModel(b *core.Bank) *bankModel {
	return &bankModel{
		Asset:                b.Asset,
		Id:                   b.Id.String(),
		AssetShareValue:      b.AssetShareValue,
		LiabilityShareValue:  b.LiabilityShareValue,
		TotalAssetShares:     b.TotalAssetShares,
		TotalLiabilityShares: b.TotalLiabilityShares,
		ReserveShares:        b.ReserveShares,
		DepositRate:          b.DepositRate,
		BorrowRate:           b.BorrowRate,
		Config:               b.BankConfig,
		CreatedAt:            b.CreatedAt,
		LastUpdate:           b.LastUpdate,
	}
}

func (m *bankModel) toBank() *core.Bank {
	return &core.Bank{
		Id:                   uuid.FromStringOrNil(m.Id),
		Asset:                m.Asset,
		AssetShareValue:      m.AssetShareValue,
		LiabilityShareValue:  m.LiabilityShareValue,
		TotalAssetShares:     m.TotalAssetShares,
		TotalLiabilityShares: m.TotalLiabilityShares,
		ReserveShares:        m.ReserveShares,
		DepositRate:          m.DepositRate,
		BorrowRate:           m.BorrowRate,
		BankConfig:           m.Config,
		CreatedAt:            m.CreatedAt,
		LastUpdate:           m.LastUpdate,
	}
}

type positionModel struct {
	Owner string `gorm:"primaryKey;size:255"`
	Id    string `gorm:"size:36;uniqueIndex"`

	Active      bool
	LastAccrual int64
	CreatedAt   int64 `gorm:"autoCreateTime:false"`
	UpdatedAt   int64 `gorm:"autoUpdateTime:false"`
}

func (positionModel) TableName() string { return "positions" }

// balanceModel is one asset row of a position.
type balanceModel struct {
	Owner string `gorm:"primaryKey;size:255"`
	Asset string `gorm:"primaryKey;size:128"`

	DepositShares decimal.Decimal `gorm:"type:text"`
	BorrowShares  decimal.Decimal `gorm:"type:text"`
}

func (balanceModel) TableName() string { return "position_balances" }

func newPositionModels(p *core.Position) (*positionModel, []*balanceModel) {
	balances := make([]*balanceModel, 0, len(p.Deposits))
	for _, asset := range p.Assets() {
		balances = append(balances, &balanceModel{
			Owner:         p.Owner,
			Asset:         asset,
			DepositShares: p.DepositShares(asset),
			BorrowShares:  p.BorrowShares(asset),
		})
	}
	return &positionModel{
		Owner:       p.Owner,
		Id:          p.Id.String(),
		Active:      p.Active,
		LastAccrual: p.LastAccrual,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, balances
}

func (m *positionModel) toPosition(balances []*balanceModel) *core.Position {
	p := &core.Position{
		Id:          uuid.FromStringOrNil(m.Id),
		Owner:       m.Owner,
		Active:      m.Active,
		Deposits:    make(map[string]decimal.Decimal, len(balances)),
		Borrows:     make(map[string]decimal.Decimal, len(balances)),
		LastAccrual: m.LastAccrual,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
	for _, b := range balances {
		p.Deposits[b.Asset] = b.DepositShares
		p.Borrows[b.Asset] = b.BorrowShares
	}
	return p
}

type operateModel struct {
	Seq uint64 `gorm:"primaryKey;autoIncrement"`
	Id  string `gorm:"size:36;uniqueIndex"`

	Owner  string `gorm:"size:255;index"`
	Asset  string `gorm:"size:128"`
	Action core.ActionType
	Amount decimal.Decimal    `gorm:"type:text"`
	Shares decimal.Decimal    `gorm:"type:text"`
	Extra  core.OperateDetail `gorm:"type:text"`

	CreatedAt int64 `gorm:"autoCreateTime:false"`
}

func (operateModel) TableName() string { return "operates" }

func newOperateModel(op *core.Operate) *operateModel {
	return &operateModel{
		Id:        op.Id.String(),
		Owner:     op.Owner,
		Asset:     op.Asset,
		Action:    op.Action,
		Amount:    op.Amount,
		Shares:    op.Shares,
		Extra:     op.Extra,
		CreatedAt: op.CreatedAt,
	}
}

func (m *operateModel) toOperate() *core.Operate {
	return &core.Operate{
		Id:        uuid.FromStringOrNil(m.Id),
		Owner:     m.Owner,
		Asset:     m.Asset,
		Action:    m.Action,
		Amount:    m.Amount,
		Shares:    m.Shares,
		Extra:     m.Extra,
		CreatedAt: m.CreatedAt,
	}
}
