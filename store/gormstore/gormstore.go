// Package gormstore persists lending state through gorm. Open uses the
// pure-go sqlite driver; NewWithDB accepts any gorm dialect.
package gormstore

import (
	"context"

	"github.com/DomeLiquid/lending/core"
	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ core.LedgerStore = (*Store)(nil)

// Open opens a sqlite database at dsn and migrates it.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// sqlite allows a single writer
	sqlDB.SetMaxOpenConns(1)
	return NewWithDB(db)
}

func NewWithDB(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&bankModel{}, &positionModel{}, &balanceModel{}, &operateModel{}); err != nil {
		return nil, errors.Wrap(err, "migrate")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateBank(ctx context.Context, bank *core.Bank) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := bankExists(tx, bank.Asset)
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrapf(core.ErrAlreadyExists, "bank %s", bank.Asset)
		}
		return tx.Create(newBankModel(bank)).Error
	})
}

func (s *Store) GetBank(ctx context.Context, asset string) (*core.Bank, error) {
	var m bankModel
	if err := s.db.WithContext(ctx).Where("asset = ?", asset).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(core.ErrNotFound, "bank %s", asset)
		}
		return nil, err
	}
	return m.toBank(), nil
}

func (s *Store) ListBanks(ctx context.Context) ([]*core.Bank, error) {
	var models []*bankModel
	if err := s.db.WithContext(ctx).Order("asset").Find(&models).Error; err != nil {
		return nil, err
	}
	banks := make([]*core.Bank, 0, len(models))
	for _, m := range models {
		banks = append(banks, m.toBank())
	}
	return banks, nil
}

func (s *Store) CreatePosition(ctx context.Context, position *core.Position) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := positionExists(tx, position.Owner)
		if err != nil {
			return err
		}
		if exists {
			return errors.Wrapf(core.ErrAlreadyExists, "position %s", position.Owner)
		}
		return savePosition(tx, position)
	})
}

func (s *Store) GetPosition(ctx context.Context, owner string) (*core.Position, error) {
	db := s.db.WithContext(ctx)

	var m positionModel
	if err := db.Where("owner = ?", owner).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(core.ErrNotFound, "position %s", owner)
		}
		return nil, err
	}

	var balances []*balanceModel
	if err := db.Where("owner = ?", owner).Find(&balances).Error; err != nil {
		return nil, err
	}
	return m.toPosition(balances), nil
}

func (s *Store) ListOperates(ctx context.Context, owner string, limit int) ([]*core.Operate, error) {
	query := s.db.WithContext(ctx).Where("owner = ?", owner).Order("seq desc")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var models []*operateModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	ops := make([]*core.Operate, 0, len(models))
	for _, m := range models {
		ops = append(ops, m.toOperate())
	}
	return ops, nil
}

func (s *Store) Commit(ctx context.Context, bank *core.Bank, position *core.Position, op *core.Operate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := bankExists(tx, bank.Asset)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrapf(core.ErrNotFound, "bank %s", bank.Asset)
		}
		exists, err = positionExists(tx, position.Owner)
		if err != nil {
			return err
		}
		if !exists {
			return errors.Wrapf(core.ErrNotFound, "position %s", position.Owner)
		}

		if err := tx.Save(newBankModel(bank)).Error; err != nil {
			return err
		}
		if err := savePosition(tx, position); err != nil {
			return err
		}
		if op != nil {
			return tx.Create(newOperateModel(op)).Error
		}
		return nil
	})
}

func savePosition(tx *gorm.DB, position *core.Position) error {
	m, balances := newPositionModels(position)
	if err := tx.Save(m).Error; err != nil {
		return err
	}
	for _, b := range balances {
		if err := tx.Save(b).Error; err != nil {
			return err
		}
	}
	return nil
}

func bankExists(tx *gorm.DB, asset string) (bool, error) {
	var count int64
	err := tx.Model(&bankModel{}).Where("asset = ?", asset).Count(&count).Error
	return count > 0, err
}

func positionExists(tx *gorm.DB, owner string) (bool, error) {
	var count int64
	err := tx.Model(&positionModel{}).Where("owner = ?", owner).Count(&count).Error
	return count > 0, err
}
