// Package memory keeps lending state in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/DomeLiquid/lending/core"
	"github.com/pkg/errors"
)

type Store struct {
	mu        sync.RWMutex
	banks     map[string]*core.Bank
	positions map[string]*core.Position
	operates  map[string][]*core.Operate
}

var _ core.LedgerStore = (*Store)(nil)

func New() *Store {
	return &Store{
		banks:     map[string]*core.Bank{},
		positions: map[string]*core.Position{},
		operates:  map[string][]*core.Operate{},
	}
}

func (s *Store) CreateBank(_ context.Context, bank *core.Bank) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banks[bank.Asset]; ok {
		return errors.Wrapf(core.ErrAlreadyExists, "bank %s", bank.Asset)
	}
	s.banks[bank.Asset] = bank.Clone()
	return nil
}

func (s *Store) GetBank(_ context.Context, asset string) (*core.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bank, ok := s.banks[asset]
	if !ok {
		return nil, errors.Wrapf(core.ErrNotFound, "bank %s", asset)
	}
	return bank.Clone(), nil
}

func (s *Store) ListBanks(_ context.Context) ([]*core.Bank, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	banks := make([]*core.Bank, 0, len(s.banks))
	for _, bank := range s.banks {
		banks = append(banks, bank.Clone())
	}
	sort.Slice(banks, func(i, j int) bool { return banks[i].Asset < banks[j].Asset })
	return banks, nil
}

func (s *Store) CreatePosition(_ context.Context, position *core.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.positions[position.Owner]; ok {
		return errors.Wrapf(core.ErrAlreadyExists, "position %s", position.Owner)
	}
	s.positions[position.Owner] = position.Clone()
	return nil
}

func (s *Store) GetPosition(_ context.Context, owner string) (*core.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	position, ok := s.positions[owner]
	if !ok {
		return nil, errors.Wrapf(core.ErrNotFound, "position %s", owner)
	}
	return position.Clone(), nil
}

func (s *Store) ListOperates(_ context.Context, owner string, limit int) ([]*core.Operate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ops := s.operates[owner]
	result := make([]*core.Operate, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		op := *ops[i]
		result = append(result, &op)
	}
	return result, nil
}

func (s *Store) Commit(_ context.Context, bank *core.Bank, position *core.Position, op *core.Operate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.banks[bank.Asset]; !ok {
		return errors.Wrapf(core.ErrNotFound, "bank %s", bank.Asset)
	}
	if _, ok := s.positions[position.Owner]; !ok {
		return errors.Wrapf(core.ErrNotFound, "position %s", position.Owner)
	}

	s.banks[bank.Asset] = bank.Clone()
	s.positions[position.Owner] = position.Clone()
	if op != nil {
		stored := *op
		s.operates[op.Owner] = append(s.operates[op.Owner], &stored)
	}
	return nil
}
