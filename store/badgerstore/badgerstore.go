// Package badgerstore persists lending state as JSON records in badger.
package badgerstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/DomeLiquid/lending/core"
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
)

const (
	bankKeyPrefix     = "bank\x00"
	positionKeyPrefix = "position\x00"
	operateKeyPrefix  = "operate\x00"
	operateSeqPrefix  = "seq\x00operate\x00"
)

type Store struct {
	db *badger.DB
}

var _ core.LedgerStore = (*Store)(nil)

// Open opens the database under dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLoggingLevel(badger.WARNING)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errors.Wrap(err, "open badger")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func bankKey(asset string) []byte {
	return []byte(bankKeyPrefix + asset)
}

func positionKey(owner string) []byte {
	return []byte(positionKeyPrefix + owner)
}

func operatePrefix(owner string) []byte {
	return []byte(operateKeyPrefix + owner + "\x00")
}

func operateKey(owner string, seq uint64) []byte {
	return append(operatePrefix(owner), []byte(fmt.Sprintf("%020d", seq))...)
}

func getJSON(txn *badger.Txn, key []byte, v any) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func setJSON(txn *badger.Txn, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func exists(txn *badger.Txn, key []byte) (bool, error) {
	_, err := txn.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, badger.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

func (s *Store) CreateBank(_ context.Context, bank *core.Bank) error {
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, bankKey(bank.Asset))
		if err != nil {
			return err
		}
		if found {
			return errors.Wrapf(core.ErrAlreadyExists, "bank %s", bank.Asset)
		}
		return setJSON(txn, bankKey(bank.Asset), bank)
	})
}

func (s *Store) GetBank(_ context.Context, asset string) (*core.Bank, error) {
	var bank core.Bank
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, bankKey(asset), &bank)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.Wrapf(core.ErrNotFound, "bank %s", asset)
	}
	if err != nil {
		return nil, err
	}
	return &bank, nil
}

func (s *Store) ListBanks(_ context.Context) ([]*core.Bank, error) {
	var banks []*core.Bank
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(bankKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var bank core.Bank
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &bank)
			}); err != nil {
				return err
			}
			banks = append(banks, &bank)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list banks")
	}
	return banks, nil
}

func (s *Store) CreatePosition(_ context.Context, position *core.Position) error {
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, positionKey(position.Owner))
		if err != nil {
			return err
		}
		if found {
			return errors.Wrapf(core.ErrAlreadyExists, "position %s", position.Owner)
		}
		return setJSON(txn, positionKey(position.Owner), position)
	})
}

func (s *Store) GetPosition(_ context.Context, owner string) (*core.Position, error) {
	var position core.Position
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, positionKey(owner), &position)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errors.Wrapf(core.ErrNotFound, "position %s", owner)
	}
	if err != nil {
		return nil, err
	}
	return &position, nil
}

func (s *Store) ListOperates(_ context.Context, owner string, limit int) ([]*core.Operate, error) {
	var ops []*core.Operate
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = operatePrefix(owner)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var op core.Operate
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &op)
			}); err != nil {
				return err
			}
			ops = append(ops, &op)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "list operates")
	}

	// keys ascend by sequence
	result := make([]*core.Operate, 0, len(ops))
	for i := len(ops) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, ops[i])
	}
	return result, nil
}

func (s *Store) Commit(_ context.Context, bank *core.Bank, position *core.Position, op *core.Operate) error {
	return s.db.Update(func(txn *badger.Txn) error {
		found, err := exists(txn, bankKey(bank.Asset))
		if err != nil {
			return err
		}
		if !found {
			return errors.Wrapf(core.ErrNotFound, "bank %s", bank.Asset)
		}
		found, err = exists(txn, positionKey(position.Owner))
		if err != nil {
			return err
		}
		if !found {
			return errors.Wrapf(core.ErrNotFound, "position %s", position.Owner)
		}

		if err := setJSON(txn, bankKey(bank.Asset), bank); err != nil {
			return err
		}
		if err := setJSON(txn, positionKey(position.Owner), position); err != nil {
			return err
		}
		if op == nil {
			return nil
		}

		seq, err := nextSeq(txn, op.Owner)
		if err != nil {
			return err
		}
		return setJSON(txn, operateKey(op.Owner, seq), op)
	})
}

// nextSeq advances the owner's journal counter inside txn.
func nextSeq(txn *badger.Txn, owner string) (uint64, error) {
	key := []byte(operateSeqPrefix + owner)
	var seq uint64
	item, err := txn.Get(key)
	switch {
	case err == nil:
		if err := item.Value(func(val []byte) error {
			seq = binary.BigEndian.Uint64(val)
			return nil
		}); err != nil {
			return 0, err
		}
	case !errors.Is(err, badger.ErrKeyNotFound):
		return 0, err
	}

	seq++
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, seq)
	return seq, txn.Set(key, buf)
}
