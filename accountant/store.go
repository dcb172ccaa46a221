// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package accountant

import (
	"encoding/binary"
	"errors"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/wooyang2018/svp-loadgen/core"
)

// data collection prefixes for different data collections
const (
	colBalanceByKey byte = iota + 1 // balance by public key
	colTxCount                      // total applied tx count
)

// Store keeps account balances in leveldb
type Store struct {
	db *leveldb.DB
}

// NewStore opens a leveldb store at path, or an in-memory one if path is empty
func NewStore(path string) (*Store, error) {
	var db *leveldb.DB
	var err error
	if path == "" {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(path, nil)
	}
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) GetBalance(key *core.PublicKey) (int64, bool, error) {
	b, err := s.db.Get(concatBytes([]byte{colBalanceByKey}, key.Bytes()), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return decodeInt(b), true, nil
}

func (s *Store) SetBalance(key *core.PublicKey, value int64) error {
	return s.db.Put(concatBytes([]byte{colBalanceByKey}, key.Bytes()), encodeInt(value), nil)
}

func (s *Store) GetTxCount() (int64, error) {
	b, err := s.db.Get([]byte{colTxCount}, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return decodeInt(b), nil
}

// commitTransfer writes both balances and the tx counter atomically
func (s *Store) commitTransfer(from, to *core.PublicKey, fromBal, toBal, txCount int64) error {
	batch := new(leveldb.Batch)
	batch.Put(concatBytes([]byte{colBalanceByKey}, from.Bytes()), encodeInt(fromBal))
	batch.Put(concatBytes([]byte{colBalanceByKey}, to.Bytes()), encodeInt(toBal))
	batch.Put([]byte{colTxCount}, encodeInt(txCount))
	return s.db.Write(batch, nil)
}

func encodeInt(value int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(value))
	return b
}

func decodeInt(b []byte) int64 {
	if len(b) != 8 {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

func concatBytes(srcs ...[]byte) []byte {
	size := 0
	for _, src := range srcs {
		size += len(src)
	}
	buf := make([]byte, 0, size)
	for _, src := range srcs {
		buf = append(buf, src...)
	}
	return buf
}
