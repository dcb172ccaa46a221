// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package accountant

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/wooyang2018/svp-loadgen/core"
)

// MaxRecentIDs is how many ledger ids a transaction may be anchored to
const MaxRecentIDs = 1024

// errors
var (
	ErrUnknownLastID     = errors.New("unknown last id")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrDuplicateSig      = errors.New("duplicate signature")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrSelfTransfer      = errors.New("self-transfer is prohibited")
)

// Accountant validates signed transfers and applies them to the store.
type Accountant struct {
	store *Store

	mtx       sync.Mutex
	recentIDs [][]byte // oldest first
	knownIDs  map[string]struct{}
	seenSigs  map[string]struct{}
	txCount   int64
}

// New creates an accountant funding the mint's key and anchored at the mint seed
func New(store *Store, mint *core.Mint) (*Accountant, error) {
	pubKey, err := mint.PublicKey()
	if err != nil {
		return nil, err
	}
	txCount, err := store.GetTxCount()
	if err != nil {
		return nil, err
	}
	acc := &Accountant{
		store:    store,
		knownIDs: make(map[string]struct{}),
		seenSigs: make(map[string]struct{}),
		txCount:  txCount,
	}
	if _, found, err := store.GetBalance(pubKey); err != nil {
		return nil, err
	} else if !found {
		if err := acc.Deposit(pubKey, mint.Tokens); err != nil {
			return nil, err
		}
	}
	acc.RegisterID(mint.Seed())
	return acc, nil
}

// RegisterID makes id the last id, evicting the oldest once MaxRecentIDs is reached
func (acc *Accountant) RegisterID(id []byte) {
	acc.mtx.Lock()
	defer acc.mtx.Unlock()

	id = append([]byte(nil), id...)
	if len(acc.recentIDs) == MaxRecentIDs {
		delete(acc.knownIDs, string(acc.recentIDs[0]))
		acc.recentIDs = acc.recentIDs[1:]
	}
	acc.recentIDs = append(acc.recentIDs, id)
	acc.knownIDs[string(id)] = struct{}{}
}

func (acc *Accountant) LastID() []byte {
	acc.mtx.Lock()
	defer acc.mtx.Unlock()

	if len(acc.recentIDs) == 0 {
		return nil
	}
	return acc.recentIDs[len(acc.recentIDs)-1]
}

func (acc *Accountant) Balance(key *core.PublicKey) (int64, bool, error) {
	acc.mtx.Lock()
	defer acc.mtx.Unlock()
	return acc.store.GetBalance(key)
}

func (acc *Accountant) Deposit(key *core.PublicKey, amount int64) error {
	acc.mtx.Lock()
	defer acc.mtx.Unlock()

	balance, _, err := acc.store.GetBalance(key)
	if err != nil {
		return err
	}
	return acc.store.SetBalance(key, balance+amount)
}

func (acc *Accountant) TxCount() int64 {
	acc.mtx.Lock()
	defer acc.mtx.Unlock()
	return acc.txCount
}

// ProcessTransaction verifies tx and moves its amount from sender to recipient.
func (acc *Accountant) ProcessTransaction(tx *core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if tx.Amount() <= 0 {
		return ErrInvalidAmount
	}
	if bytes.Equal(tx.Sender().Bytes(), tx.To().Bytes()) {
		return ErrSelfTransfer
	}

	acc.mtx.Lock()
	defer acc.mtx.Unlock()

	if _, ok := acc.knownIDs[string(tx.LastID())]; !ok {
		return ErrUnknownLastID
	}
	sig := string(tx.Signature())
	if _, ok := acc.seenSigs[sig]; ok {
		return ErrDuplicateSig
	}
	fromBal, _, err := acc.store.GetBalance(tx.Sender())
	if err != nil {
		return err
	}
	if fromBal < tx.Amount() {
		return ErrInsufficientFunds
	}
	toBal, _, err := acc.store.GetBalance(tx.To())
	if err != nil {
		return err
	}
	err = acc.store.commitTransfer(tx.Sender(), tx.To(),
		fromBal-tx.Amount(), toBal+tx.Amount(), acc.txCount+1)
	if err != nil {
		return fmt.Errorf("cannot commit transfer, %w", err)
	}
	acc.seenSigs[sig] = struct{}{}
	acc.txCount++
	return nil
}
