// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package core

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
	"google.golang.org/protobuf/encoding/protowire"
)

// HashLength is the byte length of transaction hashes and ledger ids
const HashLength = 32

// errors
var (
	ErrInvalidLastID = errors.New("invalid last id")
	ErrNilTx         = errors.New("nil transaction")
)

// transaction field numbers on the wire
const (
	txFieldFrom protowire.Number = iota + 1
	txFieldTo
	txFieldAmount
	txFieldLastID
	txFieldSignature
)

// Transaction is a signed transfer of tokens from the signer to a recipient,
// anchored to a ledger id. It is immutable once signed.
type Transaction struct {
	from   *PublicKey
	to     *PublicKey
	amount int64
	lastID []byte
	sig    *Signature
	hash   []byte
}

// NewTransfer builds and signs a transfer of amount from sender to recipient.
func NewTransfer(sender *PrivateKey, to *PublicKey, amount int64, lastID []byte) (*Transaction, error) {
	if sender == nil || to == nil {
		return nil, ErrNilKey
	}
	if len(sender.key) != ed25519.PrivateKeySize || sender.pubKey == nil {
		return nil, ErrInvalidKeySize
	}
	if len(lastID) != HashLength {
		return nil, ErrInvalidLastID
	}
	tx := &Transaction{
		from:   sender.PublicKey(),
		to:     to,
		amount: amount,
		lastID: append([]byte(nil), lastID...),
	}
	tx.hash = tx.Sum()
	tx.sig = sender.Sign(tx.hash)
	return tx, nil
}

// Sum returns sha3 sum of the signed fields
func (tx *Transaction) Sum() []byte {
	h := sha3.New256()
	h.Write(tx.from.Bytes())
	h.Write(tx.to.Bytes())
	binary.Write(h, binary.BigEndian, tx.amount)
	h.Write(tx.lastID)
	return h.Sum(nil)
}

// Validate transaction
func (tx *Transaction) Validate() error {
	if tx == nil || tx.sig == nil || tx.to == nil {
		return ErrNilTx
	}
	if len(tx.lastID) != HashLength {
		return ErrInvalidLastID
	}
	if !tx.sig.Verify(tx.Sum()) {
		return ErrInvalidSig
	}
	return nil
}

func (tx *Transaction) Hash() []byte { return tx.hash }
func (tx *Transaction) Sender() *PublicKey { return tx.from }
func (tx *Transaction) To() *PublicKey { return tx.to }
func (tx *Transaction) Amount() int64 { return tx.amount }
func (tx *Transaction) LastID() []byte { return tx.lastID }
func (tx *Transaction) Signature() []byte { return tx.sig.Bytes() }

// Marshal encodes transaction in protobuf wire format
func (tx *Transaction) Marshal() ([]byte, error) {
	if tx == nil || tx.sig == nil {
		return nil, ErrNilTx
	}
	b := make([]byte, 0, 3*HashLength+len(tx.sig.value)+16)
	b = protowire.AppendTag(b, txFieldFrom, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.from.Bytes())
	b = protowire.AppendTag(b, txFieldTo, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.to.Bytes())
	b = protowire.AppendTag(b, txFieldAmount, protowire.VarintType)
	b = protowire.AppendVarint(b, protowire.EncodeZigZag(tx.amount))
	b = protowire.AppendTag(b, txFieldLastID, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.lastID)
	b = protowire.AppendTag(b, txFieldSignature, protowire.BytesType)
	b = protowire.AppendBytes(b, tx.sig.value)
	return b, nil
}

// Unmarshal decodes transaction from bytes
func (tx *Transaction) Unmarshal(b []byte) error {
	var from, to, sig []byte
	var amount int64
	var lastID []byte
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		switch {
		case typ == protowire.BytesType:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			switch num {
			case txFieldFrom:
				from = append([]byte(nil), v...)
			case txFieldTo:
				to = append([]byte(nil), v...)
			case txFieldLastID:
				lastID = append([]byte(nil), v...)
			case txFieldSignature:
				sig = append([]byte(nil), v...)
			}
		case num == txFieldAmount && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			amount = protowire.DecodeZigZag(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
		}
	}
	signature, err := newSignature(from, sig)
	if err != nil {
		return fmt.Errorf("cannot decode sender, %w", err)
	}
	toKey, err := NewPublicKey(to)
	if err != nil {
		return fmt.Errorf("cannot decode recipient, %w", err)
	}
	tx.from = signature.PublicKey()
	tx.to = toKey
	tx.amount = amount
	tx.lastID = lastID
	tx.sig = signature
	tx.hash = tx.Sum()
	return nil
}
