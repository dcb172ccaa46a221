// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package protocol

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/wooyang2018/svp-loadgen/core"
)

// MaxPacketSize bounds every encoded request and response
const MaxPacketSize = 1024

// errors
var (
	ErrEmptyMessage   = errors.New("message carries no payload")
	ErrPacketTooLarge = errors.New("packet exceeds max size")
)

// request field numbers
const (
	reqFieldTransaction protowire.Number = iota + 1
	reqFieldGetBalance
	reqFieldGetLastID
)

// response field numbers
const (
	respFieldBalance protowire.Number = iota + 1
	respFieldLastID
)

// balance field numbers
const (
	balFieldKey protowire.Number = iota + 1
	balFieldValue
	balFieldFound
)

type RequestKind uint8

const (
	KindTransaction RequestKind = iota + 1
	KindGetBalance
	KindGetLastID
)

func (k RequestKind) String() string {
	switch k {
	case KindTransaction:
		return "transaction"
	case KindGetBalance:
		return "get_balance"
	case KindGetLastID:
		return "get_last_id"
	}
	return fmt.Sprintf("unknown(%d)", uint8(k))
}

// Request is a datagram sent from a client to the accountant.
// Exactly one payload is set.
type Request struct {
	kind        RequestKind
	transaction *core.Transaction
	account     *core.PublicKey
}

func NewTransactionRequest(tx *core.Transaction) *Request {
	return &Request{kind: KindTransaction, transaction: tx}
}

func NewBalanceRequest(account *core.PublicKey) *Request {
	return &Request{kind: KindGetBalance, account: account}
}

func NewLastIDRequest() *Request {
	return &Request{kind: KindGetLastID}
}

func (req *Request) Kind() RequestKind { return req.kind }
func (req *Request) Transaction() *core.Transaction { return req.transaction }
func (req *Request) Account() *core.PublicKey { return req.account }

// Marshal encodes request in protobuf wire format
func (req *Request) Marshal() ([]byte, error) {
	var b []byte
	switch req.kind {
	case KindTransaction:
		txb, err := req.transaction.Marshal()
		if err != nil {
			return nil, err
		}
		b = protowire.AppendTag(b, reqFieldTransaction, protowire.BytesType)
		b = protowire.AppendBytes(b, txb)
	case KindGetBalance:
		if req.account == nil {
			return nil, core.ErrNilKey
		}
		b = protowire.AppendTag(b, reqFieldGetBalance, protowire.BytesType)
		b = protowire.AppendBytes(b, req.account.Bytes())
	case KindGetLastID:
		b = protowire.AppendTag(b, reqFieldGetLastID, protowire.VarintType)
		b = protowire.AppendVarint(b, 1)
	default:
		return nil, ErrEmptyMessage
	}
	if len(b) > MaxPacketSize {
		return nil, ErrPacketTooLarge
	}
	return b, nil
}

// Unmarshal decodes request from bytes
func (req *Request) Unmarshal(b []byte) error {
	*req = Request{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == reqFieldTransaction && typ == protowire.BytesType:
			tx := new(core.Transaction)
			if err := tx.Unmarshal(v); err != nil {
				return err
			}
			req.kind, req.transaction, req.account = KindTransaction, tx, nil
		case num == reqFieldGetBalance && typ == protowire.BytesType:
			key, err := core.NewPublicKey(v)
			if err != nil {
				return err
			}
			req.kind, req.transaction, req.account = KindGetBalance, nil, key
		case num == reqFieldGetLastID && typ == protowire.VarintType:
			req.kind, req.transaction, req.account = KindGetLastID, nil, nil
		}
		return nil
	}, req.checkKind)
}

func (req *Request) checkKind() error {
	if req.kind == 0 {
		return ErrEmptyMessage
	}
	return nil
}

// Balance answers a balance request. Found is false for unknown accounts.
type Balance struct {
	Account *core.PublicKey
	Value   int64
	Found   bool
}

// Response is a datagram sent from the accountant back to a client.
// Exactly one of Balance and LastID is set.
type Response struct {
	Balance *Balance
	LastID  []byte
}

// Marshal encodes response in protobuf wire format
func (resp *Response) Marshal() ([]byte, error) {
	var b []byte
	switch {
	case resp.Balance != nil:
		if resp.Balance.Account == nil {
			return nil, core.ErrNilKey
		}
		var bal []byte
		bal = protowire.AppendTag(bal, balFieldKey, protowire.BytesType)
		bal = protowire.AppendBytes(bal, resp.Balance.Account.Bytes())
		bal = protowire.AppendTag(bal, balFieldValue, protowire.VarintType)
		bal = protowire.AppendVarint(bal, protowire.EncodeZigZag(resp.Balance.Value))
		bal = protowire.AppendTag(bal, balFieldFound, protowire.VarintType)
		bal = protowire.AppendVarint(bal, protowire.EncodeBool(resp.Balance.Found))
		b = protowire.AppendTag(b, respFieldBalance, protowire.BytesType)
		b = protowire.AppendBytes(b, bal)
	case resp.LastID != nil:
		b = protowire.AppendTag(b, respFieldLastID, protowire.BytesType)
		b = protowire.AppendBytes(b, resp.LastID)
	default:
		return nil, ErrEmptyMessage
	}
	return b, nil
}

// Unmarshal decodes response from bytes
func (resp *Response) Unmarshal(b []byte) error {
	*resp = Response{}
	return consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == respFieldBalance && typ == protowire.BytesType:
			bal, err := unmarshalBalance(v)
			if err != nil {
				return err
			}
			resp.Balance, resp.LastID = bal, nil
		case num == respFieldLastID && typ == protowire.BytesType:
			resp.Balance, resp.LastID = nil, append([]byte{}, v...)
		}
		return nil
	}, func() error {
		if resp.Balance == nil && resp.LastID == nil {
			return ErrEmptyMessage
		}
		return nil
	})
}

func unmarshalBalance(b []byte) (*Balance, error) {
	bal := new(Balance)
	err := consumeFields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch {
		case num == balFieldKey && typ == protowire.BytesType:
			key, err := core.NewPublicKey(v)
			if err != nil {
				return err
			}
			bal.Account = key
		case num == balFieldValue && typ == protowire.VarintType:
			bal.Value = protowire.DecodeZigZag(x)
		case num == balFieldFound && typ == protowire.VarintType:
			bal.Found = protowire.DecodeBool(x)
		}
		return nil
	}, func() error {
		if bal.Account == nil {
			return core.ErrNilKey
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bal, nil
}

type fieldFunc func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error

// consumeFields walks the top level fields of b, passing length-delimited
// values as v and varints as x. Other wire types are skipped.
func consumeFields(b []byte, fn fieldFunc, done func() error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var v []byte
		var x uint64
		switch typ {
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(num, typ, v, x); err != nil {
			return err
		}
	}
	return done()
}
