// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/sha3"
)

var ErrNegativeTokens = errors.New("negative mint tokens")

// Mint is the genesis record of a ledger: the funding key and its initial tokens.
type Mint struct {
	PrivKey []byte `json:"private_key"`
	Tokens  int64  `json:"tokens"`
}

func NewMint(tokens int64) *Mint {
	return &Mint{
		PrivKey: GenerateKey(nil).Bytes(),
		Tokens:  tokens,
	}
}

// ReadMint decodes and validates a mint record
func ReadMint(r io.Reader) (*Mint, error) {
	mint := new(Mint)
	if err := json.NewDecoder(r).Decode(mint); err != nil {
		return nil, fmt.Errorf("cannot parse mint, %w", err)
	}
	if _, err := mint.PrivateKey(); err != nil {
		return nil, fmt.Errorf("invalid mint key, %w", err)
	}
	if mint.Tokens < 0 {
		return nil, ErrNegativeTokens
	}
	return mint, nil
}

func (mint *Mint) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(mint)
}

func (mint *Mint) PrivateKey() (*PrivateKey, error) {
	return NewPrivateKey(mint.PrivKey)
}

func (mint *Mint) PublicKey() (*PublicKey, error) {
	priv, err := mint.PrivateKey()
	if err != nil {
		return nil, err
	}
	return priv.PublicKey(), nil
}

// Seed returns the ledger id the mint's ledger starts from
func (mint *Mint) Seed() []byte {
	h := sha3.New256()
	h.Write(mint.PrivKey)
	return h.Sum(nil)
}
