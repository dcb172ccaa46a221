// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/wooyang2018/svp-loadgen/core"
	"github.com/wooyang2018/svp-loadgen/logger"
)

// TransferAmount is the number of tokens moved by every generated transaction
const TransferAmount = 1

var ErrNegativeCount = errors.New("transaction count must not be negative")

// Factory generates batches of signed transfers to fresh random recipients.
type Factory struct {
	workers      int
	newRecipient func() (*core.PublicKey, error)
}

func NewFactory() *Factory {
	return &Factory{
		workers:      runtime.NumCPU(),
		newRecipient: randomRecipient,
	}
}

func randomRecipient() (*core.PublicKey, error) {
	priv, err := core.NewRandomKey(nil)
	if err != nil {
		return nil, err
	}
	return priv.PublicKey(), nil
}

// SetWorkers sets the number of signing goroutines, at least one
func (f *Factory) SetWorkers(workers int) *Factory {
	if workers < 1 {
		workers = 1
	}
	f.workers = workers
	return f
}

// SetRecipientSource replaces the key capability used to derive recipients
func (f *Factory) SetRecipientSource(fn func() (*core.PublicKey, error)) *Factory {
	f.newRecipient = fn
	return f
}

// GenerateBatch returns count transfers of TransferAmount from sender, each to
// a fresh recipient and anchored to lastID. The index range is split across
// the factory's workers and the sub-batches are joined in partition order.
// Callers must not rely on which recipient lands at which position.
func (f *Factory) GenerateBatch(
	ctx context.Context, count int, sender *core.PrivateKey, lastID []byte,
) ([]*core.Transaction, error) {
	if count < 0 {
		return nil, ErrNegativeCount
	}
	chunks, err := Partition(count, f.workers)
	if err != nil {
		return nil, err
	}
	parts := make([][]*core.Transaction, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			part, err := f.generate(gctx, chunk.Len(), sender, lastID)
			parts[i] = part
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	txs := make([]*core.Transaction, 0, count)
	for _, part := range parts {
		txs = append(txs, part...)
	}
	logger.I().Debugw("generated batch", "count", len(txs), "workers", len(chunks))
	return txs, nil
}

func (f *Factory) generate(
	ctx context.Context, n int, sender *core.PrivateKey, lastID []byte,
) ([]*core.Transaction, error) {
	part := make([]*core.Transaction, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		to, err := f.newRecipient()
		if err != nil {
			return nil, fmt.Errorf("cannot generate recipient, %w", err)
		}
		tx, err := core.NewTransfer(sender, to, TransferAmount, lastID)
		if err != nil {
			return nil, fmt.Errorf("cannot sign transfer, %w", err)
		}
		part = append(part, tx)
	}
	return part, nil
}
