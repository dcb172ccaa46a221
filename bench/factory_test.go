// Copyright (C) 2023 Wooyang2018
// Licensed under the GNU General Public License v3.0

package bench

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wooyang2018/svp-loadgen/core"
)

func TestGenerateBatch(t *testing.T) {
	sender := core.GenerateKey(nil)
	lastID := bytes.Repeat([]byte{5}, core.HashLength)

	for _, count := range []int{0, 1, 3, 50} {
		txs, err := NewFactory().SetWorkers(4).
			GenerateBatch(context.Background(), count, sender, lastID)
		require.NoError(t, err)
		require.Len(t, txs, count)

		recipients := make(map[string]struct{})
		for _, tx := range txs {
			assert.True(t, tx.Sender().Equal(sender.PublicKey()))
			assert.Equal(t, lastID, tx.LastID())
			assert.EqualValues(t, 1, tx.Amount())
			assert.NoError(t, tx.Validate())
			recipients[tx.To().String()] = struct{}{}
		}
		assert.Len(t, recipients, count, "recipients must be distinct")
	}
}

func TestGenerateBatchErrors(t *testing.T) {
	asrt := assert.New(t)
	ctx := context.Background()
	lastID := make([]byte, core.HashLength)

	_, err := NewFactory().GenerateBatch(ctx, -1, core.GenerateKey(nil), lastID)
	asrt.ErrorIs(err, ErrNegativeCount)

	_, err = NewFactory().GenerateBatch(ctx, 10, &core.PrivateKey{}, lastID)
	asrt.ErrorIs(err, core.ErrInvalidKeySize)

	errEntropy := errors.New("entropy exhausted")
	f := NewFactory().SetRecipientSource(func() (*core.PublicKey, error) {
		return nil, errEntropy
	})
	_, err = f.GenerateBatch(ctx, 10, core.GenerateKey(nil), lastID)
	asrt.ErrorIs(err, errEntropy)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = NewFactory().GenerateBatch(cctx, 10, core.GenerateKey(nil), lastID)
	asrt.ErrorIs(err, context.Canceled)
}

func BenchmarkGenerateBatch(b *testing.B) {
	sender := core.GenerateKey(nil)
	lastID := make([]byte, core.HashLength)
	f := NewFactory()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.GenerateBatch(context.Background(), 1000, sender, lastID)
	}
}
